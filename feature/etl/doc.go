// Package etl is the incremental sync engine for county assessment data.
//
// The Service ties the pipeline together: extract from the county source,
// filter to rows changed since the last sync, transform, and load into the
// embedded stats and working stores. The RunETLWorkflow orchestrator drives
// both datasets through a per-dataset stage machine with fault isolation: a
// failing dataset is reported on the job and never blocks the other. The
// watermark for a table only advances after its load step committed, which
// makes interrupted or repeated runs safe to retry.
package etl
