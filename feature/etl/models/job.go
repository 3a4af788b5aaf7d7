package models

import "time"

// Stage is the per-dataset pipeline state.
type Stage string

const (
	StageCreated      Stage = "created"
	StageExtracting   Stage = "extracting"
	StageFiltering    Stage = "filtering"
	StageTransforming Stage = "transforming"
	StageLoading      Stage = "loading"
	StageCommitted    Stage = "committed"
	StageFailed       Stage = "failed"
)

// LoadResult reports the outcome of a single load call.
type LoadResult struct {
	// RowsInserted is the number of newly inserted rows.
	RowsInserted int `json:"rows_inserted"`
	// RowsUpdated is the number of rows updated in place.
	RowsUpdated int `json:"rows_updated"`
	// Errors holds row-level error descriptions. A non-empty list always
	// accompanies a failed, rolled-back load.
	Errors []string `json:"errors,omitempty"`
}

// DatasetResult is the outcome of one dataset's pipeline within a job.
type DatasetResult struct {
	// Table is the destination table name.
	Table string `json:"table"`
	// Stage is the final pipeline stage (committed or failed).
	Stage Stage `json:"stage"`
	// RowsExtracted counts rows returned by the extractor.
	RowsExtracted int `json:"rows_extracted"`
	// RowsProcessed counts rows that survived incremental filtering.
	RowsProcessed int `json:"rows_processed"`
	// RowsInserted and RowsUpdated come from the load step.
	RowsInserted int `json:"rows_inserted"`
	RowsUpdated  int `json:"rows_updated"`
	// Watermark is the table's watermark after the run.
	Watermark time.Time `json:"watermark"`
	// Error describes the failure when Stage is failed.
	Error string `json:"error,omitempty"`
	// ErrorKind classifies the failure when Stage is failed.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

// Committed reports whether the dataset's load step fully succeeded.
func (r DatasetResult) Committed() bool {
	return r.Stage == StageCommitted
}

// SyncJob is one invocation of the full ETL workflow.
// It is immutable once finished.
type SyncJob struct {
	// JobID uniquely identifies the run.
	JobID string `json:"job_id"`
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Datasets holds the per-dataset results, in processing order.
	Datasets []DatasetResult `json:"datasets"`
	// Success is true only when every dataset committed.
	Success bool `json:"success"`
	// Errors aggregates dataset failures. Partial success is a reportable
	// outcome, not a fatal condition for the job.
	Errors []string `json:"errors,omitempty"`
}

// Result returns the result for the given table, if present.
func (j *SyncJob) Result(table string) (DatasetResult, bool) {
	for _, r := range j.Datasets {
		if r.Table == table {
			return r, true
		}
	}
	return DatasetResult{}, false
}
