// Package export writes datasets into the embedded sqlite store files.
//
// The exporter offers three load modes: CreateAndLoad for full loads,
// Append for pre-filtered strictly-new rows, and Merge for upserts keyed on
// caller-specified columns. Every mode runs its whole batch in one
// transaction, so a failing row never leaves a partially loaded table.
//
// Schema evolution is additive only: columns new to the dataset are added as
// nullable columns, while dropped or type-changed columns are refused with a
// schema mismatch error.
package export
