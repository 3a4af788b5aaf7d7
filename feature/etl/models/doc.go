// Package models defines the value types flowing through the sync engine:
// the Dataset tabular value, per-job and per-dataset result types, and the
// SyncError taxonomy shared by every pipeline stage.
package models
