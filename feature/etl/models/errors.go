package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies sync failures. Every kind is fatal to the affected
// dataset only; the orchestrator records it and carries on with the rest of
// the job.
type ErrorKind string

const (
	// ErrKindConnection means the source system was unreachable.
	ErrKindConnection ErrorKind = "connection"
	// ErrKindQuery means the extraction query failed or timed out.
	ErrKindQuery ErrorKind = "query"
	// ErrKindTransformation means a transform step failed.
	ErrKindTransformation ErrorKind = "transformation"
	// ErrKindSchemaMismatch means the load would require a destructive
	// schema change, which is refused.
	ErrKindSchemaMismatch ErrorKind = "schema_mismatch"
	// ErrKindMetadataCorruption means the metadata file was unreadable.
	// Handled by treating all tables as never synced, not by crashing.
	ErrKindMetadataCorruption ErrorKind = "metadata_corruption"
	// ErrKindConfig means the request itself was invalid, e.g. incremental
	// mode against a table with no timestamp column.
	ErrKindConfig ErrorKind = "config"
)

// SyncError carries enough context (table, step, cause) to diagnose a
// dataset failure without re-running the job.
type SyncError struct {
	Kind  ErrorKind
	Table string
	Step  string
	Err   error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)
	if e.Table != "" {
		msg += fmt.Sprintf(" (table %s", e.Table)
		if e.Step != "" {
			msg += ", step " + e.Step
		}
		msg += ")"
	} else if e.Step != "" {
		msg += fmt.Sprintf(" (step %s)", e.Step)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewConnectionError wraps a source connection failure.
func NewConnectionError(table string, err error) *SyncError {
	return &SyncError{Kind: ErrKindConnection, Table: table, Step: "extract", Err: err}
}

// NewQueryError wraps an extraction query failure.
func NewQueryError(table string, err error) *SyncError {
	return &SyncError{Kind: ErrKindQuery, Table: table, Step: "extract", Err: err}
}

// NewTransformationError identifies the failing transform by index and name.
func NewTransformationError(table string, index int, name string, err error) *SyncError {
	return &SyncError{
		Kind:  ErrKindTransformation,
		Table: table,
		Step:  fmt.Sprintf("transform[%d] %s", index, name),
		Err:   err,
	}
}

// NewSchemaMismatchError signals a refused destructive schema change.
func NewSchemaMismatchError(table, detail string) *SyncError {
	return &SyncError{Kind: ErrKindSchemaMismatch, Table: table, Step: "load", Err: errors.New(detail)}
}

// NewMetadataCorruptionError wraps a failure to persist sync metadata.
func NewMetadataCorruptionError(table string, err error) *SyncError {
	return &SyncError{Kind: ErrKindMetadataCorruption, Table: table, Step: "commit", Err: err}
}

// NewConfigError signals an invalid request or configuration.
func NewConfigError(table, detail string) *SyncError {
	return &SyncError{Kind: ErrKindConfig, Table: table, Err: errors.New(detail)}
}

// KindOf extracts the error kind from an error chain.
// Unclassified errors report as query errors, the broadest dataset-scoped kind.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindQuery
}
