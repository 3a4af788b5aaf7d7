package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TableSyncState is the durable sync record for one logical table.
type TableSyncState struct {
	// TableName is the logical destination table.
	TableName string `json:"table_name"`
	// LastSyncTime is the monotonic watermark; the zero value means the
	// table has never been synced and must receive a full load.
	LastSyncTime time.Time `json:"last_sync_time"`
	// LastJobID is the job that last advanced the watermark.
	LastJobID string `json:"last_job_id"`
	// InsertedCount and UpdatedCount accumulate across jobs, for reporting.
	InsertedCount int64 `json:"inserted_count"`
	UpdatedCount  int64 `json:"updated_count"`
}

// NeverSynced reports whether the table has no recorded watermark.
func (s TableSyncState) NeverSynced() bool {
	return s.LastSyncTime.IsZero()
}

// Store is the durable, crash-safe record of per-table sync state, backed by
// a single JSON file. All mutation goes through an in-process mutex; state is
// persisted with write-to-temp-then-rename so a crash never leaves a partial
// file behind.
type Store struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	states map[string]TableSyncState
}

// NewStore loads the store from disk. A missing or unreadable file degrades
// to an empty store (every table treated as never synced) with a logged
// warning; it never fails process startup.
func NewStore(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger,
		states: make(map[string]TableSyncState),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Sync metadata file missing, treating all tables as never synced",
				zap.String("path", path))
		} else {
			logger.Warn("Sync metadata file unreadable, treating all tables as never synced",
				zap.String("path", path),
				zap.Error(err))
		}
		return s
	}

	if err := json.Unmarshal(data, &s.states); err != nil {
		logger.Warn("Sync metadata file corrupt, treating all tables as never synced",
			zap.String("path", path),
			zap.Error(err))
		s.states = make(map[string]TableSyncState)
		return s
	}

	logger.Info("Loaded sync metadata",
		zap.String("path", path),
		zap.Int("tables", len(s.states)))
	return s
}

// LastSyncTime returns the stored watermark for the table, or the zero time
// when the table has never been synced.
func (s *Store) LastSyncTime(table string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[table].LastSyncTime
}

// UpdateSyncTime persists a new watermark for the table. Called by the
// orchestrator only after the dataset's load step committed. Watermarks never
// move backwards; an older timestamp is ignored.
func (s *Store) UpdateSyncTime(table, jobID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.states[table]
	if !state.LastSyncTime.IsZero() && !ts.After(state.LastSyncTime) {
		s.logger.Debug("Watermark unchanged",
			zap.String("table", table),
			zap.Time("current", state.LastSyncTime),
			zap.Time("offered", ts))
		return nil
	}

	state.TableName = table
	state.LastSyncTime = ts
	state.LastJobID = jobID
	s.states[table] = state

	return s.persistLocked()
}

// UpdateRecordCounts accumulates per-table inserted/updated counters.
func (s *Store) UpdateRecordCounts(table string, inserted, updated int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.states[table]
	state.TableName = table
	state.InsertedCount += int64(inserted)
	state.UpdatedCount += int64(updated)
	s.states[table] = state

	return s.persistLocked()
}

// Statistics returns a snapshot of all table states, sorted by table name
// for deterministic output.
func (s *Store) Statistics() []TableSyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]TableSyncState, 0, len(s.states))
	for _, state := range s.states {
		stats = append(stats, state)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].TableName < stats[j].TableName
	})
	return stats
}

// persistLocked writes the state map atomically. Caller holds s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.states, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync metadata: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp metadata file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}
