// Package metadata persists per-table sync watermarks and record counts.
//
// The store is a single JSON file mapping table names to their sync state.
// Writes go through a temp file followed by an atomic rename, so a crash
// mid-write never corrupts the previous state. An unreadable file at startup
// degrades to "never synced" for every table instead of aborting the process,
// which at worst costs one full load.
package metadata
