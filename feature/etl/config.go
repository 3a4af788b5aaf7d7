package etl

import "strings"

// Source kinds.
const (
	SourceSQL    = "sql"
	SourceObject = "object"
)

// Config holds configuration for the ETL sync engine.
type Config struct {
	// StatsPath is the embedded stats store file.
	StatsPath string `mapstructure:"stats_path" default:"stats.db"`
	// WorkingPath is the embedded working store file.
	WorkingPath string `mapstructure:"working_path" default:"working.db"`
	// MetadataPath is the sync metadata (watermark) file.
	MetadataPath string `mapstructure:"metadata_path" default:"sync_metadata.json"`
	// Source selects the extractor: sql (county database link) or
	// object (CSV exports in the storage bucket).
	Source string `mapstructure:"source" default:"sql"`
	// QueryTimeoutSeconds bounds the extraction query. Exceeding it is a
	// dataset-scoped failure, not a process abort.
	QueryTimeoutSeconds int `mapstructure:"query_timeout_seconds" default:"120"`
	// Pushdown opts in to filtering at the source (timestamp predicate in
	// the query) instead of in memory. Off by default: in-memory filtering
	// is correct regardless of source indexing.
	Pushdown bool `mapstructure:"pushdown" default:"false"`
	// Incremental is the default sync mode for workflow runs.
	Incremental bool `mapstructure:"incremental" default:"true"`
	// ReportUpload archives finished job reports to the storage bucket.
	ReportUpload bool `mapstructure:"report_upload" default:"false"`

	// Per-dataset defaults for workflow runs.
	StatsQuery             string `mapstructure:"stats_query" default:""`
	WorkingQuery           string `mapstructure:"working_query" default:""`
	StatsTimestampColumn   string `mapstructure:"stats_timestamp_column" default:"updated_at"`
	WorkingTimestampColumn string `mapstructure:"working_timestamp_column" default:"updated_at"`
	StatsTable             string `mapstructure:"stats_table" default:"assessment_stats"`
	WorkingTable           string `mapstructure:"working_table" default:"assessment_working"`
	// Key columns are comma-separated in configuration.
	StatsKeyColumns   string `mapstructure:"stats_key_columns" default:"parcel_id"`
	WorkingKeyColumns string `mapstructure:"working_key_columns" default:"parcel_id"`
}

// SplitColumns parses a comma-separated column list.
func SplitColumns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cols = append(cols, trimmed)
		}
	}
	return cols
}
