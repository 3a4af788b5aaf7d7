package extract

import (
	"context"
	"regexp"
	"time"

	"assessment-sync/feature/etl/models"
)

// Request describes one extraction.
type Request struct {
	// Query is the source query (SQL) or object name (CSV exports).
	Query string
	// Table is the logical destination table, used for error scoping.
	Table string
	// TimestampColumn is the change-tracking column, when known.
	TimestampColumn string
	// Watermark is the table's last sync time; zero means never synced.
	Watermark time.Time
	// Pushdown opts in to filtering at the source instead of in memory.
	// Only honored by extractors that can push a predicate into the query;
	// the logical output is identical either way.
	Pushdown bool
}

// Extractor runs a parameterized query against the source system and
// produces a dataset. Implementations must keep the source connection scoped
// to the call: opened immediately before the query, released immediately
// after, never held across transform or load steps.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*models.Dataset, error)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
