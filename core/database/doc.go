// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) that
// connects either to the county source system (mysql) or to a local embedded
// store file (sqlite), depending on the configured driver.
//
// # Connect
//
// The generic Connect function establishes a connection. Source connections
// are short-lived: the extractor dials immediately before running its query
// and releases the pool through Close immediately after.
//
// # Schema Inspection
//
// GetTableColumns retrieves normalized column definitions, which the embedded
// store exporter relies on to detect additive versus destructive schema
// changes before loading a dataset.
//
// # Usage
//
//	db, err := database.Connect(cfg.Source)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "assessment_working")
package database
