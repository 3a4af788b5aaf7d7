// Package incremental decides which extracted rows are new since a table's
// last successful sync, by comparing row timestamps against the watermark
// recorded in the metadata store. Rows equal to the watermark are considered
// already processed; only strictly newer rows pass.
package incremental
