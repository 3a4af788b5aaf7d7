// Package extract is the boundary to the county source systems.
//
// An Extractor turns a parameterized query into a dataset. Two
// implementations exist: SQLExtractor for counties exposing a database link,
// and ObjectExtractor for counties that drop CSV exports into object
// storage. Source connections are strictly scoped to the extraction call and
// bounded by the configured query timeout; a connection or query failure is
// fatal to the dataset being extracted, never to the whole job.
package extract
