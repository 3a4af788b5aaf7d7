// Package utils provides common utility functions for the assessment-sync
// application. It includes helper functions for coercing the loosely typed
// values that come back from source queries and CSV exports into the types
// the dataset model expects.
package utils
