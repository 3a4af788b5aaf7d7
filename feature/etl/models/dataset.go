package models

import (
	"fmt"
	"time"

	"assessment-sync/core/utils"
)

// ColumnType is the explicit type of a dataset column.
// Values are kept deliberately coarse; they only need to round-trip between
// the source result set and the embedded store schema.
type ColumnType string

const (
	ColumnInteger   ColumnType = "integer"
	ColumnReal      ColumnType = "real"
	ColumnText      ColumnType = "text"
	ColumnBoolean   ColumnType = "boolean"
	ColumnTimestamp ColumnType = "timestamp"
)

// Column is a named, typed dataset column.
type Column struct {
	// Name is the column name as it appears in source and destination.
	Name string `json:"name"`
	// Type is the coarse value type of the column.
	Type ColumnType `json:"type"`
}

// Row maps column names to values. Values are plain Go types
// (int64, float64, string, bool, time.Time) or nil.
type Row map[string]any

// Dataset is the in-memory tabular value flowing through extract, transform
// and load. Columns and rows are both ordered; rows never carry keys that are
// not declared as columns.
type Dataset struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewDataset creates an empty dataset with the given column schema.
func NewDataset(columns ...Column) *Dataset {
	return &Dataset{Columns: columns}
}

// AppendRow adds a row to the dataset.
func (d *Dataset) AppendRow(row Row) {
	d.Rows = append(d.Rows, row)
}

// Column returns the column definition for the given name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the dataset declares the given column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}

// ColumnNames returns the ordered column names.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		names = append(names, col.Name)
	}
	return names
}

// Clone returns a deep copy of the dataset. Transforms operate on clones so
// the input dataset is never mutated in place.
func (d *Dataset) Clone() *Dataset {
	clone := &Dataset{
		Columns: make([]Column, len(d.Columns)),
		Rows:    make([]Row, 0, len(d.Rows)),
	}
	copy(clone.Columns, d.Columns)
	for _, row := range d.Rows {
		newRow := make(Row, len(row))
		for k, v := range row {
			newRow[k] = v
		}
		clone.Rows = append(clone.Rows, newRow)
	}
	return clone
}

// MaxTime returns the maximum timestamp value observed in the given column,
// ignoring rows where the value is nil. The second return value reports
// whether any usable timestamp was found.
func (d *Dataset) MaxTime(column string) (time.Time, bool) {
	var max time.Time
	found := false
	for _, row := range d.Rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		ts, ok := TimeValue(v)
		if !ok {
			continue
		}
		if !found || ts.After(max) {
			max = ts
			found = true
		}
	}
	return max, found
}

// TimeValue coerces a row value into a time.Time.
// Accepted forms: time.Time, integer/float epoch seconds, and the timestamp
// string layouts the county systems emit (RFC3339 and "2006-01-02 15:04:05").
func TimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case int, int32, int64:
		return time.Unix(int64(utils.ToInt(t)), 0).UTC(), true
	case float32, float64:
		return time.Unix(int64(utils.ToFloat64(t)), 0).UTC(), true
	case string, []byte:
		return parseTimeString(utils.ToString(t))
	default:
		return time.Time{}, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// String renders a short summary, used in log fields.
func (d *Dataset) String() string {
	return fmt.Sprintf("dataset(%d columns, %d rows)", len(d.Columns), len(d.Rows))
}
