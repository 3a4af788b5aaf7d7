package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset_Clone(t *testing.T) {
	ds := NewDataset(
		Column{Name: "parcel_id", Type: ColumnInteger},
		Column{Name: "situs_address", Type: ColumnText},
	)
	ds.AppendRow(Row{"parcel_id": int64(1), "situs_address": "100 Main St"})

	clone := ds.Clone()
	clone.Rows[0]["situs_address"] = "changed"
	clone.Columns[0].Name = "renamed"
	clone.AppendRow(Row{"parcel_id": int64(2)})

	// Original must be untouched.
	assert.Equal(t, "100 Main St", ds.Rows[0]["situs_address"])
	assert.Equal(t, "parcel_id", ds.Columns[0].Name)
	assert.Len(t, ds.Rows, 1)
}

func TestDataset_MaxTime(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	ds := NewDataset(Column{Name: "updated_at", Type: ColumnTimestamp})
	ds.AppendRow(Row{"updated_at": t1})
	ds.AppendRow(Row{"updated_at": t2})
	ds.AppendRow(Row{"updated_at": nil})

	max, ok := ds.MaxTime("updated_at")
	require.True(t, ok)
	assert.Equal(t, t2, max)

	_, ok = ds.MaxTime("missing_column")
	assert.False(t, ok)

	empty := NewDataset(Column{Name: "updated_at", Type: ColumnTimestamp})
	_, ok = empty.MaxTime("updated_at")
	assert.False(t, ok)
}

func TestTimeValue(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want time.Time
		ok   bool
	}{
		{"Time", want, want, true},
		{"EpochSeconds", want.Unix(), want, true},
		{"EpochFloat", float64(want.Unix()), want, true},
		{"RFC3339", "2024-03-01T12:30:00Z", want, true},
		{"SQLDatetime", "2024-03-01 12:30:00", want, true},
		{"DateOnly", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"Garbage", "not-a-time", time.Time{}, false},
		{"Nil", nil, time.Time{}, false},
		{"Bool", true, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TimeValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestDataset_Columns(t *testing.T) {
	ds := NewDataset(
		Column{Name: "parcel_id", Type: ColumnInteger},
		Column{Name: "assessed_value", Type: ColumnReal},
	)

	col, ok := ds.Column("assessed_value")
	require.True(t, ok)
	assert.Equal(t, ColumnReal, col.Type)

	assert.False(t, ds.HasColumn("nope"))
	assert.Equal(t, []string{"parcel_id", "assessed_value"}, ds.ColumnNames())
}
