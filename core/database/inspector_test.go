package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTableColumns(t *testing.T) {
	// Setup In-Memory DB
	cfg := Config{
		Driver: DriverSQLite,
		Name:   ":memory:",
	}
	db, err := Connect(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, db)

	// Create a test table with the shapes the exporter emits.
	err = db.Exec("CREATE TABLE parcels (parcel_id INTEGER PRIMARY KEY, situs_address TEXT, assessed_value REAL)").Error
	assert.NoError(t, err)

	columns, err := GetTableColumns(db, "parcels")
	assert.NoError(t, err)
	assert.Len(t, columns, 3)

	colMap := make(map[string]string)
	keyMap := make(map[string]string)
	for _, col := range columns {
		colMap[col.Field] = col.Type
		keyMap[col.Field] = col.Key
	}

	assert.Equal(t, "integer", colMap["parcel_id"])
	assert.Equal(t, "text", colMap["situs_address"])
	assert.Equal(t, "real", colMap["assessed_value"])
	assert.Equal(t, "PRI", keyMap["parcel_id"])

	// PRAGMA table_info returns an empty result for a non-existent table,
	// which surfaces as no error and no columns.
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)

	assert.True(t, HasTable(db, "parcels"))
	assert.False(t, HasTable(db, "non_existent"))
}
