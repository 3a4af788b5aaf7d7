package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"assessment-sync/core/database"
	"assessment-sync/feature/etl/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Exporter loads datasets into one embedded sqlite store file.
// Every load runs inside a single transaction: a failing row rolls back the
// whole batch, leaving the table exactly as it was before the call.
type Exporter struct {
	db     *gorm.DB
	path   string
	logger *zap.Logger
}

// NewExporter opens (or creates) the embedded store file.
func NewExporter(path string, logger *zap.Logger) (*Exporter, error) {
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		Name:   path,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded store %s: %w", path, err)
	}
	return &Exporter{db: db, path: path, logger: logger}, nil
}

// Path returns the backing file path.
func (e *Exporter) Path() string {
	return e.path
}

// Close releases the store file.
func (e *Exporter) Close() error {
	return database.Close(e.db)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

// sqliteType maps a dataset column type to the declared sqlite column type.
func sqliteType(t models.ColumnType) string {
	switch t {
	case models.ColumnInteger:
		return "INTEGER"
	case models.ColumnReal:
		return "REAL"
	case models.ColumnBoolean:
		return "BOOLEAN"
	case models.ColumnTimestamp:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// compatible reports whether an existing declared type can keep holding
// values of the incoming column type. Comparison is by declared type after
// normalization; sqlite's affinity rules make anything stricter pointless.
func compatible(existing string, incoming models.ColumnType) bool {
	return strings.EqualFold(strings.TrimSpace(existing), sqliteType(incoming))
}

// CreateAndLoad creates the table from the dataset's schema and bulk-inserts
// all rows, replacing any previous table of the same name. When key columns
// are given they become the table's composite primary key, so later merges
// operate against a real constraint. Used for first-time and full loads.
func (e *Exporter) CreateAndLoad(ds *models.Dataset, table string, keyColumns []string) (models.LoadResult, error) {
	var result models.LoadResult

	if err := e.validateTarget(ds, table, keyColumns); err != nil {
		return result, err
	}

	createSQL := buildCreateSQL(ds, table, keyColumns)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DROP TABLE IF EXISTS " + quote(table)).Error; err != nil {
			return fmt.Errorf("failed to drop previous table: %w", err)
		}
		if err := tx.Exec(createSQL).Error; err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		n, err := insertRows(tx, ds, table, ds.Rows)
		if err != nil {
			return err
		}
		result.RowsInserted = n
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return models.LoadResult{Errors: result.Errors}, wrapLoadError(table, err)
	}

	e.logger.Info("Created and loaded table",
		zap.String("store", e.path),
		zap.String("table", table),
		zap.Int("rows", result.RowsInserted))
	return result, nil
}

// Append inserts all rows without existence checks. Valid only when the
// caller guarantees no key collisions, e.g. rows already filtered to be
// strictly new. The schema evolution policy still applies.
func (e *Exporter) Append(ds *models.Dataset, table string) (models.LoadResult, error) {
	var result models.LoadResult

	if err := e.validateTarget(ds, table, nil); err != nil {
		return result, err
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		// Schema changes ride in the batch transaction so a failed
		// batch rolls back its column additions too.
		if err := e.ensureSchema(tx, ds, table); err != nil {
			return err
		}
		n, err := insertRows(tx, ds, table, ds.Rows)
		if err != nil {
			return err
		}
		result.RowsInserted = n
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return models.LoadResult{Errors: result.Errors}, wrapLoadError(table, err)
	}

	e.logger.Info("Appended rows",
		zap.String("store", e.path),
		zap.String("table", table),
		zap.Int("rows", result.RowsInserted))
	return result, nil
}

// Merge upserts each incoming row: rows whose key columns match an existing
// row update all non-key columns in place, the rest are inserted. The whole
// batch is one transaction; a single failing row leaves the table untouched.
func (e *Exporter) Merge(ds *models.Dataset, table string, keyColumns []string) (models.LoadResult, error) {
	var result models.LoadResult

	if len(keyColumns) == 0 {
		return result, models.NewConfigError(table, "merge requires at least one key column")
	}
	if err := e.validateTarget(ds, table, keyColumns); err != nil {
		return result, err
	}

	nonKey := nonKeyColumns(ds, keyColumns)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.ensureSchema(tx, ds, table); err != nil {
			return err
		}
		for i, row := range ds.Rows {
			keyArgs, err := keyValues(row, keyColumns, i)
			if err != nil {
				return err
			}

			var count int64
			where := whereClause(keyColumns)
			if err := tx.Raw("SELECT COUNT(*) FROM "+quote(table)+" WHERE "+where, keyArgs...).Scan(&count).Error; err != nil {
				return fmt.Errorf("row %d: existence check failed: %w", i, err)
			}

			if count > 0 {
				if len(nonKey) == 0 {
					// Every column is a key; a matching row is already
					// identical to the incoming one.
					result.RowsUpdated++
					continue
				}
				sets := make([]string, 0, len(nonKey))
				args := make([]any, 0, len(nonKey)+len(keyArgs))
				for _, col := range nonKey {
					sets = append(sets, quote(col)+" = ?")
					args = append(args, row[col])
				}
				args = append(args, keyArgs...)
				updateSQL := "UPDATE " + quote(table) + " SET " + strings.Join(sets, ", ") + " WHERE " + where
				if err := tx.Exec(updateSQL, args...).Error; err != nil {
					return fmt.Errorf("row %d: update failed: %w", i, err)
				}
				result.RowsUpdated++
			} else {
				if _, err := insertRows(tx, ds, table, []models.Row{row}); err != nil {
					return fmt.Errorf("row %d: %w", i, err)
				}
				result.RowsInserted++
			}
		}
		return nil
	})
	if err != nil {
		return models.LoadResult{Errors: []string{err.Error()}}, wrapLoadError(table, err)
	}

	e.logger.Info("Merged dataset",
		zap.String("store", e.path),
		zap.String("table", table),
		zap.Int("inserted", result.RowsInserted),
		zap.Int("updated", result.RowsUpdated))
	return result, nil
}

// RowCount returns the number of rows currently in the table.
func (e *Exporter) RowCount(table string) (int64, error) {
	if err := validIdentifier(table); err != nil {
		return 0, err
	}
	var count int64
	if err := e.db.Raw("SELECT COUNT(*) FROM " + quote(table)).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// HasTable reports whether the table exists in the store.
func (e *Exporter) HasTable(table string) bool {
	return database.HasTable(e.db, table)
}

// validateTarget checks table, column and key identifiers and that the key
// columns are part of the dataset.
func (e *Exporter) validateTarget(ds *models.Dataset, table string, keyColumns []string) error {
	if err := validIdentifier(table); err != nil {
		return models.NewConfigError(table, err.Error())
	}
	if len(ds.Columns) == 0 {
		return models.NewConfigError(table, "dataset has no columns")
	}
	for _, col := range ds.Columns {
		if err := validIdentifier(col.Name); err != nil {
			return models.NewConfigError(table, err.Error())
		}
	}
	for _, key := range keyColumns {
		if !ds.HasColumn(key) {
			return models.NewConfigError(table, fmt.Sprintf("key column %q is not part of the dataset", key))
		}
	}
	return nil
}

// ensureSchema enforces the additive evolution policy against an existing
// table: new dataset columns are added as nullable columns, while removed or
// type-incompatible columns are refused. A missing table is refused too;
// only CreateAndLoad creates tables. Runs on the batch transaction so a
// rolled-back batch takes its column additions with it.
func (e *Exporter) ensureSchema(tx *gorm.DB, ds *models.Dataset, table string) error {
	if !database.HasTable(tx, table) {
		return models.NewSchemaMismatchError(table, "table does not exist; run a full load first")
	}

	existing, err := database.GetTableColumns(tx, table)
	if err != nil {
		return models.NewQueryError(table, err)
	}

	existingByName := make(map[string]database.ColumnInfo, len(existing))
	for _, col := range existing {
		existingByName[col.Field] = col
	}

	// The inspector reports lowercased names; match dataset columns the same way.
	dsByLower := make(map[string]models.Column, len(ds.Columns))
	for _, col := range ds.Columns {
		dsByLower[strings.ToLower(col.Name)] = col
	}

	// Destructive changes are refused, never silently applied.
	for _, col := range existing {
		dsCol, ok := dsByLower[col.Field]
		if !ok {
			return models.NewSchemaMismatchError(table,
				fmt.Sprintf("dataset is missing existing column %q; dropping columns is refused", col.Field))
		}
		if !compatible(col.Type, dsCol.Type) {
			return models.NewSchemaMismatchError(table,
				fmt.Sprintf("column %q is %s in the store but %s in the dataset", col.Field, col.Type, dsCol.Type))
		}
	}

	// Additive changes: new columns arrive as nullable columns.
	for _, col := range ds.Columns {
		if _, ok := existingByName[strings.ToLower(col.Name)]; ok {
			continue
		}
		alterSQL := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(table), quote(col.Name), sqliteType(col.Type))
		if err := tx.Exec(alterSQL).Error; err != nil {
			return models.NewQueryError(table, fmt.Errorf("failed to add column %s: %w", col.Name, err))
		}
		e.logger.Info("Added column",
			zap.String("store", e.path),
			zap.String("table", table),
			zap.String("column", col.Name),
			zap.String("type", string(col.Type)))
	}

	return nil
}

func buildCreateSQL(ds *models.Dataset, table string, keyColumns []string) string {
	defs := make([]string, 0, len(ds.Columns)+1)
	for _, col := range ds.Columns {
		defs = append(defs, quote(col.Name)+" "+sqliteType(col.Type))
	}
	if len(keyColumns) > 0 {
		quoted := make([]string, 0, len(keyColumns))
		for _, key := range keyColumns {
			quoted = append(quoted, quote(key))
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	return "CREATE TABLE " + quote(table) + " (" + strings.Join(defs, ", ") + ")"
}

// insertRows inserts the given rows using the dataset's column order.
func insertRows(tx *gorm.DB, ds *models.Dataset, table string, rows []models.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(ds.Columns))
	placeholders := make([]string, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		names = append(names, quote(col.Name))
		placeholders = append(placeholders, "?")
	}
	insertSQL := "INSERT INTO " + quote(table) + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	inserted := 0
	for i, row := range rows {
		args := make([]any, 0, len(ds.Columns))
		for _, col := range ds.Columns {
			args = append(args, row[col.Name])
		}
		if err := tx.Exec(insertSQL, args...).Error; err != nil {
			return inserted, fmt.Errorf("insert of row %d failed: %w", i, err)
		}
		inserted++
	}
	return inserted, nil
}

// keyValues extracts and validates the key column values of a row.
// Nil keys are rejected before anything is written.
func keyValues(row models.Row, keyColumns []string, rowIndex int) ([]any, error) {
	args := make([]any, 0, len(keyColumns))
	for _, key := range keyColumns {
		v, ok := row[key]
		if !ok || v == nil {
			return nil, fmt.Errorf("row %d has no value for key column %q", rowIndex, key)
		}
		args = append(args, v)
	}
	return args, nil
}

func whereClause(keyColumns []string) string {
	parts := make([]string, 0, len(keyColumns))
	for _, key := range keyColumns {
		parts = append(parts, quote(key)+" = ?")
	}
	return strings.Join(parts, " AND ")
}

func nonKeyColumns(ds *models.Dataset, keyColumns []string) []string {
	keySet := make(map[string]struct{}, len(keyColumns))
	for _, key := range keyColumns {
		keySet[key] = struct{}{}
	}
	cols := make([]string, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		if _, ok := keySet[col.Name]; !ok {
			cols = append(cols, col.Name)
		}
	}
	return cols
}

// wrapLoadError keeps already-classified errors as they are and tags the
// rest as query errors scoped to the table.
func wrapLoadError(table string, err error) error {
	var se *models.SyncError
	if errors.As(err, &se) {
		return err
	}
	return models.NewQueryError(table, err)
}
