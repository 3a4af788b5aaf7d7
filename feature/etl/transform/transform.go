package transform

import (
	"fmt"

	"assessment-sync/feature/etl/models"
)

// Transform is a single named, pure dataset transformation.
// Apply receives a dataset it may freely mutate (the pipeline hands it a
// clone) and returns the transformed dataset or an error.
type Transform struct {
	Name  string
	Apply func(ds *models.Dataset) (*models.Dataset, error)
}

// Apply runs the transforms in order against a clone of the input.
// The input dataset is never mutated. The first failing transform aborts the
// whole dataset with an error identifying the step by index and name; partial
// output from earlier steps is discarded.
func Apply(ds *models.Dataset, transforms []Transform, table string) (*models.Dataset, error) {
	current := ds.Clone()
	for i, tr := range transforms {
		next, err := tr.Apply(current)
		if err != nil {
			return nil, models.NewTransformationError(table, i, tr.Name, err)
		}
		if next == nil {
			return nil, models.NewTransformationError(table, i, tr.Name,
				fmt.Errorf("transform returned a nil dataset"))
		}
		current = next
	}
	return current, nil
}

// RenameColumn renames a column in both the schema and every row.
func RenameColumn(from, to string) Transform {
	return Transform{
		Name: fmt.Sprintf("rename_%s_to_%s", from, to),
		Apply: func(ds *models.Dataset) (*models.Dataset, error) {
			if !ds.HasColumn(from) {
				return nil, fmt.Errorf("column %q does not exist", from)
			}
			if ds.HasColumn(to) {
				return nil, fmt.Errorf("column %q already exists", to)
			}
			for i := range ds.Columns {
				if ds.Columns[i].Name == from {
					ds.Columns[i].Name = to
				}
			}
			for _, row := range ds.Rows {
				if v, ok := row[from]; ok {
					row[to] = v
					delete(row, from)
				}
			}
			return ds, nil
		},
	}
}

// DropColumn removes a column from the schema and every row.
func DropColumn(name string) Transform {
	return Transform{
		Name: "drop_" + name,
		Apply: func(ds *models.Dataset) (*models.Dataset, error) {
			if !ds.HasColumn(name) {
				return nil, fmt.Errorf("column %q does not exist", name)
			}
			cols := ds.Columns[:0]
			for _, col := range ds.Columns {
				if col.Name != name {
					cols = append(cols, col)
				}
			}
			ds.Columns = cols
			for _, row := range ds.Rows {
				delete(row, name)
			}
			return ds, nil
		},
	}
}

// AddColumn appends a new column with a constant default value.
func AddColumn(col models.Column, defaultValue any) Transform {
	return Transform{
		Name: "add_" + col.Name,
		Apply: func(ds *models.Dataset) (*models.Dataset, error) {
			if ds.HasColumn(col.Name) {
				return nil, fmt.Errorf("column %q already exists", col.Name)
			}
			ds.Columns = append(ds.Columns, col)
			for _, row := range ds.Rows {
				row[col.Name] = defaultValue
			}
			return ds, nil
		},
	}
}

// DeriveColumn appends a new column computed per row.
// The derive function sees the row as it stands and returns the new value.
func DeriveColumn(col models.Column, derive func(models.Row) (any, error)) Transform {
	return Transform{
		Name: "derive_" + col.Name,
		Apply: func(ds *models.Dataset) (*models.Dataset, error) {
			if ds.HasColumn(col.Name) {
				return nil, fmt.Errorf("column %q already exists", col.Name)
			}
			ds.Columns = append(ds.Columns, col)
			for i, row := range ds.Rows {
				v, err := derive(row)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
				row[col.Name] = v
			}
			return ds, nil
		},
	}
}
