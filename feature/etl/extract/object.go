package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"assessment-sync/core/storage"
	"assessment-sync/feature/etl/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectExtractor extracts datasets from CSV exports in object storage.
// Counties without a direct database link drop nightly exports into the
// bucket; Request.Query names the object. The header row provides the
// columns. Values stay text except the timestamp column, which is parsed;
// empty cells become nil.
type ObjectExtractor struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewObjectExtractor creates a CSV extractor over the given bucket.
func NewObjectExtractor(client storage.Client, bucket string, logger *zap.Logger) *ObjectExtractor {
	return &ObjectExtractor{client: client, bucket: bucket, logger: logger}
}

// Extract streams the object and parses it into a dataset.
// Pushdown is not supported for CSV exports; filtering stays with the
// incremental manager.
func (e *ObjectExtractor) Extract(ctx context.Context, req Request) (*models.Dataset, error) {
	exists, err := e.client.BucketExists(ctx, e.bucket)
	if err != nil {
		return nil, models.NewConnectionError(req.Table, err)
	}
	if !exists {
		return nil, models.NewConnectionError(req.Table, fmt.Errorf("bucket %q does not exist", e.bucket))
	}

	// A query ending in "/" names a prefix; resolve it to the newest
	// export under it. Counties drop timestamped files into one folder.
	object := req.Query
	if strings.HasSuffix(object, "/") {
		object, err = e.latestExport(ctx, req.Table, object)
		if err != nil {
			return nil, err
		}
		e.logger.Info("Resolved export prefix",
			zap.String("table", req.Table),
			zap.String("prefix", req.Query),
			zap.String("object", object))
	}

	obj, err := e.client.GetObject(ctx, e.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, models.NewConnectionError(req.Table, err)
	}
	defer obj.Close()

	start := time.Now()
	reader := csv.NewReader(obj)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, models.NewQueryError(req.Table, fmt.Errorf("failed to read header of %s: %w", object, err))
	}

	columns := make([]models.Column, 0, len(header))
	for _, name := range header {
		colType := models.ColumnText
		if name == req.TimestampColumn {
			colType = models.ColumnTimestamp
		}
		columns = append(columns, models.Column{Name: name, Type: colType})
	}

	ds := models.NewDataset(columns...)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, models.NewQueryError(req.Table, fmt.Errorf("failed to read %s line %d: %w", object, line, err))
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			if i >= len(record) || record[i] == "" {
				row[col.Name] = nil
				continue
			}
			if col.Type == models.ColumnTimestamp {
				ts, ok := models.TimeValue(record[i])
				if !ok {
					return nil, models.NewQueryError(req.Table,
						fmt.Errorf("%s line %d: %q is not a timestamp", object, line, record[i]))
				}
				row[col.Name] = ts
				continue
			}
			row[col.Name] = record[i]
		}
		ds.AppendRow(row)
	}

	e.logger.Info("Extracted dataset from object storage",
		zap.String("table", req.Table),
		zap.String("object", object),
		zap.Int("rows", len(ds.Rows)),
		zap.Duration("duration", time.Since(start)))
	return ds, nil
}

// latestExport returns the key of the most recently modified object under the
// prefix.
func (e *ObjectExtractor) latestExport(ctx context.Context, table, prefix string) (string, error) {
	var (
		newest   string
		modified time.Time
	)
	for info := range e.client.ListObjects(ctx, e.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return "", models.NewConnectionError(table, info.Err)
		}
		if newest == "" || info.LastModified.After(modified) {
			newest = info.Key
			modified = info.LastModified
		}
	}
	if newest == "" {
		return "", models.NewQueryError(table, fmt.Errorf("no exports found under prefix %q", prefix))
	}
	return newest, nil
}
