package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"assessment-sync/core/database"
	"assessment-sync/core/storage/mocks"
	"assessment-sync/feature/etl/extract"
	"assessment-sync/feature/etl/models"
	"assessment-sync/feature/etl/transform"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubExtractor serves canned datasets per table, standing in for the county
// source.
type stubExtractor struct {
	datasets map[string]*models.Dataset
	errs     map[string]error
}

func (s *stubExtractor) Extract(_ context.Context, req extract.Request) (*models.Dataset, error) {
	if err := s.errs[req.Table]; err != nil {
		return nil, err
	}
	ds := s.datasets[req.Table]
	if ds == nil {
		return models.NewDataset(), nil
	}
	return ds.Clone(), nil
}

func newTestService(t *testing.T) (*Service, *stubExtractor) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		StatsPath:              filepath.Join(dir, "stats.db"),
		WorkingPath:            filepath.Join(dir, "working.db"),
		MetadataPath:           filepath.Join(dir, "sync_metadata.json"),
		Source:                 SourceSQL,
		Incremental:            true,
		StatsQuery:             "SELECT * FROM parcels",
		WorkingQuery:           "SELECT * FROM parcels",
		StatsTimestampColumn:   "updated_at",
		WorkingTimestampColumn: "updated_at",
		StatsTable:             "assessment_stats",
		WorkingTable:           "assessment_working",
		StatsKeyColumns:        "parcel_id",
		WorkingKeyColumns:      "parcel_id",
	}

	svc, err := NewService(cfg, database.Config{}, nil, "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	stub := &stubExtractor{
		datasets: make(map[string]*models.Dataset),
		errs:     make(map[string]error),
	}
	svc.extractor = stub
	return svc, stub
}

func parcelDataset(rows ...models.Row) *models.Dataset {
	ds := models.NewDataset(
		models.Column{Name: "parcel_id", Type: models.ColumnInteger},
		models.Column{Name: "assessed_value", Type: models.ColumnReal},
		models.Column{Name: "updated_at", Type: models.ColumnTimestamp},
	)
	for _, r := range rows {
		ds.AppendRow(r)
	}
	return ds
}

func parcel(id int64, value float64, ts time.Time) models.Row {
	return models.Row{"parcel_id": id, "assessed_value": value, "updated_at": ts}
}

func TestRunETLWorkflow(t *testing.T) {
	svc, stub := newTestService(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	initial := parcelDataset(
		parcel(1, 250000, ts(1)),
		parcel(2, 310000, ts(2)),
		parcel(3, 180000, ts(3)),
	)
	stub.datasets["assessment_stats"] = initial
	stub.datasets["assessment_working"] = initial.Clone()

	t.Run("First run loads everything and sets the watermark", func(t *testing.T) {
		job := svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
		require.True(t, job.Success)
		assert.NotEmpty(t, job.JobID)
		require.Len(t, job.Datasets, 2)

		for _, table := range []string{"assessment_stats", "assessment_working"} {
			result, ok := job.Result(table)
			require.True(t, ok, table)
			assert.Equal(t, models.StageCommitted, result.Stage)
			assert.Equal(t, 3, result.RowsExtracted)
			assert.Equal(t, 3, result.RowsProcessed)
			assert.Equal(t, 3, result.RowsInserted)
			assert.Equal(t, 0, result.RowsUpdated)
			assert.True(t, result.Watermark.Equal(ts(3)))
		}

		n, err := svc.StatsRowCount("assessment_stats")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("Incremental run merges only changed rows", func(t *testing.T) {
		// Parcel 1 reassessed, parcel 4 is new; 2 and 3 are untouched.
		changed := parcelDataset(
			parcel(1, 275000, ts(5)),
			parcel(2, 310000, ts(2)),
			parcel(3, 180000, ts(3)),
			parcel(4, 420000, ts(4)),
		)
		stub.datasets["assessment_stats"] = changed
		stub.datasets["assessment_working"] = changed.Clone()

		job := svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
		require.True(t, job.Success)

		result, ok := job.Result("assessment_working")
		require.True(t, ok)
		assert.Equal(t, 4, result.RowsExtracted)
		assert.Equal(t, 2, result.RowsProcessed)
		assert.Equal(t, 1, result.RowsInserted)
		assert.Equal(t, 1, result.RowsUpdated)
		assert.True(t, result.Watermark.Equal(ts(5)))

		n, err := svc.WorkingRowCount("assessment_working")
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
	})

	t.Run("Re-running the same extraction changes nothing", func(t *testing.T) {
		job := svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
		require.True(t, job.Success)

		result, ok := job.Result("assessment_stats")
		require.True(t, ok)
		assert.Equal(t, 0, result.RowsProcessed)
		assert.Equal(t, 0, result.RowsInserted)
		assert.Equal(t, 0, result.RowsUpdated)
		// Zero changed rows leaves the watermark untouched.
		assert.True(t, result.Watermark.Equal(ts(5)))

		n, err := svc.StatsRowCount("assessment_stats")
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
	})

	t.Run("Statistics accumulate across runs", func(t *testing.T) {
		stats := svc.Statistics()
		require.Len(t, stats, 2)
		assert.Equal(t, "assessment_stats", stats[0].TableName)
		assert.EqualValues(t, 4, stats[0].InsertedCount)
		assert.EqualValues(t, 1, stats[0].UpdatedCount)
		assert.True(t, stats[0].LastSyncTime.Equal(ts(5)))
	})

	t.Run("LastJob returns the most recent run", func(t *testing.T) {
		last := svc.LastJob()
		require.NotNil(t, last)
		assert.True(t, last.Success)
	})
}

func TestRunETLWorkflow_PartialFailure(t *testing.T) {
	svc, stub := newTestService(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	stub.errs["assessment_stats"] = models.NewConnectionError("assessment_stats",
		fmt.Errorf("dial tcp: connection refused"))
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))

	job := svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
	assert.False(t, job.Success)
	require.Len(t, job.Errors, 1)

	// The stats failure never blocks the working dataset.
	statsResult, _ := job.Result("assessment_stats")
	assert.Equal(t, models.StageFailed, statsResult.Stage)
	assert.Equal(t, models.ErrKindConnection, statsResult.ErrorKind)
	assert.True(t, statsResult.Watermark.IsZero())

	workingResult, _ := job.Result("assessment_working")
	assert.Equal(t, models.StageCommitted, workingResult.Stage)
	assert.Equal(t, 1, workingResult.RowsInserted)

	// A later run recovers the failed dataset from its stale watermark.
	delete(stub.errs, "assessment_stats")
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))

	job = svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
	assert.True(t, job.Success)
	statsResult, _ = job.Result("assessment_stats")
	assert.Equal(t, 1, statsResult.RowsInserted)
	assert.True(t, statsResult.Watermark.Equal(ts))
}

func TestRunETLWorkflow_ConfigErrors(t *testing.T) {
	svc, stub := newTestService(t)
	stub.datasets["assessment_working"] = parcelDataset()

	t.Run("Missing query", func(t *testing.T) {
		req := svc.DefaultWorkflowRequest()
		req.StatsQuery = ""
		job := svc.RunETLWorkflow(context.Background(), req)

		result, _ := job.Result("assessment_stats")
		assert.Equal(t, models.StageFailed, result.Stage)
		assert.Equal(t, models.ErrKindConfig, result.ErrorKind)
	})

	t.Run("Incremental without timestamp column", func(t *testing.T) {
		req := svc.DefaultWorkflowRequest()
		req.WorkingTimestampColumn = ""
		job := svc.RunETLWorkflow(context.Background(), req)

		result, _ := job.Result("assessment_working")
		assert.Equal(t, models.StageFailed, result.Stage)
		assert.Equal(t, models.ErrKindConfig, result.ErrorKind)
	})
}

func TestRunETLWorkflow_Transforms(t *testing.T) {
	svc, stub := newTestService(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))

	req := svc.DefaultWorkflowRequest()
	req.StatsTransforms = []transform.Transform{
		transform.DeriveColumn(
			models.Column{Name: "value_band", Type: models.ColumnText},
			func(row models.Row) (any, error) {
				if v, ok := row["assessed_value"].(float64); ok && v >= 200000 {
					return "high", nil
				}
				return "low", nil
			},
		),
	}
	req.WorkingTransforms = []transform.Transform{
		transform.DropColumn("does_not_exist"),
	}

	job := svc.RunETLWorkflow(context.Background(), req)
	assert.False(t, job.Success)

	// The derive ran and the stats dataset committed.
	statsResult, _ := job.Result("assessment_stats")
	assert.Equal(t, models.StageCommitted, statsResult.Stage)

	// The bad drop failed only the working dataset, classified as a
	// transformation error naming the failing step.
	workingResult, _ := job.Result("assessment_working")
	assert.Equal(t, models.StageFailed, workingResult.Stage)
	assert.Equal(t, models.ErrKindTransformation, workingResult.ErrorKind)
	assert.Contains(t, workingResult.Error, "transform[0]")
}

func TestRunETLWorkflow_FullRunReplaces(t *testing.T) {
	svc, stub := newTestService(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	stub.datasets["assessment_stats"] = parcelDataset(
		parcel(1, 250000, base.Add(time.Hour)),
		parcel(2, 310000, base.Add(2*time.Hour)),
	)
	stub.datasets["assessment_working"] = parcelDataset(
		parcel(1, 250000, base.Add(time.Hour)),
	)

	job := svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
	require.True(t, job.Success)

	// A forced full run rebuilds the tables from scratch even though the
	// watermark would have filtered everything out.
	req := svc.DefaultWorkflowRequest()
	req.Incremental = false
	job = svc.RunETLWorkflow(context.Background(), req)
	require.True(t, job.Success)

	result, _ := job.Result("assessment_stats")
	assert.Equal(t, 2, result.RowsProcessed)
	assert.Equal(t, 2, result.RowsInserted)

	n, err := svc.StatsRowCount("assessment_stats")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRunETLWorkflow_ReportUpload(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		StatsPath:              filepath.Join(dir, "stats.db"),
		WorkingPath:            filepath.Join(dir, "working.db"),
		MetadataPath:           filepath.Join(dir, "sync_metadata.json"),
		Source:                 SourceSQL,
		Incremental:            true,
		ReportUpload:           true,
		StatsQuery:             "SELECT * FROM parcels",
		WorkingQuery:           "SELECT * FROM parcels",
		StatsTimestampColumn:   "updated_at",
		WorkingTimestampColumn: "updated_at",
		StatsTable:             "assessment_stats",
		WorkingTable:           "assessment_working",
		StatsKeyColumns:        "parcel_id",
		WorkingKeyColumns:      "parcel_id",
	}

	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "county-exports").Return(true, nil)
	client.On("PutObject", mock.Anything, "county-exports",
		mock.MatchedBy(func(name string) bool { return strings.HasPrefix(name, "reports/sync-") }),
		mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	svc, err := NewService(cfg, database.Config{}, client, "county-exports", zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	stub := &stubExtractor{
		datasets: make(map[string]*models.Dataset),
		errs:     make(map[string]error),
	}
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))
	svc.extractor = stub

	job := svc.RunETLWorkflow(context.Background(), svc.DefaultWorkflowRequest())
	require.True(t, job.Success)
	client.AssertExpectations(t)
}

func TestServicePipelineSteps(t *testing.T) {
	svc, stub := newTestService(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))

	ds, err := svc.ExtractData(context.Background(), "SELECT * FROM parcels", "updated_at", "assessment_stats")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	out, err := svc.TransformData(ds, []transform.Transform{
		transform.RenameColumn("assessed_value", "value"),
	}, "assessment_stats")
	require.NoError(t, err)
	assert.True(t, out.HasColumn("value"))
	assert.True(t, ds.HasColumn("assessed_value"))

	lr, err := svc.LoadStatsData(out, false, []string{"parcel_id"})
	require.NoError(t, err)
	assert.Equal(t, 1, lr.RowsInserted)
}
