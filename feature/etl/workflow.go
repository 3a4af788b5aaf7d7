package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"assessment-sync/feature/etl/extract"
	"assessment-sync/feature/etl/models"
	"assessment-sync/feature/etl/transform"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// WorkflowRequest describes one full workflow run. Zero-valued fields fall
// back to the configured defaults; transforms are only reachable through the
// programmatic API.
type WorkflowRequest struct {
	Incremental bool

	StatsQuery           string
	StatsTimestampColumn string
	StatsKeyColumns      []string
	StatsTransforms      []transform.Transform

	WorkingQuery           string
	WorkingTimestampColumn string
	WorkingKeyColumns      []string
	WorkingTransforms      []transform.Transform
}

// DefaultWorkflowRequest builds a request from the configured per-dataset
// defaults.
func (s *Service) DefaultWorkflowRequest() WorkflowRequest {
	return WorkflowRequest{
		Incremental:            s.cfg.Incremental,
		StatsQuery:             s.cfg.StatsQuery,
		StatsTimestampColumn:   s.cfg.StatsTimestampColumn,
		StatsKeyColumns:        SplitColumns(s.cfg.StatsKeyColumns),
		WorkingQuery:           s.cfg.WorkingQuery,
		WorkingTimestampColumn: s.cfg.WorkingTimestampColumn,
		WorkingKeyColumns:      SplitColumns(s.cfg.WorkingKeyColumns),
	}
}

// datasetSpec is the resolved plan for one dataset within a run.
type datasetSpec struct {
	name            string
	query           string
	table           string
	timestampColumn string
	keyColumns      []string
	transforms      []transform.Transform
	incremental     bool
	load            func(*models.Dataset, bool, []string) (models.LoadResult, error)
}

// RunETLWorkflow runs the full pipeline for both datasets. The stats and
// working datasets are processed independently: a failure in one is recorded
// on its result and never blocks the other. The returned job is also kept as
// LastJob.
func (s *Service) RunETLWorkflow(ctx context.Context, req WorkflowRequest) *models.SyncJob {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	job := &models.SyncJob{
		JobID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	s.logger.Info("Starting sync job",
		zap.String("job_id", job.JobID),
		zap.Bool("incremental", req.Incremental))

	specs := []datasetSpec{
		{
			name:            "stats",
			query:           req.StatsQuery,
			table:           s.cfg.StatsTable,
			timestampColumn: req.StatsTimestampColumn,
			keyColumns:      req.StatsKeyColumns,
			transforms:      req.StatsTransforms,
			incremental:     req.Incremental,
			load:            s.LoadStatsData,
		},
		{
			name:            "working",
			query:           req.WorkingQuery,
			table:           s.cfg.WorkingTable,
			timestampColumn: req.WorkingTimestampColumn,
			keyColumns:      req.WorkingKeyColumns,
			transforms:      req.WorkingTransforms,
			incremental:     req.Incremental,
			load:            s.LoadWorkingData,
		},
	}

	job.Success = true
	for _, spec := range specs {
		result := s.runDataset(ctx, job.JobID, spec)
		job.Datasets = append(job.Datasets, result)
		if !result.Committed() {
			job.Success = false
			job.Errors = append(job.Errors, fmt.Sprintf("%s: %s", spec.name, result.Error))
		}
	}
	job.FinishedAt = time.Now().UTC()

	s.logger.Info("Sync job finished",
		zap.String("job_id", job.JobID),
		zap.Bool("success", job.Success),
		zap.Duration("duration", job.FinishedAt.Sub(job.StartedAt)))

	s.mu.Lock()
	s.lastJob = job
	s.mu.Unlock()

	if s.cfg.ReportUpload {
		s.uploadJobReport(ctx, job)
	}
	return job
}

// runDataset drives one dataset through the stage machine. Any step error
// finalizes the result as failed with the error's classification; the
// watermark only moves after the load step committed.
func (s *Service) runDataset(ctx context.Context, jobID string, spec datasetSpec) models.DatasetResult {
	result := models.DatasetResult{
		Table:     spec.table,
		Stage:     models.StageCreated,
		Watermark: s.meta.LastSyncTime(spec.table),
	}
	fail := func(err error) models.DatasetResult {
		result.Stage = models.StageFailed
		result.Error = err.Error()
		result.ErrorKind = models.KindOf(err)
		s.logger.Error("Dataset sync failed",
			zap.String("job_id", jobID),
			zap.String("table", spec.table),
			zap.String("kind", string(result.ErrorKind)),
			zap.Error(err))
		return result
	}

	if spec.query == "" {
		return fail(models.NewConfigError(spec.table, "no query configured"))
	}
	if spec.incremental && spec.timestampColumn == "" {
		return fail(models.NewConfigError(spec.table, "incremental sync requires a timestamp column"))
	}

	result.Stage = models.StageExtracting
	ds, err := s.extractor.Extract(ctx, extract.Request{
		Query:           spec.query,
		Table:           spec.table,
		TimestampColumn: spec.timestampColumn,
		Watermark:       s.meta.LastSyncTime(spec.table),
		Pushdown:        s.cfg.Pushdown && spec.incremental,
	})
	if err != nil {
		return fail(err)
	}
	result.RowsExtracted = len(ds.Rows)

	if spec.incremental {
		result.Stage = models.StageFiltering
		ds, err = s.inc.FilterChangedRecords(ds, spec.timestampColumn, spec.table)
		if err != nil {
			return fail(err)
		}
		if len(spec.keyColumns) > 0 {
			ids, idErr := s.inc.ChangedRecordIDs(ds, spec.timestampColumn, spec.keyColumns[0], spec.table)
			if idErr == nil {
				s.logger.Debug("Changed records",
					zap.String("table", spec.table),
					zap.String("id_column", spec.keyColumns[0]),
					zap.Any("ids", ids))
			}
		}
	}
	result.RowsProcessed = len(ds.Rows)

	result.Stage = models.StageTransforming
	ds, err = transform.Apply(ds, spec.transforms, spec.table)
	if err != nil {
		return fail(err)
	}

	result.Stage = models.StageLoading
	lr, err := spec.load(ds, spec.incremental, spec.keyColumns)
	if err != nil {
		return fail(err)
	}
	result.RowsInserted = lr.RowsInserted
	result.RowsUpdated = lr.RowsUpdated

	// Load committed. Advance the watermark to the newest timestamp among
	// the loaded rows; zero rows leaves it untouched. A persist failure
	// fails the dataset even though data landed: the merge load is
	// idempotent, so a retry with the stale watermark is safe.
	if spec.timestampColumn != "" {
		if maxTs, ok := ds.MaxTime(spec.timestampColumn); ok {
			if err := s.meta.UpdateSyncTime(spec.table, jobID, maxTs); err != nil {
				return fail(models.NewMetadataCorruptionError(spec.table, err))
			}
		}
	}
	if err := s.meta.UpdateRecordCounts(spec.table, lr.RowsInserted, lr.RowsUpdated); err != nil {
		return fail(models.NewMetadataCorruptionError(spec.table, err))
	}

	result.Stage = models.StageCommitted
	result.Watermark = s.meta.LastSyncTime(spec.table)
	s.logger.Info("Dataset committed",
		zap.String("job_id", jobID),
		zap.String("table", spec.table),
		zap.Int("rows_extracted", result.RowsExtracted),
		zap.Int("rows_processed", result.RowsProcessed),
		zap.Int("rows_inserted", result.RowsInserted),
		zap.Int("rows_updated", result.RowsUpdated),
		zap.Time("watermark", result.Watermark))
	return result
}

// uploadJobReport archives the finished job as JSON in the storage bucket.
// Upload failures are logged and swallowed; reporting never fails a job.
func (s *Service) uploadJobReport(ctx context.Context, job *models.SyncJob) {
	if s.client == nil {
		s.logger.Warn("Report upload enabled but no storage client configured")
		return
	}

	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal job report", zap.Error(err))
		return
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	if err != nil {
		s.logger.Error("Failed to prepare report bucket",
			zap.String("bucket", s.bucket),
			zap.Error(err))
		return
	}

	object := fmt.Sprintf("reports/sync-%s.json", job.JobID)
	_, err = s.client.PutObject(ctx, s.bucket, object,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		s.logger.Error("Failed to upload job report",
			zap.String("object", object),
			zap.Error(err))
		return
	}
	s.logger.Info("Uploaded job report", zap.String("object", object))
}
