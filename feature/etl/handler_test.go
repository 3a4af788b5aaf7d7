package etl

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"assessment-sync/feature/etl/metadata"
	"assessment-sync/feature/etl/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *stubExtractor) {
	t.Helper()
	svc, stub := newTestService(t)
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app, stub
}

func TestHandleRun(t *testing.T) {
	app, stub := newTestApp(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))

	req := httptest.NewRequest("POST", "/etl/run", strings.NewReader(`{"incremental": false}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var job models.SyncJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.True(t, job.Success)
	assert.Len(t, job.Datasets, 2)
}

func TestHandleRun_PartialFailureStillOK(t *testing.T) {
	app, stub := newTestApp(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))
	stub.errs["assessment_stats"] = models.NewQueryError("assessment_stats", io.ErrUnexpectedEOF)

	// Partial failure is a reportable job outcome, not an HTTP error.
	req := httptest.NewRequest("POST", "/etl/run", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var job models.SyncJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.False(t, job.Success)
	require.Len(t, job.Errors, 1)
}

func TestHandleRun_BadBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/etl/run", strings.NewReader(`{"incremental":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStatistics(t *testing.T) {
	app, stub := newTestApp(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))

	runReq := httptest.NewRequest("POST", "/etl/run", nil)
	_, err := app.Test(runReq, -1)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/etl/statistics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats []metadata.TableSyncState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "assessment_stats", stats[0].TableName)
	assert.True(t, stats[0].LastSyncTime.Equal(ts))
}

func TestHandleLastJob(t *testing.T) {
	app, stub := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/etl/jobs/last", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stub.datasets["assessment_stats"] = parcelDataset(parcel(1, 250000, ts))
	stub.datasets["assessment_working"] = parcelDataset(parcel(1, 250000, ts))
	_, err = app.Test(httptest.NewRequest("POST", "/etl/run", nil), -1)
	require.NoError(t, err)

	resp, err = app.Test(httptest.NewRequest("GET", "/etl/jobs/last", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var job models.SyncJob
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.True(t, job.Success)
}
