package etl

import (
	"assessment-sync/core/logger"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for the ETL engine.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the ETL routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/etl")
	group.Post("/run", h.HandleRun)
	group.Get("/statistics", h.HandleStatistics)
	group.Get("/jobs/last", h.HandleLastJob)
}

// runRequest is the HTTP body for a workflow run. Every field is optional;
// absent fields fall back to the configured defaults.
type runRequest struct {
	Incremental *bool `json:"incremental"`

	StatsQuery           string   `json:"stats_query"`
	StatsTimestampColumn string   `json:"stats_timestamp_column"`
	StatsKeyColumns      []string `json:"stats_key_columns"`

	WorkingQuery           string   `json:"working_query"`
	WorkingTimestampColumn string   `json:"working_timestamp_column"`
	WorkingKeyColumns      []string `json:"working_key_columns"`
}

// HandleRun triggers a full workflow run.
// @Summary Run Sync Workflow
// @Description Run the ETL workflow for the stats and working datasets. Partial failures are reported in the job body, not as an HTTP error.
// @Tags etl
// @Accept json
// @Produce json
// @Param request body runRequest false "Run overrides"
// @Success 200 {object} models.SyncJob "Finished job"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Router /etl/run [post]
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var body runRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body: " + err.Error(),
			})
		}
	}

	req := h.service.DefaultWorkflowRequest()
	if body.Incremental != nil {
		req.Incremental = *body.Incremental
	}
	if body.StatsQuery != "" {
		req.StatsQuery = body.StatsQuery
	}
	if body.StatsTimestampColumn != "" {
		req.StatsTimestampColumn = body.StatsTimestampColumn
	}
	if body.StatsKeyColumns != nil {
		req.StatsKeyColumns = body.StatsKeyColumns
	}
	if body.WorkingQuery != "" {
		req.WorkingQuery = body.WorkingQuery
	}
	if body.WorkingTimestampColumn != "" {
		req.WorkingTimestampColumn = body.WorkingTimestampColumn
	}
	if body.WorkingKeyColumns != nil {
		req.WorkingKeyColumns = body.WorkingKeyColumns
	}

	l.Info("Sync run requested over HTTP")
	job := h.service.RunETLWorkflow(c.Context(), req)
	return c.JSON(job)
}

// HandleStatistics returns the per-table sync statistics.
// @Summary Get Sync Statistics
// @Description Get the per-table watermark and record counters.
// @Tags etl
// @Produce json
// @Success 200 {array} metadata.TableSyncState "Table sync states"
// @Router /etl/statistics [get]
func (h *Handler) HandleStatistics(c *fiber.Ctx) error {
	return c.JSON(h.service.Statistics())
}

// HandleLastJob returns the most recently finished job.
// @Summary Get Last Job
// @Description Get the result of the most recent workflow run in this process.
// @Tags etl
// @Produce json
// @Success 200 {object} models.SyncJob "Last job"
// @Failure 404 {object} map[string]string "No job has run yet"
// @Router /etl/jobs/last [get]
func (h *Handler) HandleLastJob(c *fiber.Ctx) error {
	job := h.service.LastJob()
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no sync job has run yet",
		})
	}
	return c.JSON(job)
}
