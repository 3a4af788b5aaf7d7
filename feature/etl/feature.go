package etl

import (
	"fmt"

	"assessment-sync/core/database"
	"assessment-sync/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the ETL feature.
func NewFeature(cfg Config, source database.Config, client storage.Client, bucket string, logger *zap.Logger) (*Feature, error) {
	svc, err := NewService(cfg, source, client, bucket, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create etl service: %w", err)
	}
	return &Feature{service: svc, handler: NewHandler(svc)}, nil
}

// Service exposes the underlying service, for CLI commands that drive the
// engine without the HTTP layer.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "etl"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Close releases the feature's embedded stores.
func (f *Feature) Close() error {
	return f.service.Close()
}
