package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"assessment-sync/core/config"
	"assessment-sync/core/loader"
	"assessment-sync/core/logger"
	"assessment-sync/core/middleware/auth"
	"assessment-sync/core/middleware/rayid"
	"assessment-sync/core/storage"

	"assessment-sync/feature/etl"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "assessment-sync/docs/swagger"
)

// @title Assessment Sync API
// @version 1.0
// @description API for syncing county assessment data into embedded stores.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the assessment sync server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		if !cfg.Server.IsValidCounty() {
			logg.Warn("Unknown county profile", zap.String("county", cfg.Server.County))
		}
		logg = logg.With(zap.String("county", cfg.Server.County))

		// 3. Initialize Storage (Optional unless a feature needs it)
		// The sync engine only touches the bucket for CSV sources and
		// report archiving; a sql-source deployment runs without it.
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			if cfg.Sync.Source == etl.SourceObject || cfg.Sync.ReportUpload {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			logg.Warn("Optional storage client unavailable", zap.Error(err))
			store = nil
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 5. Initialize Feature Loader
		mgr := loader.NewManager()

		// Register Features
		etlFeature, err := etl.NewFeature(cfg.Sync, cfg.Database, store, cfg.Storage.Bucket, logg)
		if err != nil {
			logg.Fatal("Failed to initialize sync engine", zap.Error(err))
		}
		defer etlFeature.Close()
		mgr.Register(etlFeature)

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			// Log error if happened
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 2.5 Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
