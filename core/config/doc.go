// Package config provides configuration management for the sync service.
//
// It utilizes Viper for loading configuration from environment variables,
// a .env file, and command-line flags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, county profile)
//   - Database: county source database connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - Sync: embedded store paths, watermark metadata, and per-dataset defaults
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
