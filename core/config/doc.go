// Package config provides configuration management for the farm agent.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: optional HTTP status server (port, API key)
//   - Storage: S3/MinIO credentials and bucket
//   - Log: logging level and format
//   - Database: audit database connection
//   - Checkpoint: file or object checkpoint backend
//   - Sink: event stream format and output
//   - Inventory, Audit: the two runners
//   - Poller: outage retry and reset thresholds
//
// Keys map to environment variables by upper-casing and replacing dots with
// underscores, e.g. AUDIT_INTERVAL_SECONDS or SINK_FORMAT.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Audit.Interval())
package config
