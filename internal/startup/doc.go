// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads environment variables, falling back to an optional YAML
// file named by CONFIG_FILE, then to built-in defaults:
//
//   - LIBRARY_DIR: root registered as the first library folder (default: /library)
//   - STAGING_DIR: where uploads wait before finalization (default: /data/_staging)
//   - DATABASE_DIR: SQLite database directory (default: /data)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_ENABLED: expose /metrics (default: true)
//   - INGEST_WORKERS: concurrent file workers (default: 1.5 per CPU)
//   - MAX_UPLOAD_MB: request body limit for uploads (default: 512)
//   - VIPS_ENABLED: try libvips for derivatives (default: true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: log probe requests (default: false)
//   - LOG_STATUS_POLLS: log GET /api/upload/{id} polls (default: false)
//   - RECONCILE_INTERVAL: library reconciliation period as Go duration, 0 for startup only (default: 1h)
//
// The YAML keys are the lower-case forms of the variables above, for example:
//
//	library_dir: /photos
//	ingest_workers: 4
//	vips_enabled: false
//
// Unknown keys are rejected.
//
// # Directory Setup
//
// The database and staging directories must exist (or be creatable) and be
// writable; startup fails otherwise. A missing library directory is created
// when possible and only logged when not.
package startup
