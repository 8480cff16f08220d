// FrameFolio is a self-hosted ingestion service for digital photo frames.
//
// Uploaded images are staged, fingerprinted, checked against the library for
// duplicates, classified by geometry and finally written into a library
// folder together with a 3840x2160 frame-ready derivative under
// <folder>/.frameready/. Files that need a human decision (a duplicate, or a
// landscape image too far from 16:9) wait in the job until a client resolves
// them.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: environment variables over an optional YAML file
//  3. Database Initialization: opens the SQLite record store
//  4. Component Initialization:
//     - libvips for derivative export (falls back to pure Go when disabled)
//     - Memory monitor that pauses decodes under heap pressure
//     - Ingest tracker, after sweeping orphaned staging files
//     - Library reconciler, which prunes records whose files were deleted
//     - Metrics collector
//  5. HTTP Server Setup: routes, W3C access logging, Prometheus middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stops the server, drains ingest
//     workers and closes the database
//
// # HTTP API
//
//	POST /api/upload                 multipart "files" + "folder_id", 202 {job_id}
//	GET  /api/upload/{id}            job snapshot
//	POST /api/upload/{id}/duplicate  {filename, action: skip|overwrite|import_anyway}
//	POST /api/upload/{id}/position   {filename, crop: {x,y,w,h}} or {filename, skip: true}
//	GET  /api/jobs                   job summaries, newest first
//	GET  /api/folders                registered library folders
//	POST /api/folders                {path}
//	GET  /api/reconcile              reconciliation progress and last result
//	POST /api/reconcile              start a reconciliation pass
//
// Probes are served on /health, /healthz, /livez and /readyz, build info on
// /version and metrics on /metrics.
//
// # Configuration
//
// See the startup package for every environment variable. The most common:
//
//	LIBRARY_DIR     default library folder (default /library)
//	DATABASE_DIR    SQLite location (default /data)
//	STAGING_DIR     upload staging area (default /data/_staging)
//	PORT            HTTP port (default 8080)
//	INGEST_WORKERS  concurrent file workers (default: auto)
//
// The cmd/ingest tool submits a local directory through the same pipeline
// without the HTTP server.
package main
