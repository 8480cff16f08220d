// Package metrics provides Prometheus instrumentation for FrameFolio.
//
// All metrics are prefixed with "framefolio_" and registered with the default
// registry through promauto, so importing the package is enough to expose them
// on /metrics.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, path and status
//   - HTTPRequestDuration: request latency by method and path
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Database Metrics
//
//   - DBQueryTotal: record store queries by operation and status
//   - DBQueryDuration: record store latency by operation
//   - DBConnectionsOpen: open SQLite connections
//
// ## Ingest Metrics
//
//   - IngestJobsSubmitted / IngestJobsFinished: job lifecycle
//   - IngestJobsActive: jobs not yet complete or errored
//   - IngestFilesAwaiting: files waiting on a duplicate or positioning decision
//   - IngestFilesTotal: files reaching each terminal status
//   - IngestHashDuration / IngestTransformDuration: per-stage latency
//   - IngestResolutionsTotal: user decisions by kind and action
//   - IngestStoreInconsistencies: records whose file vanished from disk
//
// ## Library Metrics
//
//   - LibraryRecordsChecked: reconciled records by result
//   - LibraryReconcileDuration / LibraryLastReconcile: pass timing
//
// ## Filesystem Metrics
//
// Recorded through filesystem.Observer. Volumes are "library", "staging" and
// "database".
//
// ## Memory Metrics
//
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses
//
// # Collector
//
// Gauges that reflect current state (active jobs, awaiting files, library
// size) are sampled by a Collector from a StatsProvider:
//
//	collector := metrics.NewCollector(provider, 30*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// Call InitializeMetrics once at startup so every known label combination is
// exported with a zero value before the first event.
package metrics
