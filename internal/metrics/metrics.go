package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framefolio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_db_queries_total",
			Help: "Total number of record store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framefolio_db_query_duration_seconds",
			Help:    "Record store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Ingest job metrics
var (
	IngestJobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_jobs_submitted_total",
			Help: "Total number of upload jobs submitted",
		},
	)

	IngestJobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_jobs_finished_total",
			Help: "Upload jobs whose automatic pass finished, by aggregate status",
		},
		[]string{"status"}, // "complete", "waiting_for_user_action", "error"
	)

	IngestJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_ingest_jobs_active",
			Help: "Number of jobs with a running background task",
		},
	)

	IngestFilesAwaiting = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framefolio_ingest_files_awaiting",
			Help: "Files waiting for a user decision, by reason",
		},
		[]string{"reason"}, // "duplicate", "positioning"
	)

	IngestLibraryImages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_library_images",
			Help: "Number of image records in the library",
		},
	)
)

// Ingest file metrics
var (
	IngestFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_files_total",
			Help: "Files that reached a terminal or awaiting state, by status",
		},
		[]string{"status"},
	)

	IngestStagedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_staged_bytes_total",
			Help: "Total bytes written to the staging area",
		},
	)

	IngestHashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framefolio_ingest_hash_duration_seconds",
			Help:    "Time spent fingerprinting a staged file",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	IngestTransformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framefolio_ingest_transform_duration_seconds",
			Help:    "Time spent producing a frame-ready derivative",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend"}, // "imaging", "vips"
	)

	IngestTransformErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_transform_errors_total",
			Help: "Derivative export failures by backend",
		},
		[]string{"backend"},
	)

	IngestMetadataCopyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_metadata_copy_failures_total",
			Help: "Derivatives written without source metadata after a copy failure",
		},
	)

	IngestResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_resolutions_total",
			Help: "User decisions applied to awaiting files",
		},
		[]string{"kind", "action"},
	)

	IngestStoreInconsistencies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framefolio_ingest_store_inconsistencies_total",
			Help: "Fingerprint matches whose library file no longer exists",
		},
	)
)

// Library reconciliation metrics
var (
	LibraryRecordsChecked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_library_records_checked_total",
			Help: "Image records checked against disk by result",
		},
		[]string{"result"},
	)

	LibraryReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framefolio_library_reconcile_duration_seconds",
			Help:    "Duration of a full library reconciliation pass",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	LibraryLastReconcile = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_library_last_reconcile_timestamp_seconds",
			Help: "Unix time of the last completed reconciliation",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framefolio_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_filesystem_operation_errors_total",
			Help: "Failed filesystem operations by volume",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_filesystem_retry_attempts_total",
			Help: "Retry attempts after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_filesystem_retry_success_total",
			Help: "Operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framefolio_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framefolio_filesystem_retry_duration_seconds",
			Help:    "Total duration of retried filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "framefolio_memory_paused",
			Help: "Whether image decoding is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "framefolio_memory_gc_pauses_total",
			Help: "Times decoding was paused and a GC was forced",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framefolio_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
