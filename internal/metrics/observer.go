package metrics

import "framefolio/internal/filesystem"

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem metrics
// into the Prometheus counters and histograms declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (filesystemObserver) ObserveRetry(operation, volume string, event filesystem.RetryEvent) {
	switch event {
	case filesystem.RetryAttempt:
		FilesystemRetryAttempts.WithLabelValues(operation, volume).Inc()
	case filesystem.RetrySucceeded:
		FilesystemRetrySuccess.WithLabelValues(operation, volume).Inc()
	case filesystem.RetryExhausted:
		FilesystemRetryFailures.WithLabelValues(operation, volume).Inc()
	case filesystem.RetryStale:
		FilesystemStaleErrors.WithLabelValues(operation, volume).Inc()
	}
}

func (filesystemObserver) ObserveRetryDuration(operation, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(operation, volume).Observe(durationSeconds)
}
