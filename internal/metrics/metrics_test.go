package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"framefolio/internal/filesystem"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBConnectionsOpen", DBConnectionsOpen},
		{"IngestJobsSubmitted", IngestJobsSubmitted},
		{"IngestJobsFinished", IngestJobsFinished},
		{"IngestJobsActive", IngestJobsActive},
		{"IngestFilesAwaiting", IngestFilesAwaiting},
		{"IngestFilesTotal", IngestFilesTotal},
		{"IngestTransformDuration", IngestTransformDuration},
		{"IngestResolutionsTotal", IngestResolutionsTotal},
		{"IngestStoreInconsistencies", IngestStoreInconsistencies},
		{"LibraryRecordsChecked", LibraryRecordsChecked},
		{"LibraryReconcileDuration", LibraryReconcileDuration},
		{"LibraryLastReconcile", LibraryLastReconcile},
		{"FilesystemOperationDuration", FilesystemOperationDuration},
		{"FilesystemRetryAttempts", FilesystemRetryAttempts},
		{"MemoryUsageRatio", MemoryUsageRatio},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(IngestFilesTotal); n < 6 {
		t.Errorf("IngestFilesTotal series = %d, want at least 6", n)
	}
	if n := testutil.CollectAndCount(IngestResolutionsTotal); n < 5 {
		t.Errorf("IngestResolutionsTotal series = %d, want at least 5", n)
	}
	if n := testutil.CollectAndCount(DBQueryTotal); n < 24 {
		t.Errorf("DBQueryTotal series = %d, want at least 24", n)
	}

	// Calling twice must not panic or reset anything.
	InitializeMetrics()
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	errsBefore := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("staging", "rename"))
	obs.ObserveOperation("staging", "rename", 0.01, nil)
	obs.ObserveOperation("staging", "rename", 0.01, errors.New("boom"))
	if got := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("staging", "rename")); got != errsBefore+1 {
		t.Errorf("operation errors = %v, want %v", got, errsBefore+1)
	}

	events := []struct {
		name  string
		event filesystem.RetryEvent
		value func() float64
	}{
		{"attempt", filesystem.RetryAttempt, func() float64 {
			return testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("stat", "library"))
		}},
		{"succeeded", filesystem.RetrySucceeded, func() float64 {
			return testutil.ToFloat64(FilesystemRetrySuccess.WithLabelValues("stat", "library"))
		}},
		{"exhausted", filesystem.RetryExhausted, func() float64 {
			return testutil.ToFloat64(FilesystemRetryFailures.WithLabelValues("stat", "library"))
		}},
		{"stale", filesystem.RetryStale, func() float64 {
			return testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "library"))
		}},
	}

	for _, tt := range events {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.value()
			obs.ObserveRetry("stat", "library", tt.event)
			if got := tt.value(); got != before+1 {
				t.Errorf("counter = %v, want %v", got, before+1)
			}
		})
	}
}
