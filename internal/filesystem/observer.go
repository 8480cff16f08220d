package filesystem

// RetryEvent identifies a step of a retried operation.
type RetryEvent int

const (
	// RetryStale is recorded for every ESTALE error seen.
	RetryStale RetryEvent = iota
	// RetryAttempt is recorded before sleeping and trying again.
	RetryAttempt
	// RetrySucceeded is recorded when an operation succeeds after at least one retry.
	RetrySucceeded
	// RetryExhausted is recorded when all retries failed.
	RetryExhausted
)

// Observer records filesystem operation metrics. Implementations are provided
// by the metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for a filesystem operation.
	// volume is the resolved mount label ("library", "staging", "database").
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// ObserveRetry records one retry event for operation ("stat", "open", "rename").
	ObserveRetry(operation, volume string, event RetryEvent)

	// ObserveRetryDuration records the total time spent in a retried operation.
	ObserveRetryDuration(operation, volume string, durationSeconds float64)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, float64, error) {}
func (nopObserver) ObserveRetry(string, string, RetryEvent)         {}
func (nopObserver) ObserveRetryDuration(string, string, float64)    {}

func observe() Observer {
	if defaultObserver == nil {
		return nopObserver{}
	}
	return defaultObserver
}
