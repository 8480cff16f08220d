package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "INGEST_WORKERS"

// Count returns the number of workers for a task type, scaled from
// GOMAXPROCS so container CPU limits are respected.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit caps the result. Use 0 for no limit.
//
// INGEST_WORKERS overrides the calculation (still capped by limit).
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
// Ingest jobs read staged bytes, decode, resample and write, so they use this.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Limiter bounds how many goroutines run a section at once.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter returns a Limiter admitting n holders. n < 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// Cap returns the number of slots.
func (l *Limiter) Cap() int {
	return cap(l.slots)
}

// InUse returns the number of held slots.
func (l *Limiter) InUse() int {
	return len(l.slots)
}
