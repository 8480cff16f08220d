package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"framefolio/internal/logging"
	"framefolio/internal/metrics"
)

// Config controls when ingest work pauses for memory.
type Config struct {
	// LimitBytes is the soft limit. 0 uses GOMEMLIMIT, and no limit disables the monitor.
	LimitBytes int64
	// PauseAt is the usage ratio at which new decodes wait.
	PauseAt float64
	// ResumeAt is the usage ratio below which waiting decodes continue.
	ResumeAt float64
	// Interval is the sampling period.
	Interval time.Duration
}

// DefaultConfig returns the thresholds used by the server.
func DefaultConfig() Config {
	return Config{
		PauseAt:  0.85,
		ResumeAt: 0.70,
		Interval: 2 * time.Second,
	}
}

// Monitor samples heap usage and holds back image decodes while usage is
// above the pause threshold. A 3840x2160 RGBA raster is about 33 MB, so a
// burst of large uploads can exhaust a small container quickly.
type Monitor struct {
	config Config
	limit  int64
	sample func() uint64

	mu      sync.Mutex
	alloc   uint64
	paused  bool
	resumed chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMonitor creates a monitor. It does nothing until Start.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Warn("Memory monitor: no memory limit configured, ingest backpressure disabled")
	} else {
		logging.Info("Memory monitor: limit %s, pause at %.0f%%, resume below %.0f%%",
			FormatBytes(limit), config.PauseAt*100, config.ResumeAt*100)
	}

	return &Monitor{
		config:  config,
		limit:   limit,
		sample:  readHeapAlloc,
		resumed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

func readHeapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases every waiter.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) check() {
	alloc := m.sample()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.alloc = alloc

	switch {
	case !m.paused && usage >= m.config.PauseAt:
		logging.Warn("Memory at %.1f%% of limit, pausing image decodes", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case m.paused && usage < m.config.ResumeAt:
		logging.Info("Memory at %.1f%% of limit, resuming image decodes", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resumed)
		m.resumed = make(chan struct{})
	}
}

// WaitIfPaused returns immediately unless decodes are paused, in which case it
// blocks until usage recovers, the monitor stops, or ctx is done.
// A nil Monitor never blocks.
func (m *Monitor) WaitIfPaused(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resumed := m.resumed
	m.mu.Unlock()

	logging.Debug("Waiting for memory pressure to ease")
	select {
	case <-resumed:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether decodes are currently held back.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Usage returns the last sampled heap usage as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.alloc) / float64(m.limit)
}
