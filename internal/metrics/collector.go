package metrics

import (
	"time"

	"framefolio/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds point-in-time counts sampled by the collector.
type Stats struct {
	ActiveJobs          int
	AwaitingDuplicate   int
	AwaitingPositioning int
	LibraryImages       int
	OpenDBConnections   int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	IngestJobsActive.Set(float64(stats.ActiveJobs))
	IngestFilesAwaiting.WithLabelValues("duplicate").Set(float64(stats.AwaitingDuplicate))
	IngestFilesAwaiting.WithLabelValues("positioning").Set(float64(stats.AwaitingPositioning))
	IngestLibraryImages.Set(float64(stats.LibraryImages))
	DBConnectionsOpen.Set(float64(stats.OpenDBConnections))

	logging.Debug("Metrics collected: active_jobs=%d, awaiting=%d/%d, library_images=%d",
		stats.ActiveJobs, stats.AwaitingDuplicate, stats.AwaitingPositioning, stats.LibraryImages)
}
