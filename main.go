package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"framefolio/internal/database"
	"framefolio/internal/filesystem"
	"framefolio/internal/handlers"
	"framefolio/internal/indexer"
	"framefolio/internal/ingest"
	"framefolio/internal/logging"
	"framefolio/internal/media"
	"framefolio/internal/memory"
	"framefolio/internal/metrics"
	"framefolio/internal/middleware"
	"framefolio/internal/startup"
)

func main() {
	startTime := time.Now()

	// Memory limits come first so GOMEMLIMIT is in place before any decode.
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"staging":  config.StagingDir,
		"database": config.DatabaseDir,
	}))

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	if _, err := db.AddFolder(context.Background(), config.LibraryDir); err != nil {
		logging.Warn("Could not register library folder %s: %v", config.LibraryDir, err)
	}

	if config.VipsEnabled {
		startup.LogVipsInit(true, media.InitVips())
	} else {
		startup.LogVipsInit(false, nil)
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	tracker, err := ingest.NewTracker(ingest.Config{
		Store:       db,
		Codec:       media.Codec{},
		Transformer: media.NewTransformer(),
		StagingDir:  config.StagingDir,
		Workers:     config.IngestWorkers,
		Memory:      monitor,
	})
	if err != nil {
		startup.LogFatal("Failed to initialize ingest tracker: %v", err)
	}
	// Jobs live in memory only, so anything staged before this start is orphaned.
	swept, err := tracker.Staging().Sweep(startTime)
	if err != nil {
		logging.Warn("Staging sweep failed: %v", err)
	}
	startup.LogTrackerInit(config.StagingDir, swept)

	idx := indexer.New(db, config.ReconcileInterval)
	idx.Start()

	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(&statsAdapter{tracker: tracker, db: db}, 30*time.Second)
		collector.Start()
	}

	h := handlers.New(tracker, db, config)
	h.SetReconciler(idx)
	router := setupRouter(h, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks, config.LogStatusPolls)

	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggingConfig.LogStatusPolls = config.LogStatusPolls
	handler = middleware.Logger(loggingConfig)(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // uploads of many large files can take minutes
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go handleShutdown(srv, shutdownDeps{
		tracker:   tracker,
		indexer:   idx,
		collector: collector,
		monitor:   monitor,
		db:        db,
	}, done)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	// Probes and build info
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Ingest
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/upload/{id}", h.GetUploadStatus).Methods("GET")
	api.HandleFunc("/upload/{id}/duplicate", h.ResolveDuplicate).Methods("POST")
	api.HandleFunc("/upload/{id}/position", h.ResolvePositioning).Methods("POST")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")

	// Library folders
	api.HandleFunc("/folders", h.ListFolders).Methods("GET")
	api.HandleFunc("/folders", h.AddFolder).Methods("POST")
	api.HandleFunc("/reconcile", h.GetReconcileStatus).Methods("GET")
	api.HandleFunc("/reconcile", h.TriggerReconcile).Methods("POST")

	return r
}

type shutdownDeps struct {
	tracker   *ingest.Tracker
	indexer   *indexer.Indexer
	collector *metrics.Collector
	monitor   *memory.Monitor
	db        *database.Database
}

func handleShutdown(srv *http.Server, deps shutdownDeps, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Draining ingest jobs")
	if err := deps.tracker.Shutdown(ctx); err != nil {
		logging.Warn("Ingest shutdown incomplete: %v", err)
	} else {
		startup.LogShutdownStepComplete("Ingest workers stopped")
	}

	startup.LogShutdownStep("Stopping library reconciler")
	deps.indexer.Stop()
	startup.LogShutdownStepComplete("Reconciler stopped")

	if deps.collector != nil {
		deps.collector.Stop()
	}
	deps.monitor.Stop()
	media.ShutdownVips()

	startup.LogShutdownStep("Closing database")
	if err := deps.db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}

// statsAdapter feeds the metrics collector from the tracker and the record
// store.
type statsAdapter struct {
	tracker interface {
		Counts() (active, awaitingDuplicate, awaitingPositioning int)
	}
	db interface {
		CountImages(ctx context.Context) (int, error)
		OpenConnections() int
	}
}

func (a *statsAdapter) GetStats() metrics.Stats {
	active, dup, pos := a.tracker.Counts()
	stats := metrics.Stats{
		ActiveJobs:          active,
		AwaitingDuplicate:   dup,
		AwaitingPositioning: pos,
		OpenDBConnections:   a.db.OpenConnections(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := a.db.CountImages(ctx); err == nil {
		stats.LibraryImages = n
	} else {
		logging.Warn("Failed to count library images: %v", err)
	}
	return stats
}
