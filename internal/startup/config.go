package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"framefolio/internal/logging"
)

// Config holds all application configuration
type Config struct {
	LibraryDir      string
	StagingDir      string
	DatabaseDir     string
	Port            string
	MetricsEnabled  bool
	IngestWorkers   int
	MaxUploadMB     int64
	VipsEnabled     bool
	LogHealthChecks bool
	LogStatusPolls  bool

	// ReconcileInterval is the period between library reconciliation
	// passes. Zero runs only the pass at startup.
	ReconcileInterval time.Duration

	// Derived paths
	DatabasePath string
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// fileConfig mirrors Config for the optional YAML file. Pointer fields
// distinguish "absent" from a zero value.
type fileConfig struct {
	LibraryDir      string `yaml:"library_dir"`
	StagingDir      string `yaml:"staging_dir"`
	DatabaseDir     string `yaml:"database_dir"`
	Port            string `yaml:"port"`
	MetricsEnabled  *bool  `yaml:"metrics_enabled"`
	IngestWorkers   int    `yaml:"ingest_workers"`
	MaxUploadMB     int64  `yaml:"max_upload_mb"`
	VipsEnabled     *bool  `yaml:"vips_enabled"`
	LogLevel        string `yaml:"log_level"`
	LogHealthChecks *bool  `yaml:"log_health_checks"`
	LogStatusPolls  *bool  `yaml:"log_status_polls"`

	ReconcileInterval string `yaml:"reconcile_interval"`
}

// loadConfigFile reads the YAML file at path. An empty path yields an empty
// config.
func loadConfigFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// LoadConfig loads and validates configuration. Environment variables win
// over CONFIG_FILE, which wins over built-in defaults.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	configFile := os.Getenv("CONFIG_FILE")
	fc, err := loadConfigFile(configFile)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		logging.Info("  CONFIG_FILE:         %s", configFile)
	}

	if os.Getenv("LOG_LEVEL") == "" && fc.LogLevel != "" {
		if level, ok := logging.ParseLevel(fc.LogLevel); ok {
			logging.SetLevel(level)
		} else {
			logging.Warn("  Invalid log_level %q in config file, ignoring", fc.LogLevel)
		}
	}

	config := &Config{
		LibraryDir:      getEnv("LIBRARY_DIR", orDefault(fc.LibraryDir, "/library")),
		StagingDir:      getEnv("STAGING_DIR", orDefault(fc.StagingDir, "/data/_staging")),
		DatabaseDir:     getEnv("DATABASE_DIR", orDefault(fc.DatabaseDir, "/data")),
		Port:            getEnv("PORT", orDefault(fc.Port, "8080")),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", boolOr(fc.MetricsEnabled, true)),
		IngestWorkers:   getEnvInt("INGEST_WORKERS", fc.IngestWorkers),
		MaxUploadMB:     int64(getEnvInt("MAX_UPLOAD_MB", int(orDefaultInt(fc.MaxUploadMB, 512)))),
		VipsEnabled:     getEnvBool("VIPS_ENABLED", boolOr(fc.VipsEnabled, true)),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", boolOr(fc.LogHealthChecks, false)),
		LogStatusPolls:  getEnvBool("LOG_STATUS_POLLS", boolOr(fc.LogStatusPolls, false)),
	}

	logging.Info("  LIBRARY_DIR:         %s", config.LibraryDir)
	logging.Info("  STAGING_DIR:         %s", config.StagingDir)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	if config.IngestWorkers > 0 {
		logging.Info("  INGEST_WORKERS:      %d", config.IngestWorkers)
	} else {
		logging.Info("  INGEST_WORKERS:      auto")
	}
	logging.Info("  MAX_UPLOAD_MB:       %d", config.MaxUploadMB)
	logging.Info("  VIPS_ENABLED:        %v", config.VipsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_STATUS_POLLS:    %v", config.LogStatusPolls)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	reconcileStr := getEnv("RECONCILE_INTERVAL", orDefault(fc.ReconcileInterval, "1h"))
	logging.Info("  RECONCILE_INTERVAL:  %s", reconcileStr)
	config.ReconcileInterval, err = time.ParseDuration(reconcileStr)
	if err != nil || config.ReconcileInterval < 0 {
		logging.Warn("  Invalid RECONCILE_INTERVAL, using default: 1h")
		config.ReconcileInterval = time.Hour
	}

	if config.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", config.MaxUploadMB)
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, dir := range []struct {
		name string
		path *string
	}{
		{"library", &config.LibraryDir},
		{"staging", &config.StagingDir},
		{"database", &config.DatabaseDir},
	} {
		abs, err := filepath.Abs(*dir.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", dir.name, err)
		}
		*dir.path = abs
		logging.Info("  %-8s directory (absolute): %s", dir.name, abs)
	}

	// The library root only seeds the first folder, so a problem is a warning.
	if err := ensureDirectory(config.LibraryDir, "library"); err != nil {
		logging.Warn("  Library directory issue: %v", err)
	}

	for _, dir := range []struct{ name, path string }{
		{"database", config.DatabaseDir},
		{"staging", config.StagingDir},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		logging.Debug("  Testing %s directory write access...", dir.name)
		if err := testWriteAccess(dir.path); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}

	config.DatabasePath = filepath.Join(config.DatabaseDir, "framefolio.db")
	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func orDefault(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func orDefaultInt(value, def int64) int64 {
	if value != 0 {
		return value
	}
	return def
}

func boolOr(value *bool, def bool) bool {
	if value != nil {
		return *value
	}
	return def
}
