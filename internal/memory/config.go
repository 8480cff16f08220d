package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"framefolio/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go heap.
// The remainder covers libvips buffers and decoded image rasters held outside
// the Go heap accounting.
const DefaultMemoryRatio = 0.80

// Limits describes how GOMEMLIMIT was decided at startup.
type Limits struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container limit.
// Call it first thing in main.
//
//   - GOMEMLIMIT: honored as-is when present
//   - MEMORY_LIMIT: container limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO: heap share of MEMORY_LIMIT, default 0.80
func ConfigureFromEnv() Limits {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		res := Limits{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			res.Configured = true
			res.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return res
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving GOMEMLIMIT unset")
		return Limits{Source: "none"}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", raw)
		return Limits{Source: "none"}
	}

	ratio := envRatio("MEMORY_RATIO", DefaultMemoryRatio)
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(containerLimit))

	return Limits{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func envRatio(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v > 1 {
		logging.Warn("%s %q must be in (0, 1], using %.2f", name, raw, fallback)
		return fallback
	}
	return v
}

// FormatBytes renders b with binary units, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
