package media

import (
	"fmt"
	"path/filepath"
	"sync"

	"framefolio/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogSettings maps the application log level onto the libvips level and
// forwards messages at or above it to our logger. GLib levels grow as
// severity drops, so "at or above" means numerically lower or equal.
func vipsLogSettings(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	threshold := vips.LogLevelWarning
	switch level {
	case logging.LevelDebug:
		threshold = vips.LogLevelInfo
	case logging.LevelWarn:
		threshold = vips.LogLevelCritical
	case logging.LevelError:
		threshold = vips.LogLevelError
	}

	return threshold, func(domain string, lvl vips.LogLevel, msg string) {
		if lvl > threshold {
			return
		}
		switch {
		case lvl <= vips.LogLevelCritical:
			logging.Error("[%s] %s", domain, msg)
		case lvl == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// InitVips starts libvips. Call it once at startup; later calls are no-ops.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	level, handler := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	// One derivative at a time per vips thread pool; jobs already run in parallel.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      64 * 1024 * 1024,
		MaxCacheSize:     50,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// exportWithVips is the libvips rendition of the derivative export. Metadata
// is kept by the JPEG exporter. Any mismatch with the expected geometry is
// reported as an error so the caller falls back to the imaging backend.
func exportWithVips(src, out string, width, height int, crop Rect) error {
	ref, err := vips.NewImageFromFile(src)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer ref.Close()

	if ref.Width() != width || ref.Height() != height {
		return fmt.Errorf("vips sees %dx%d, header says %dx%d", ref.Width(), ref.Height(), width, height)
	}

	if err := ref.ExtractArea(crop.X, crop.Y, crop.W, crop.H); err != nil {
		return fmt.Errorf("crop: %w", err)
	}

	hScale := float64(TargetWidth) / float64(crop.W)
	vScale := float64(TargetHeight) / float64(crop.H)
	if err := ref.ResizeWithVScale(hScale, vScale, vips.KernelLanczos3); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	if ref.Width() != TargetWidth || ref.Height() != TargetHeight {
		return fmt.Errorf("resize produced %dx%d", ref.Width(), ref.Height())
	}

	var data []byte
	switch {
	case isJPEG(out):
		data, _, err = ref.ExportJpeg(&vips.JpegExportParams{
			Quality:        JPEGQuality,
			StripMetadata:  false,
			OptimizeCoding: true,
		})
	case filepath.Ext(out) == ".png":
		data, _, err = ref.ExportPng(vips.NewPngExportParams())
	default:
		return fmt.Errorf("no vips exporter for %s", filepath.Ext(out))
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	return writeFileAtomic(out, data)
}
