package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"framefolio/internal/filesystem"
	"framefolio/internal/logging"
	"framefolio/internal/metrics"
)

// FrameReadyName derives the derivative file name for originalName:
// "{stem}_fr{ext}", with the stem shortened on a rune boundary so the result
// fits in MaxNameBytes. WebP sources produce a .jpg derivative because the
// encoder cannot write WebP.
func FrameReadyName(originalName string) string {
	return frameReadyName(originalName, 0)
}

// FreeFrameReadyName returns FrameReadyName(originalName) if nothing exists
// under that name in exportDir, and otherwise "{stem}_{n}_fr{ext}" with the
// smallest free n >= 1. Callers serialize name selection per directory.
func FreeFrameReadyName(exportDir, originalName string) string {
	for n := 0; ; n++ {
		name := frameReadyName(originalName, n)
		if !filesystem.Exists(filepath.Join(exportDir, name)) {
			return name
		}
	}
}

func frameReadyName(originalName string, n int) string {
	base := filepath.Base(originalName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if strings.EqualFold(ext, ".webp") {
		ext = ".jpg"
	}

	suffix := FrameReadySuffix + ext
	if n > 0 {
		suffix = "_" + strconv.Itoa(n) + suffix
	}

	maxStem := MaxNameBytes - len(suffix)
	for len(stem) > maxStem && stem != "" {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	if stem == "" {
		stem = "image"
	}
	return stem + suffix
}

// ExportDir returns the derivative directory for a library folder.
func ExportDir(folderPath string) string {
	return filepath.Join(folderPath, ExportDirName)
}

// Transformer produces frame-ready derivatives.
type Transformer struct {
	codec Codec
	vips  func() bool
}

// NewTransformer returns a transformer that uses libvips when it has been
// initialized and the imaging library otherwise.
func NewTransformer() *Transformer {
	return &Transformer{vips: IsVipsAvailable}
}

// ExportFrameReady crops src (to rect, or to the centred target-aspect region
// when rect is nil), stretches the crop to TargetWidth x TargetHeight and
// writes it into exportDir under FreeFrameReadyName(exportDir, originalName),
// so it never replaces another image's derivative. It returns the absolute
// path of the derivative. Errors wrap ErrTransform.
func (t *Transformer) ExportFrameReady(src, exportDir, originalName string, rect *NormRect) (string, error) {
	width, height, err := t.codec.DecodeDimensions(src)
	if err != nil {
		return "", err
	}

	crop := AutoCropRect(width, height)
	if rect != nil {
		if err := rect.Validate(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrTransform, err)
		}
		crop = DenormalizeRect(*rect, width, height)
	}

	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create export directory: %v", ErrTransform, err)
	}
	out, err := filepath.Abs(filepath.Join(exportDir, FreeFrameReadyName(exportDir, originalName)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransform, err)
	}

	logging.Debug("Exporting %s (%dx%d) crop %+v -> %s", filepath.Base(src), width, height, crop, out)

	if t.vips != nil && t.vips() {
		start := time.Now()
		err := exportWithVips(src, out, width, height, crop)
		if err == nil {
			metrics.IngestTransformDuration.WithLabelValues("vips").Observe(time.Since(start).Seconds())
			return out, nil
		}
		metrics.IngestTransformErrors.WithLabelValues("vips").Inc()
		logging.Warn("libvips export of %s failed, using imaging: %v", filepath.Base(src), err)
	}

	start := time.Now()
	if err := t.exportWithImaging(src, out, crop); err != nil {
		metrics.IngestTransformErrors.WithLabelValues("imaging").Inc()
		return "", err
	}
	metrics.IngestTransformDuration.WithLabelValues("imaging").Observe(time.Since(start).Seconds())
	return out, nil
}

func (t *Transformer) exportWithImaging(src, out string, crop Rect) error {
	img, err := t.codec.Decode(src)
	if err != nil {
		return err
	}
	frame := t.codec.Resample(t.codec.CropRegion(img, crop), TargetWidth, TargetHeight)

	var exif []byte
	if isJPEG(src) && isJPEG(out) {
		exif, err = ExtractEXIF(src)
		if err != nil && !errors.Is(err, ErrNoEXIF) {
			metrics.IngestMetadataCopyFailures.Inc()
			logging.Warn("Could not read metadata from %s: %v", filepath.Base(src), err)
		}
	}

	return t.codec.Encode(frame, out, JPEGQuality, exif)
}
