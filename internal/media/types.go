package media

import (
	"errors"
	"path/filepath"
	"strings"
)

// Frame-ready derivative geometry.
const (
	TargetWidth  = 3840
	TargetHeight = 2160

	// TargetAspect is TargetWidth / TargetHeight (about 1.778).
	TargetAspect = float64(TargetWidth) / float64(TargetHeight)

	// AspectTolerance is how far a landscape aspect may stray from
	// TargetAspect and still be cropped automatically.
	AspectTolerance = 0.1
)

// Output settings.
const (
	JPEGQuality = 95

	// MaxNameBytes is the filesystem limit on a single path component.
	MaxNameBytes = 255

	// ExportDirName is the per-folder subdirectory holding derivatives.
	ExportDirName = ".frameready"

	// FrameReadySuffix is appended to the stem of derivative names.
	FrameReadySuffix = "_fr"

	// DuplicateThumbSize bounds the previews attached to duplicate prompts.
	DuplicateThumbSize = 300

	// PositioningPreviewSize bounds the preview attached to positioning prompts.
	PositioningPreviewSize = 600
)

// ErrTransform marks decode, crop, resample and encode failures.
var ErrTransform = errors.New("transform failed")

// AcceptedExtensions lists the upload formats the pipeline can decode.
var AcceptedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
}

// IsAccepted reports whether name has an accepted image extension.
func IsAccepted(name string) bool {
	return AcceptedExtensions[strings.ToLower(filepath.Ext(name))]
}
