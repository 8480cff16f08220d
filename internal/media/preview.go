package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const previewQuality = 85

// Thumbnail renders path scaled to fit a box x box square and returns it as a
// base64 JPEG data URL. Previews are for display, so EXIF orientation is applied.
func (Codec) Thumbnail(path string, box int) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: open %s for preview: %v", ErrTransform, filepath.Base(path), err)
	}

	thumb := imaging.Fit(img, box, box, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return "", fmt.Errorf("%w: encode preview: %v", ErrTransform, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FileInfo is the display summary shown next to a duplicate prompt.
type FileInfo struct {
	Name   string  `json:"name"`
	Size   int64   `json:"size"`
	SizeMB float64 `json:"size_mb"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// DescribeFile stats and measures path. displayName overrides the base name,
// which matters for staged files whose on-disk names are random.
func DescribeFile(path, displayName string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	if displayName == "" {
		displayName = filepath.Base(path)
	}
	info := FileInfo{
		Name:   displayName,
		Size:   st.Size(),
		SizeMB: math.Round(float64(st.Size())/(1024*1024)*100) / 100,
	}
	if dims, err := GetImageDimensions(path); err == nil {
		info.Width, info.Height = dims.Width, dims.Height
	}
	return info, nil
}
