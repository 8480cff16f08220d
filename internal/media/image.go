package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"framefolio/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// Codec decodes, reshapes and encodes images with the imaging library.
//
// Decoding never applies EXIF orientation, so decoded bounds always match
// DecodeDimensions and crop coordinates computed from one apply to the other.
// The orientation tag travels with the copied EXIF block instead.
type Codec struct{}

// DecodeDimensions reads only the image header.
func (Codec) DecodeDimensions(path string) (width, height int, err error) {
	dims, err := GetImageDimensions(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read dimensions of %s: %v", ErrTransform, filepath.Base(path), err)
	}
	if dims.Width < 1 || dims.Height < 1 {
		return 0, 0, fmt.Errorf("%w: %s has empty dimensions %dx%d", ErrTransform, filepath.Base(path), dims.Width, dims.Height)
	}
	return dims.Width, dims.Height, nil
}

// Decode fully decodes the first frame of path.
func (Codec) Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrTransform, filepath.Base(path), err)
	}
	return img, nil
}

// Resample stretches img to exactly width x height with Lanczos.
func (Codec) Resample(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// CropRegion returns the r region of img.
func (Codec) CropRegion(img image.Image, r Rect) image.Image {
	b := img.Bounds()
	return imaging.Crop(img, image.Rect(b.Min.X+r.X, b.Min.Y+r.Y, b.Min.X+r.X+r.W, b.Min.Y+r.Y+r.H))
}

// Encode writes img to path in the format implied by its extension. JPEG
// output uses quality and carries exif (an APP1 segment) when given. The file
// is written under a temporary name and renamed into place.
func (Codec) Encode(img image.Image, path string, quality int, exif []byte) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransform, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrTransform, filepath.Base(path), err)
	}

	data := buf.Bytes()
	if format == imaging.JPEG && len(exif) > 0 {
		if spliced, err := SpliceEXIF(data, exif); err != nil {
			logging.Warn("Could not copy metadata into %s: %v", filepath.Base(path), err)
		} else {
			data = spliced
		}
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrTransform, filepath.Base(path), err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".write-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func isJPEG(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg"
}
