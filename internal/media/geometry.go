package media

import (
	"fmt"
	"math"
)

// Orientation of a source image.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

// Geometry describes a source image's shape relative to the frame target.
type Geometry struct {
	Orientation     Orientation `json:"orientation"`
	Width           int         `json:"width"`
	Height          int         `json:"height"`
	Aspect          float64     `json:"aspect_ratio"`
	Ratio           string      `json:"ratio"`
	IsCloseToTarget bool        `json:"is_close_to_target"`
}

// Classify reports orientation and closeness to TargetAspect. Square images
// count as landscape. Portrait images are never close.
func Classify(width, height int) Geometry {
	g := Geometry{
		Orientation: Landscape,
		Width:       width,
		Height:      height,
		Ratio:       reducedRatio(width, height),
	}
	if height > 0 {
		g.Aspect = float64(width) / float64(height)
	}
	if height > width {
		g.Orientation = Portrait
		return g
	}
	g.IsCloseToTarget = height > 0 && math.Abs(g.Aspect-TargetAspect) <= AspectTolerance
	return g
}

func reducedRatio(w, h int) string {
	if w <= 0 || h <= 0 {
		return fmt.Sprintf("%d:%d", w, h)
	}
	d := gcd(w, h)
	return fmt.Sprintf("%d:%d", w/d, h/d)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
