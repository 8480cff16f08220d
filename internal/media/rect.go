package media

import (
	"fmt"
	"math"
)

// Rect is a crop region in source pixels.
type Rect struct {
	X, Y, W, H int
}

// NormRect is a crop region in [0,1] coordinates relative to the source.
type NormRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

const rectSlack = 1e-6

// Validate rejects rectangles that are not finite, have no area, or extend
// past the image. Overshoot within rounding slack is accepted.
func (r NormRect) Validate() error {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("crop rectangle has non-finite coordinate")
		}
	}
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("crop rectangle must have positive width and height, got %gx%g", r.W, r.H)
	}
	if r.X < -rectSlack || r.Y < -rectSlack {
		return fmt.Errorf("crop rectangle origin (%g,%g) is negative", r.X, r.Y)
	}
	if r.X+r.W > 1+rectSlack || r.Y+r.H > 1+rectSlack {
		return fmt.Errorf("crop rectangle extends past the image (x+w=%g, y+h=%g)", r.X+r.W, r.Y+r.H)
	}
	return nil
}

// AutoCropRect returns the largest TargetAspect region centred in a
// width x height image. Wider images keep full height, others keep full width.
func AutoCropRect(width, height int) Rect {
	current := float64(width) / float64(height)
	if current > TargetAspect {
		w := int(math.Round(float64(height) * TargetAspect))
		return Rect{X: (width - w) / 2, Y: 0, W: w, H: height}
	}
	h := int(math.Round(float64(width) / TargetAspect))
	if h < 1 {
		h = 1
	}
	return Rect{X: 0, Y: (height - h) / 2, W: width, H: h}
}

// DenormalizeRect converts r to pixels of a width x height image. The result
// is kept inside the image and at least one pixel in each dimension.
func DenormalizeRect(r NormRect, width, height int) Rect {
	px := Rect{
		X: int(math.Round(r.X * float64(width))),
		Y: int(math.Round(r.Y * float64(height))),
		W: int(math.Round(r.W * float64(width))),
		H: int(math.Round(r.H * float64(height))),
	}
	px.X = clampInt(px.X, 0, width-1)
	px.Y = clampInt(px.Y, 0, height-1)
	px.W = clampInt(px.W, 1, width-px.X)
	px.H = clampInt(px.H, 1, height-px.Y)
	return px
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
