package media

import (
	"math"
	"testing"
)

func TestAutoCropRect(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		want   Rect
	}{
		{"exact target", 3840, 2160, Rect{0, 0, 3840, 2160}},
		{"wider than target", 2000, 1000, Rect{111, 0, 1778, 1000}},
		{"narrower than target", 1600, 1200, Rect{0, 150, 1600, 900}},
		{"square", 1000, 1000, Rect{0, 218, 1000, 563}},
		{"single pixel", 1, 1, Rect{0, 0, 1, 1}},
		{"one pixel tall strip", 1000, 1, Rect{499, 0, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoCropRect(tt.width, tt.height)
			if got != tt.want {
				t.Errorf("AutoCropRect(%d, %d) = %+v, want %+v", tt.width, tt.height, got, tt.want)
			}
			if got != AutoCropRect(tt.width, tt.height) {
				t.Error("AutoCropRect is not deterministic")
			}
			if got.X < 0 || got.Y < 0 || got.X+got.W > tt.width || got.Y+got.H > tt.height {
				t.Errorf("rect %+v escapes %dx%d", got, tt.width, tt.height)
			}
		})
	}
}

func TestNormRect_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rect    NormRect
		wantErr bool
	}{
		{"full image", NormRect{0, 0, 1, 1}, false},
		{"top half", NormRect{0, 0, 1, 0.5}, false},
		{"rounding overshoot", NormRect{0.5, 0, 0.5000001, 1}, false},
		{"zero width", NormRect{0, 0, 0, 1}, true},
		{"negative height", NormRect{0, 0, 1, -0.5}, true},
		{"negative origin", NormRect{-0.1, 0, 0.5, 0.5}, true},
		{"past right edge", NormRect{0.6, 0, 0.5, 0.5}, true},
		{"past bottom edge", NormRect{0, 0.9, 0.5, 0.2}, true},
		{"NaN", NormRect{math.NaN(), 0, 0.5, 0.5}, true},
		{"Inf", NormRect{0, 0, math.Inf(1), 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rect.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDenormalizeRect(t *testing.T) {
	tests := []struct {
		name   string
		rect   NormRect
		width  int
		height int
		want   Rect
	}{
		{"top half of 2:1", NormRect{0, 0, 1, 0.5}, 2000, 1000, Rect{0, 0, 2000, 500}},
		{"centre quarter", NormRect{0.25, 0.25, 0.5, 0.5}, 400, 200, Rect{100, 50, 200, 100}},
		{"sub-pixel raised to one", NormRect{0, 0, 0.0001, 0.0001}, 100, 100, Rect{0, 0, 1, 1}},
		{"overshoot kept inside", NormRect{0.5, 0.5, 0.5000001, 0.5000001}, 3, 3, Rect{2, 2, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DenormalizeRect(tt.rect, tt.width, tt.height); got != tt.want {
				t.Errorf("DenormalizeRect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
