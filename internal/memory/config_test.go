package memory

import (
	"runtime/debug"
	"testing"
)

func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	original := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(original) })
}

func TestConfigureFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		ratio      string
		wantSource string
		wantGo     int64
	}{
		{"nothing set", "", "", "none", 0},
		{"default ratio", "1000000000", "", "MEMORY_LIMIT", 800000000},
		{"custom ratio", "1000000000", "0.5", "MEMORY_LIMIT", 500000000},
		{"ratio out of range", "1000000000", "1.5", "MEMORY_LIMIT", 800000000},
		{"ratio not a number", "1000000000", "half", "MEMORY_LIMIT", 800000000},
		{"limit not a number", "lots", "", "none", 0},
		{"negative limit", "-1", "", "none", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			res := ConfigureFromEnv()
			if res.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", res.Source, tt.wantSource)
			}
			if res.GoMemLimit != tt.wantGo {
				t.Errorf("GoMemLimit = %d, want %d", res.GoMemLimit, tt.wantGo)
			}
			if res.Configured != (tt.wantGo > 0) {
				t.Errorf("Configured = %v", res.Configured)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
