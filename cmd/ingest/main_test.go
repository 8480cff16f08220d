package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framefolio/internal/ingest"
	"framefolio/internal/media"
)

func writePNG(t *testing.T, path string, w, h int, seed uint8) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testOptions(t *testing.T, paths ...string) options {
	t.Helper()
	dir := t.TempDir()
	library := filepath.Join(dir, "library")
	if err := os.Mkdir(library, 0o755); err != nil {
		t.Fatal(err)
	}
	return options{
		dbPath:        filepath.Join(dir, "data", "framefolio.db"),
		folder:        library,
		staging:       filepath.Join(dir, "data", "_staging"),
		workers:       2,
		onDuplicate:   "skip",
		onPositioning: "skip",
		paths:         paths,
	}
}

func quietProgress() (*progress, *bytes.Buffer) {
	var buf bytes.Buffer
	return &progress{w: &buf, last: -1, width: 80}, &buf
}

func countStatus(snap ingest.JobSnapshot, status ingest.FileStatus) int {
	n := 0
	for _, f := range snap.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"minimal", []string{"-folder", "/library", "a.png"}, false},
		{"no inputs", []string{"-folder", "/library"}, true},
		{"no folder", []string{"-folder", "", "a.png"}, true},
		{"bad duplicate policy", []string{"-folder", "/l", "-on-duplicate", "merge", "a.png"}, true},
		{"bad positioning policy", []string{"-folder", "/l", "-on-positioning", "fill", "a.png"}, true},
		{"center", []string{"-folder", "/l", "-on-positioning", "center", "-on-duplicate", "import_anyway", "a.png"}, false},
		{"unknown flag", []string{"-bogus", "a.png"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestParseFlags_StagingDefault(t *testing.T) {
	opts, err := parseFlags([]string{"-db", "/srv/ff/framefolio.db", "-folder", "/library", "x.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.staging != "/srv/ff/_staging" {
		t.Errorf("staging = %q, want /srv/ff/_staging", opts.staging)
	}
}

func TestCollectFiles(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "a.png"), 16, 9, 1)
	writePNG(t, filepath.Join(src, "nested", "b.png"), 16, 9, 2)
	writePNG(t, filepath.Join(src, media.ExportDirName, "a_frameready.jpg"), 16, 9, 3)
	writePNG(t, filepath.Join(src, ".cache", "c.png"), 16, 9, 4)
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, ignored, err := collectFiles([]string{src})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want a.png and nested/b.png", files)
	}
	if ignored != 1 {
		t.Errorf("ignored = %d, want 1", ignored)
	}

	if _, _, err := collectFiles([]string{filepath.Join(src, "missing")}); err == nil {
		t.Error("collectFiles() of a missing path returned nil error")
	}
}

func TestRun_ImportsAndApplies(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "wide.png"), 160, 90, 1)
	writePNG(t, filepath.Join(src, "pano.png"), 200, 100, 2)
	writePNG(t, filepath.Join(src, "tall.png"), 90, 160, 3)

	opts := testOptions(t, src)
	opts.onPositioning = "center"
	prog, out := quietProgress()

	res, err := run(context.Background(), opts, prog)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if res.Snapshot.Status != ingest.JobComplete {
		t.Fatalf("job status = %s, files = %+v", res.Snapshot.Status, res.Snapshot.Files)
	}
	if got := countStatus(res.Snapshot, ingest.StatusSuccess); got != 2 {
		t.Errorf("success = %d, want 2 (wide and centred pano)", got)
	}
	if got := countStatus(res.Snapshot, ingest.StatusPortraitRejected); got != 1 {
		t.Errorf("portrait_rejected = %d, want 1", got)
	}
	for _, name := range []string{"wide.png", "pano.png"} {
		if _, err := os.Stat(filepath.Join(opts.folder, name)); err != nil {
			t.Errorf("%s not in library: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "100%") {
		t.Errorf("progress output %q never reached 100%%", out.String())
	}
}

func TestRun_DuplicatePolicies(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "beach.png"), 160, 90, 7)
	opts := testOptions(t, src)

	prog, _ := quietProgress()
	if _, err := run(context.Background(), opts, prog); err != nil {
		t.Fatal(err)
	}

	// Same bytes again: skipped by default.
	res, err := run(context.Background(), opts, prog)
	if err != nil {
		t.Fatal(err)
	}
	if got := countStatus(res.Snapshot, ingest.StatusSkipped); got != 1 {
		t.Errorf("skipped = %d, want 1", got)
	}

	opts.onDuplicate = "import_anyway"
	res, err = run(context.Background(), opts, prog)
	if err != nil {
		t.Fatal(err)
	}
	if got := countStatus(res.Snapshot, ingest.StatusSuccess); got != 1 {
		t.Errorf("success = %d, want 1", got)
	}
	if _, err := os.Stat(filepath.Join(opts.folder, "beach_1.png")); err != nil {
		t.Errorf("import_anyway copy missing: %v", err)
	}
}

func TestRun_NoImages(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "readme.md"), []byte("#"), 0o644); err != nil {
		t.Fatal(err)
	}
	prog, _ := quietProgress()
	if _, err := run(context.Background(), testOptions(t, src), prog); err == nil {
		t.Error("run() with no images returned nil error")
	}
}

func TestPositioningFor(t *testing.T) {
	wide := ingest.FileResult{Geometry: &media.Geometry{Width: 400, Height: 100}}

	if p := positioningFor(wide, "skip"); !p.Skip || p.Crop != nil {
		t.Errorf("skip policy = %+v", p)
	}
	if p := positioningFor(ingest.FileResult{}, "center"); !p.Skip {
		t.Errorf("center without geometry = %+v, want skip", p)
	}

	p := positioningFor(wide, "center")
	if p.Crop == nil {
		t.Fatal("center policy returned no crop")
	}
	if err := p.Crop.Validate(); err != nil {
		t.Errorf("centre crop invalid: %v", err)
	}
	if p.Crop.H != 1 || p.Crop.X <= 0 {
		t.Errorf("centre crop = %+v, want full height offset from the left", *p.Crop)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, result{
		JobID: "j1",
		Snapshot: ingest.JobSnapshot{
			Status: ingest.JobComplete,
			Files: []ingest.FileResult{
				{Status: ingest.StatusSuccess},
				{Status: ingest.StatusSuccess},
				{Status: ingest.StatusFailed},
			},
			Errors: []string{"bad.jpg: decode failed"},
		},
		Ignored: 3,
	})

	out := buf.String()
	for _, want := range []string{"Job j1: complete", "success", "2", "ignored", "bad.jpg: decode failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestProgress_NonTerminal(t *testing.T) {
	prog, out := quietProgress()
	snap := ingest.JobSnapshot{Status: ingest.JobProcessing, Progress: 50, TotalFiles: 2}

	prog.update(snap)
	prog.update(snap)
	snap.Progress = 100
	prog.update(snap)

	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Errorf("printed %d lines, want 2 (unchanged progress is not repeated)", lines)
	}
}

func TestBar(t *testing.T) {
	if got := bar(50, 10); got != "[=====     ]" {
		t.Errorf("bar(50, 10) = %q", got)
	}
	if got := bar(100, 4); got != "[====]" {
		t.Errorf("bar(100, 4) = %q", got)
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "wide.png"), 160, 90, 1)
	dbDir := t.TempDir()
	library := t.TempDir()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"-h"}, 0},
		{"no paths", []string{"-folder", library}, 2},
		{"bad policy", []string{"-folder", library, "-on-duplicate", "merge", src}, 2},
		{"import", []string{"-vips=false", "-db", filepath.Join(dbDir, "f.db"), "-folder", library, src}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := os.CreateTemp(t.TempDir(), "stdout")
			if err != nil {
				t.Fatal(err)
			}
			defer out.Close()

			if got := execute(tt.args, out); got != tt.want {
				t.Errorf("execute(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(library, "wide.png")); err != nil {
		t.Errorf("wide.png not imported: %v", err)
	}
}
