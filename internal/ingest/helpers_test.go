package ingest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"framefolio/internal/database"
	"framefolio/internal/media"
)

type testEnv struct {
	tracker *Tracker
	db      *database.Database
	folder  *database.Folder
	staging string
}

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	library := filepath.Join(dir, "library")
	if err := os.Mkdir(library, 0o755); err != nil {
		t.Fatal(err)
	}
	folder, err := db.AddFolder(context.Background(), library)
	if err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}

	staging := filepath.Join(dir, "staging")
	cfg := Config{
		Store:       db,
		Codec:       media.Codec{},
		Transformer: media.NewTransformer(),
		StagingDir:  staging,
		Workers:     2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	tr, err := NewTracker(cfg)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = tr.Shutdown(ctx)
	})

	return &testEnv{tracker: tr, db: db, folder: folder, staging: staging}
}

// pngBytes draws a w x h gradient. seed changes the pixels, and therefore
// the fingerprint.
func pngBytes(t *testing.T, w, h int, seed uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func upload(name string, data []byte) Upload {
	return Upload{Filename: name, Body: bytes.NewReader(data)}
}

func (e *testEnv) submitAndWait(t *testing.T, uploads ...Upload) JobSnapshot {
	t.Helper()
	id, err := e.tracker.Submit(context.Background(), uploads, e.folder.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	snap, err := e.tracker.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return snap
}

// waitFor polls job id until cond holds for its snapshot.
func (e *testEnv) waitFor(t *testing.T, id string, cond func(JobSnapshot) bool) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		snap, err := e.tracker.Status(id)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out, last snapshot %s %d%% %+v", snap.Status, snap.Progress, snap.Files)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// gate holds every decode until a token is sent on it.
type gate chan struct{}

func (g gate) WaitIfPaused(ctx context.Context) error {
	select {
	case <-g:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *testEnv) stagedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.staging)
	if err != nil {
		t.Fatalf("ReadDir(staging) error = %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

func mustFile(t *testing.T, snap JobSnapshot, name string) FileResult {
	t.Helper()
	f, ok := snap.File(name)
	if !ok {
		t.Fatalf("job %s has no file %q", snap.ID, name)
	}
	return f
}

func assertDerivative(t *testing.T, path string) {
	t.Helper()
	w, h, err := media.Codec{}.DecodeDimensions(path)
	if err != nil {
		t.Fatalf("derivative %s: %v", path, err)
	}
	if w != media.TargetWidth || h != media.TargetHeight {
		t.Errorf("derivative is %dx%d, want %dx%d", w, h, media.TargetWidth, media.TargetHeight)
	}
}
