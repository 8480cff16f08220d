package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}
}

type recordingObserver struct {
	ops    []string
	errs   int
	events []RetryEvent
}

func (r *recordingObserver) ObserveOperation(volume, operation string, _ float64, err error) {
	r.ops = append(r.ops, volume+"/"+operation)
	if err != nil {
		r.errs++
	}
}

func (r *recordingObserver) ObserveRetry(_, _ string, event RetryEvent) {
	r.events = append(r.events, event)
}

func (r *recordingObserver) ObserveRetryDuration(string, string, float64) {}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"staging":  "/data/_staging",
		"database": "/data",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "staging root", path: "/data/_staging", want: "staging"},
		{name: "staged upload", path: "/data/_staging/3f2a.jpg", want: "staging"},
		{name: "database file", path: "/data/framefolio.db", want: "database"},
		{name: "database WAL", path: "/data/framefolio.db-wal", want: "database"},
		{name: "sibling prefix is not a match", path: "/data/_staging2/x.jpg", want: "database"},
		{name: "library folder", path: "/photos/2024/beach.jpg", want: "library"},
		{name: "root path", path: "/", want: "library"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/photos/test.jpg"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q, want %q", got, "unknown")
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	original := defaultResolver
	defer func() { defaultResolver = original }()

	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"staging": "/data/_staging"}))

	config := fastConfig()
	if got := config.resolveVolume("/data/_staging/a.png"); got != "staging" {
		t.Errorf("resolveVolume() = %q, want staging (default resolver)", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"scratch": "/data/_staging"})
	if got := config.resolveVolume("/data/_staging/a.png"); got != "scratch" {
		t.Errorf("resolveVolume() = %q, want scratch (config resolver)", got)
	}
}

func TestStatWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(testFile, fastConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size() = %d, want 4", info.Size())
	}

	start := time.Now()
	_, err = StatWithRetry(filepath.Join(tmpDir, "missing.txt"), fastConfig())
	if !os.IsNotExist(err) {
		t.Errorf("StatWithRetry() error = %v, want not-exist", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("StatWithRetry took %v, should not retry non-NFS errors", elapsed)
	}
}

func TestOpenWithRetry(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("staged bytes")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	file, err := OpenWithRetry(testFile, fastConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	defer file.Close()

	buf := make([]byte, len(content))
	if _, err := file.Read(buf); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(buf, content) {
		t.Errorf("content = %q, want %q", buf, content)
	}

	if f, err := OpenWithRetry(filepath.Join(tmpDir, "missing.txt"), fastConfig()); err == nil {
		f.Close()
		t.Error("OpenWithRetry() on missing file returned nil error")
	}
}

func TestWithRetry_RetriesStaleHandles(t *testing.T) {
	original := defaultObserver
	defer func() { defaultObserver = original }()
	obs := &recordingObserver{}
	SetObserver(obs)

	calls := 0
	err := withRetry("stat", "/photos/a.jpg", fastConfig(), func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if last := obs.events[len(obs.events)-1]; last != RetrySucceeded {
		t.Errorf("last event = %v, want RetrySucceeded", last)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	original := defaultObserver
	defer func() { defaultObserver = original }()
	obs := &recordingObserver{}
	SetObserver(obs)

	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	calls := 0
	err := withRetry("open", "/photos/a.jpg", config, func() error {
		calls++
		return syscall.ESTALE
	})
	if !isNFSStaleError(err) {
		t.Fatalf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if last := obs.events[len(obs.events)-1]; last != RetryExhausted {
		t.Errorf("last event = %v, want RetryExhausted", last)
	}
}

func TestMove(t *testing.T) {
	original := defaultObserver
	defer func() { defaultObserver = original }()
	obs := &recordingObserver{}
	SetObserver(obs)

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "upload.jpg")
	dst := filepath.Join(dstDir, "beach.jpg")
	if err := os.WriteFile(src, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Move(src, dst, fastConfig()); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if Exists(src) {
		t.Error("source still exists after Move")
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "jpeg" {
		t.Errorf("destination content = %q, %v", got, err)
	}
	if len(obs.ops) != 1 || obs.errs != 0 {
		t.Errorf("observed ops = %v errs = %d, want one successful rename", obs.ops, obs.errs)
	}

	if err := Move(src, dst, fastConfig()); err == nil {
		t.Error("Move() of missing source returned nil error")
	}
	if obs.errs != 1 {
		t.Errorf("observed errs = %d, want 1", obs.errs)
	}
}

func TestCopyAcrossDevices(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	dst := filepath.Join(dir, "b.png")
	if err := os.WriteFile(src, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := copyAcrossDevices(src, dst); err != nil {
		t.Fatalf("copyAcrossDevices() error = %v", err)
	}
	if Exists(src) {
		t.Error("source should be removed after copy")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "b.png" {
		t.Errorf("directory entries = %v, want only b.png", entries)
	}
}

func TestExistsAndRemoveQuietly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.jpg")

	if Exists(path) {
		t.Error("Exists() = true before create")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists() = false after create")
	}

	if !RemoveQuietly(path) {
		t.Error("RemoveQuietly() = false for existing file")
	}
	if !RemoveQuietly(path) {
		t.Error("RemoveQuietly() = false for already removed file")
	}
	if !RemoveQuietly("") {
		t.Error("RemoveQuietly(\"\") = false")
	}
}

func BenchmarkVolumeResolver_Resolve(b *testing.B) {
	vr := NewVolumeResolver(map[string]string{
		"staging":  "/data/_staging",
		"database": "/data",
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vr.Resolve("/data/_staging/0b7e.jpg")
	}
}
