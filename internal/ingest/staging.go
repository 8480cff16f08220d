package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"framefolio/internal/filesystem"
	"framefolio/internal/logging"
	"framefolio/internal/metrics"
)

// Staging holds uploads between receipt and finalization. Every staged file
// gets a fresh random name, so concurrent uploads of the same filename never
// collide.
type Staging struct {
	dir string
}

// NewStaging creates dir if needed.
func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging directory: %v", ErrIO, err)
	}
	return &Staging{dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Staging) Dir() string {
	return s.dir
}

// Write copies r into a new staged file whose extension is ext and returns
// its path. A partial file is removed on error.
func (s *Staging) Write(r io.Reader, ext string) (_ string, err error) {
	path := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(ext))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: create staged file: %v", ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			filesystem.RemoveQuietly(path)
		}
	}()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", fmt.Errorf("%w: write staged file: %v", ErrIO, err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("%w: close staged file: %v", ErrIO, err)
	}

	metrics.IngestStagedBytes.Add(float64(n))
	return path, nil
}

// Sweep removes staged files last modified before cutoff. Jobs do not survive
// a restart, so everything in staging at startup is an orphan.
func (s *Staging) Sweep(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read staging directory: %v", ErrIO, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if filesystem.RemoveQuietly(filepath.Join(s.dir, e.Name())) {
			removed++
		}
	}
	if removed > 0 {
		logging.Info("Removed %d orphaned staged files from %s", removed, s.dir)
	}
	return removed, nil
}
