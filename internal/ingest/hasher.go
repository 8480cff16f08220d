package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"framefolio/internal/filesystem"
	"framefolio/internal/metrics"
)

const hashBufferSize = 64 * 1024

// Fingerprint streams r through xxHash64 and returns the digest as 16
// lowercase hex digits. A read error yields no digest.
func Fingerprint(r io.Reader) (string, error) {
	h := xxhash.New()
	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("%w: hash: %v", ErrIO, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// FingerprintFile fingerprints the file at path.
func FingerprintFile(path string) (string, error) {
	start := time.Now()

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("%w: open for hashing: %v", ErrIO, err)
	}
	defer f.Close()

	fp, err := Fingerprint(f)
	if err != nil {
		return "", err
	}
	metrics.IngestHashDuration.Observe(time.Since(start).Seconds())
	return fp, nil
}
