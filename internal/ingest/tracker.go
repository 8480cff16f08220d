package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"framefolio/internal/database"
	"framefolio/internal/logging"
	"framefolio/internal/media"
	"framefolio/internal/metrics"
	"framefolio/internal/workers"
)

// RecordStore is the persistent image index.
type RecordStore interface {
	InsertRecord(ctx context.Context, path string, folderID int64, fingerprint string) (int64, error)
	DeleteRecord(ctx context.Context, id int64) error
	FindByFingerprint(ctx context.Context, fingerprint string) (*database.ImageRecord, error)
	UpdateRecordPath(ctx context.Context, id int64, path string) error
	SetDerivativePath(ctx context.Context, id int64, path string) error
	GetFolder(ctx context.Context, id int64) (*database.Folder, error)
}

// Codec inspects staged images.
type Codec interface {
	DecodeDimensions(path string) (width, height int, err error)
	Thumbnail(path string, box int) (string, error)
}

// Transformer writes frame-ready derivatives.
type Transformer interface {
	ExportFrameReady(src, exportDir, originalName string, rect *media.NormRect) (string, error)
}

// Backpressure delays decoding while memory is tight.
type Backpressure interface {
	WaitIfPaused(ctx context.Context) error
}

// Config wires a Tracker.
type Config struct {
	Store       RecordStore
	Codec       Codec
	Transformer Transformer
	StagingDir  string

	// Workers bounds concurrent file processing across all jobs. Zero picks a
	// value from the CPU count.
	Workers int

	// Memory is optional.
	Memory Backpressure
}

// Tracker owns every ingest job for the life of the process.
type Tracker struct {
	store       RecordStore
	codec       Codec
	transformer Transformer
	staging     *Staging
	memory      Backpressure
	limiter     *workers.Limiter
	perJob      int
	folders     *keyedMutex
	now         func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

// NewTracker validates cfg and prepares the staging directory.
func NewTracker(cfg Config) (*Tracker, error) {
	if cfg.Store == nil || cfg.Codec == nil || cfg.Transformer == nil {
		return nil, errors.New("ingest: store, codec and transformer are required")
	}
	staging, err := NewStaging(cfg.StagingDir)
	if err != nil {
		return nil, err
	}

	n := cfg.Workers
	if n <= 0 {
		n = workers.ForMixed(0)
	}

	logging.Info("Ingest tracker ready: %d workers, staging in %s", n, cfg.StagingDir)

	return &Tracker{
		store:       cfg.Store,
		codec:       cfg.Codec,
		transformer: cfg.Transformer,
		staging:     staging,
		memory:      cfg.Memory,
		limiter:     workers.NewLimiter(n),
		perJob:      n,
		folders:     newKeyedMutex(),
		now:         time.Now,
		jobs:        make(map[string]*Job),
	}, nil
}

// Staging exposes the staging area, for the startup sweep.
func (t *Tracker) Staging() *Staging {
	return t.staging
}

// Submit stages uploads for folderID and starts processing them in the
// background. It returns the job id as soon as every upload is staged. A
// missing destination folder yields a job in status error and an error
// wrapping ErrNotFound; the job id is still returned.
func (t *Tracker) Submit(ctx context.Context, uploads []Upload, folderID int64) (string, error) {
	job := newJob(uuid.NewString(), folderID, t.now)
	t.mu.Lock()
	t.jobs[job.id] = job
	t.mu.Unlock()
	metrics.IngestJobsSubmitted.Inc()

	if err := t.resolveFolder(ctx, job); err != nil {
		job.abort(err)
		close(job.done)
		metrics.IngestJobsFinished.WithLabelValues(string(JobError)).Inc()
		logging.Warn("Job %s rejected: %v", job.id, err)
		return job.id, err
	}

	for _, u := range uploads {
		name := cleanFilename(u.Filename)
		idx := job.addFile(&FileResult{Filename: name, Status: StatusReceived})

		if !media.IsAccepted(name) {
			job.fail(idx, fmt.Errorf("%w: unsupported file type %q", ErrValidation, filepath.Ext(name)))
			continue
		}
		path, err := t.staging.Write(u.Body, filepath.Ext(name))
		if err != nil {
			job.fail(idx, err)
			continue
		}
		job.mu.Lock()
		job.files[idx].StagingPath = path
		job.mu.Unlock()
	}
	job.seal()

	logging.Info("Job %s: %d files staged for folder %d", job.id, len(uploads), folderID)

	t.wg.Add(1)
	go t.run(job)
	return job.id, nil
}

func (t *Tracker) resolveFolder(ctx context.Context, job *Job) error {
	folder, err := t.store.GetFolder(ctx, job.folderID)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: destination folder %d", ErrNotFound, job.folderID)
	}
	if err != nil {
		return fmt.Errorf("%w: look up folder %d: %v", ErrIO, job.folderID, err)
	}
	info, err := os.Stat(folder.Path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: destination folder %s is not a directory", ErrNotFound, folder.Path)
	}
	job.setFolder(folder.Path)
	return nil
}

// cleanFilename keeps only the final path element of a client-supplied name.
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// run is the automatic pass. Files are processed concurrently, bounded by
// the tracker-wide limiter.
func (t *Tracker) run(job *Job) {
	defer t.wg.Done()
	defer close(job.done)

	ctx := context.Background()
	pending := job.pending()

	n := min(t.perJob, len(pending))
	ch := make(chan int)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range ch {
				t.processFile(ctx, job, idx)
			}
		}()
	}
	for _, idx := range pending {
		ch <- idx
	}
	close(ch)
	wg.Wait()

	snap := job.Snapshot()
	metrics.IngestJobsFinished.WithLabelValues(string(snap.Status)).Inc()
	logging.Info("Job %s automatic pass finished: %s (%d%%)", job.id, snap.Status, snap.Progress)
}

// Status returns the latest snapshot of job id.
func (t *Tracker) Status(id string) (JobSnapshot, error) {
	job, err := t.job(id)
	if err != nil {
		return JobSnapshot{}, err
	}
	return job.Snapshot(), nil
}

// Wait blocks until the automatic pass of job id has finished. Files may
// still be awaiting a decision afterwards.
func (t *Tracker) Wait(ctx context.Context, id string) (JobSnapshot, error) {
	job, err := t.job(id)
	if err != nil {
		return JobSnapshot{}, err
	}
	select {
	case <-job.done:
		return job.Snapshot(), nil
	case <-ctx.Done():
		return job.Snapshot(), ctx.Err()
	}
}

// List returns every job, newest first.
func (t *Tracker) List() []JobSummary {
	t.mu.RLock()
	out := make([]JobSummary, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.Snapshot().Summary())
	}
	t.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// Counts reports jobs still processing and files awaiting each decision.
func (t *Tracker) Counts() (active, awaitingDuplicate, awaitingPositioning int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, j := range t.jobs {
		snap := j.Snapshot()
		if snap.Status == JobProcessing {
			active++
		}
		for _, f := range snap.Files {
			switch f.Status {
			case StatusDuplicateDetected:
				awaitingDuplicate++
			case StatusNeedsPositioning:
				awaitingPositioning++
			}
		}
	}
	return active, awaitingDuplicate, awaitingPositioning
}

// Shutdown waits for running automatic passes, or for ctx to expire.
func (t *Tracker) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) job(id string) (*Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return job, nil
}
