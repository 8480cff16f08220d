package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"framefolio/internal/database"
	"framefolio/internal/filesystem"
	"framefolio/internal/logging"
	"framefolio/internal/metrics"
	"framefolio/internal/workers"
)

// defaultGrace is how old a record must be before it can be pruned. The
// ingest pipeline inserts a record before moving the file into place.
const defaultGrace = 5 * time.Minute

// ErrAlreadyRunning is returned by Index when another pass is in progress.
var ErrAlreadyRunning = errors.New("reconciliation already running")

// Store is the part of the record store the indexer needs.
type Store interface {
	ListFolders(ctx context.Context) ([]database.Folder, error)
	ListRecords(ctx context.Context, folderID int64) ([]database.ImageRecord, error)
	DeleteRecord(ctx context.Context, id int64) error
}

// Result summarizes one reconciliation pass.
type Result struct {
	Folders            int           `json:"folders"`
	SkippedFolders     int           `json:"skippedFolders"`
	Checked            int           `json:"checked"`
	Pruned             int           `json:"pruned"`
	MissingDerivatives int           `json:"missingDerivatives"`
	Duration           time.Duration `json:"duration"`
	FinishedAt         time.Time     `json:"finishedAt"`
}

// Progress is the indexer state reported over HTTP.
type Progress struct {
	IsIndexing bool      `json:"isIndexing"`
	Checked    int64     `json:"checked"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	Last       *Result   `json:"last,omitempty"`
}

// Indexer reconciles image records with the files they point at.
type Indexer struct {
	store    Store
	interval time.Duration
	workers  int
	grace    time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	indexMu    sync.Mutex
	isIndexing bool
	startedAt  time.Time
	last       *Result

	checked atomic.Int64
}

// New creates an Indexer. An interval of zero disables periodic passes.
func New(store Store, interval time.Duration) *Indexer {
	return &Indexer{
		store:    store,
		interval: interval,
		workers:  workers.ForMixed(0),
		grace:    defaultGrace,
		stopChan: make(chan struct{}),
	}
}

// Start runs an initial pass in the background and then one every interval.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.runLogged("Initial")

		if idx.interval <= 0 {
			return
		}
		ticker := time.NewTicker(idx.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				idx.runLogged("Periodic")
			case <-idx.stopChan:
				return
			}
		}
	}()
}

// Stop ends periodic passes and waits for a running one to finish.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() { close(idx.stopChan) })
	idx.wg.Wait()
}

// TriggerIndex starts a pass in the background. It reports false when one
// is already running.
func (idx *Indexer) TriggerIndex() bool {
	if idx.IsIndexing() {
		return false
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.runLogged("Manual")
	}()
	return true
}

func (idx *Indexer) runLogged(kind string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-idx.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := idx.Index(ctx)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		logging.Debug("%s reconciliation skipped: %v", kind, err)
	case err != nil:
		logging.Error("%s reconciliation failed: %v", kind, err)
	default:
		logging.Info("%s reconciliation: %d records in %d folders checked, %d pruned, %d missing derivatives (%v)",
			kind, res.Checked, res.Folders, res.Pruned, res.MissingDerivatives, res.Duration.Round(time.Millisecond))
	}
}

// Index runs one reconciliation pass over every registered folder.
func (idx *Indexer) Index(ctx context.Context) (Result, error) {
	if !idx.tryStartIndexing() {
		return Result{}, ErrAlreadyRunning
	}
	start := time.Now()
	var res Result
	defer func() { idx.finishIndexing(res) }()

	folders, err := idx.store.ListFolders(ctx)
	if err != nil {
		return res, fmt.Errorf("list folders: %w", err)
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !folderReachable(folder.Path) {
			logging.Warn("Library folder %s is not reachable, skipping reconciliation", folder.Path)
			res.SkippedFolders++
			continue
		}
		res.Folders++

		fr, err := idx.reconcileFolder(ctx, folder)
		res.Checked += fr.Checked
		res.Pruned += fr.Pruned
		res.MissingDerivatives += fr.MissingDerivatives
		if err != nil {
			return res, fmt.Errorf("folder %s: %w", folder.Path, err)
		}
	}

	res.Duration = time.Since(start)
	res.FinishedAt = time.Now()
	metrics.LibraryReconcileDuration.Observe(res.Duration.Seconds())
	metrics.LibraryLastReconcile.Set(float64(res.FinishedAt.Unix()))
	return res, nil
}

func folderReachable(path string) bool {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	return err == nil && info.IsDir()
}

type recordState int

const (
	recordOK recordState = iota
	recordMissing
	recordNoDerivative
	recordUnknown
)

// reconcileFolder stats every record of folder with a bounded pool, since
// each stat can be a network round trip, then prunes the missing ones.
func (idx *Indexer) reconcileFolder(ctx context.Context, folder database.Folder) (Result, error) {
	var res Result
	recs, err := idx.store.ListRecords(ctx, folder.ID)
	if err != nil {
		return res, err
	}
	if len(recs) == 0 {
		return res, nil
	}

	cutoff := time.Now().Add(-idx.grace)
	states := make([]recordState, len(recs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	n := idx.workers
	if n > len(recs) {
		n = len(recs)
	}
	for w := 0; w < n; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				states[i] = checkRecord(recs[i], cutoff)
				idx.checked.Add(1)
			}
		}()
	}
feed:
	for i := range recs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	for i, rec := range recs {
		res.Checked++
		switch states[i] {
		case recordOK:
			metrics.LibraryRecordsChecked.WithLabelValues("ok").Inc()
		case recordNoDerivative:
			res.MissingDerivatives++
			metrics.LibraryRecordsChecked.WithLabelValues("missing_derivative").Inc()
			logging.Debug("Record %d (%s) has no frame-ready derivative", rec.ID, rec.Path)
		case recordMissing:
			if err := idx.store.DeleteRecord(ctx, rec.ID); err != nil {
				return res, err
			}
			res.Pruned++
			metrics.LibraryRecordsChecked.WithLabelValues("pruned").Inc()
			logging.Info("Pruned record %d: %s no longer exists", rec.ID, rec.Path)
		case recordUnknown:
			logging.Debug("Record %d (%s) could not be checked, leaving it", rec.ID, rec.Path)
		}
	}
	return res, nil
}

func checkRecord(rec database.ImageRecord, cutoff time.Time) recordState {
	cfg := filesystem.DefaultRetryConfig()
	if _, err := filesystem.StatWithRetry(rec.Path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) && rec.DateAdded.Before(cutoff) {
			return recordMissing
		}
		return recordUnknown
	}
	if rec.DerivativePath == "" {
		return recordNoDerivative
	}
	if _, err := filesystem.StatWithRetry(rec.DerivativePath, cfg); errors.Is(err, os.ErrNotExist) {
		return recordNoDerivative
	}
	return recordOK
}

func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	idx.startedAt = time.Now()
	idx.checked.Store(0)
	return true
}

func (idx *Indexer) finishIndexing(res Result) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	idx.isIndexing = false
	if !res.FinishedAt.IsZero() {
		idx.last = &res
	}
}

// IsIndexing reports whether a pass is in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastResult returns the most recent completed pass, or nil.
func (idx *Indexer) LastResult() *Result {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	if idx.last == nil {
		return nil
	}
	r := *idx.last
	return &r
}

// GetProgress returns the current state.
func (idx *Indexer) GetProgress() Progress {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	p := Progress{IsIndexing: idx.isIndexing, Checked: idx.checked.Load()}
	if idx.isIndexing {
		p.StartedAt = idx.startedAt
	}
	if idx.last != nil {
		r := *idx.last
		p.Last = &r
	}
	return p
}
