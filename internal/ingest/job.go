package ingest

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"framefolio/internal/filesystem"
	"framefolio/internal/logging"
	"framefolio/internal/metrics"
)

// Job is one upload submission. All mutations go through its methods, which
// hold mu and republish the snapshot before returning.
type Job struct {
	mu         sync.Mutex
	id         string
	folderID   int64
	folderPath string
	status     JobStatus
	progress   int
	files      []*FileResult
	errors     []string
	sealed     bool
	createdAt  time.Time
	updatedAt  time.Time
	now        func() time.Time

	snapshot atomic.Pointer[JobSnapshot]
	done     chan struct{}
}

func newJob(id string, folderID int64, now func() time.Time) *Job {
	t := now()
	j := &Job{
		id:        id,
		folderID:  folderID,
		status:    JobProcessing,
		createdAt: t,
		updatedAt: t,
		now:       now,
		done:      make(chan struct{}),
	}
	j.publishLocked()
	return j
}

// Snapshot returns the most recently published state. It never blocks on
// in-flight processing.
func (j *Job) Snapshot() JobSnapshot {
	return *j.snapshot.Load()
}

// Done is closed once the automatic pass over every file has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) addFile(f *FileResult) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files = append(j.files, f)
	j.publishLocked()
	return len(j.files) - 1
}

// file returns a copy of the file at idx.
func (j *Job) file(idx int) FileResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return *j.files[idx]
}

// pending lists the files the automatic pass still has to process.
func (j *Job) pending() []int {
	j.mu.Lock()
	defer j.mu.Unlock()
	var idx []int
	for i, f := range j.files {
		if f.Status == StatusReceived {
			idx = append(idx, i)
		}
	}
	return idx
}

// claim marks the file named filename busy for a resolve call. The file must
// currently be in status want and not already claimed.
func (j *Job) claim(filename string, want FileStatus) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	found := -1
	for i, f := range j.files {
		if f.Filename != filename {
			continue
		}
		if found < 0 {
			found = i
		}
		if f.Status == want && !f.busy {
			f.busy = true
			return i, nil
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("%w: file %q in job %s", ErrNotFound, filename, j.id)
	}
	f := j.files[found]
	if f.busy {
		return -1, fmt.Errorf("%w: %q is already being resolved", ErrValidation, filename)
	}
	return -1, fmt.Errorf("%w: %q is %s, not %s", ErrValidation, filename, f.Status, want)
}

func (j *Job) release(idx int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.files[idx].busy = false
}

// advance moves the file at idx to status to, applying mutate first. A move
// to a terminal status removes any staged bytes before the new state is
// published. Illegal moves are logged and ignored.
func (j *Job) advance(idx int, to FileStatus, mutate func(*FileResult)) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	f := j.files[idx]
	if !canTransition(f.Status, to) {
		logging.Error("Job %s: refusing transition of %s from %s to %s", j.id, f.Filename, f.Status, to)
		return false
	}
	if mutate != nil {
		mutate(f)
	}
	f.Status = to
	if to.Terminal() && f.StagingPath != "" {
		filesystem.RemoveQuietly(f.StagingPath)
		f.StagingPath = ""
	}
	if to.Terminal() || to.Awaiting() {
		metrics.IngestFilesTotal.WithLabelValues(string(to)).Inc()
	}
	j.publishLocked()
	return true
}

// fail moves the file at idx to failed and records err against the job. A
// refused transition leaves the error list untouched.
func (j *Job) fail(idx int, err error) bool {
	var name string
	ok := j.advance(idx, StatusFailed, func(f *FileResult) {
		name = f.Filename
		f.Error = err.Error()
		j.errors = append(j.errors, fmt.Sprintf("%s: %v", name, err))
	})
	if ok {
		logging.Warn("Job %s: %s failed: %v", j.id, name, err)
	}
	return ok
}

// seal marks the end of submission. Until then the job cannot complete.
func (j *Job) seal() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sealed = true
	j.publishLocked()
}

// abort marks a setup fault. The job stays in error regardless of its files.
func (j *Job) abort(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = JobError
	j.errors = append(j.errors, err.Error())
	j.publishLocked()
}

func (j *Job) setFolder(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.folderPath = path
}

func (j *Job) folder() (int64, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.folderID, j.folderPath
}

// publishLocked recomputes the aggregate status and progress and stores a
// fresh snapshot. Callers hold mu.
func (j *Job) publishLocked() {
	done, awaiting, terminal := 0, 0, 0
	for _, f := range j.files {
		switch {
		case f.Status.Terminal():
			done++
			terminal++
		case f.Status.Awaiting():
			done++
			awaiting++
		}
	}

	if j.status != JobError {
		switch {
		case awaiting > 0:
			j.status = JobWaitingForUserAction
		case terminal == len(j.files) && j.sealed:
			j.status = JobComplete
		default:
			j.status = JobProcessing
		}
	}

	// An empty job reads 0% until submission ends.
	progress := 0
	switch {
	case len(j.files) > 0:
		progress = done * 100 / len(j.files)
	case j.sealed:
		progress = 100
	}
	if progress > j.progress {
		j.progress = progress
	}

	j.updatedAt = j.now()

	files := make([]FileResult, len(j.files))
	for i, f := range j.files {
		files[i] = *f
	}
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)

	j.snapshot.Store(&JobSnapshot{
		ID:         j.id,
		Status:     j.status,
		Progress:   j.progress,
		TotalFiles: len(j.files),
		FolderID:   j.folderID,
		Files:      files,
		Errors:     errs,
		CreatedAt:  j.createdAt,
		UpdatedAt:  j.updatedAt,
	})
}
