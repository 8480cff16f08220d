package ingest

import (
	"context"
	"fmt"

	"framefolio/internal/logging"
	"framefolio/internal/metrics"
)

// ResolveDuplicate applies action to filename, which must be in
// duplicate_detected. Skip discards the upload. Overwrite and import_anyway
// resume the pipeline at geometry classification; the file may then finalize,
// be rejected as portrait, or wait for positioning. The work runs before
// ResolveDuplicate returns.
func (t *Tracker) ResolveDuplicate(ctx context.Context, jobID, filename, action string) (FileResult, error) {
	job, err := t.job(jobID)
	if err != nil {
		return FileResult{}, err
	}
	act, err := ParseDuplicateAction(action)
	if err != nil {
		return FileResult{}, err
	}
	idx, err := job.claim(filename, StatusDuplicateDetected)
	if err != nil {
		return FileResult{}, err
	}
	defer job.release(idx)

	metrics.IngestResolutionsTotal.WithLabelValues("duplicate", string(act)).Inc()
	logging.Info("Job %s: duplicate %s resolved with %s", jobID, filename, act)

	if act == ActionSkip {
		job.advance(idx, StatusSkipped, nil)
		return job.file(idx), nil
	}

	job.mu.Lock()
	job.files[idx].dupAction = act
	job.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if err := t.limiter.Acquire(ctx); err != nil {
		return FileResult{}, err
	}
	defer t.limiter.Release()

	err = t.route(ctx, job, idx)
	return job.file(idx), err
}

// ResolvePositioning applies p to filename, which must be in
// needs_positioning. An invalid crop is rejected with ErrValidation and the
// file keeps waiting.
func (t *Tracker) ResolvePositioning(ctx context.Context, jobID, filename string, p Positioning) (FileResult, error) {
	job, err := t.job(jobID)
	if err != nil {
		return FileResult{}, err
	}
	switch {
	case p.Skip && p.Crop != nil:
		return FileResult{}, fmt.Errorf("%w: crop and skip are exclusive", ErrValidation)
	case !p.Skip && p.Crop == nil:
		return FileResult{}, fmt.Errorf("%w: a crop rectangle or skip is required", ErrValidation)
	case p.Crop != nil:
		if err := p.Crop.Validate(); err != nil {
			return FileResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	idx, err := job.claim(filename, StatusNeedsPositioning)
	if err != nil {
		return FileResult{}, err
	}
	defer job.release(idx)

	if p.Skip {
		metrics.IngestResolutionsTotal.WithLabelValues("positioning", "skip").Inc()
		job.advance(idx, StatusSkipped, nil)
		return job.file(idx), nil
	}
	metrics.IngestResolutionsTotal.WithLabelValues("positioning", "crop").Inc()
	logging.Info("Job %s: %s positioned at %+v", jobID, filename, *p.Crop)

	ctx = context.WithoutCancel(ctx)
	if t.memory != nil {
		if err := t.memory.WaitIfPaused(ctx); err != nil {
			return job.file(idx), err
		}
	}
	if err := t.limiter.Acquire(ctx); err != nil {
		return FileResult{}, err
	}
	defer t.limiter.Release()

	err = t.finalize(ctx, job, idx, p.Crop)
	return job.file(idx), err
}
