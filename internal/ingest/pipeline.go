package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"framefolio/internal/database"
	"framefolio/internal/filesystem"
	"framefolio/internal/logging"
	"framefolio/internal/media"
	"framefolio/internal/metrics"
)

// processFile takes one staged file through hashing, duplicate detection and
// geometry routing. Every fault fails only this file.
func (t *Tracker) processFile(ctx context.Context, job *Job, idx int) {
	if err := t.limiter.Acquire(ctx); err != nil {
		job.fail(idx, err)
		return
	}
	defer t.limiter.Release()

	f := job.file(idx)

	fp, err := FingerprintFile(f.StagingPath)
	if err != nil {
		job.fail(idx, err)
		return
	}
	job.advance(idx, StatusHashed, func(f *FileResult) { f.Fingerprint = fp })

	match, err := t.findDuplicate(ctx, fp)
	if err != nil {
		job.fail(idx, err)
		return
	}
	if match != nil {
		info := t.describeDuplicate(f.StagingPath, f.Filename, match)
		logging.Info("Job %s: %s duplicates %s", job.id, f.Filename, match.Path)
		job.advance(idx, StatusDuplicateDetected, func(f *FileResult) { f.Duplicate = &info })
		return
	}

	// route fails the file itself on error.
	t.route(ctx, job, idx)
}

// findDuplicate returns the library record with fingerprint fp. A record
// whose file has vanished is reported and ignored.
func (t *Tracker) findDuplicate(ctx context.Context, fp string) (*database.ImageRecord, error) {
	rec, err := t.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate lookup: %v", ErrIO, err)
	}
	if rec == nil {
		return nil, nil
	}
	if !filesystem.Exists(rec.Path) {
		metrics.IngestStoreInconsistencies.Inc()
		logging.Warn("%v: record %d points at missing file %s", ErrStoreInconsistency, rec.ID, rec.Path)
		return nil, nil
	}
	return rec, nil
}

func (t *Tracker) describeDuplicate(stagingPath, filename string, rec *database.ImageRecord) DuplicateInfo {
	info := DuplicateInfo{Location: "library", RecordID: rec.ID, Path: rec.Path}

	if fi, err := media.DescribeFile(stagingPath, filename); err == nil {
		info.Incoming = fi
	} else {
		info.Incoming = media.FileInfo{Name: filename}
		logging.Debug("Could not describe %s: %v", filename, err)
	}
	if fi, err := media.DescribeFile(rec.Path, filepath.Base(rec.Path)); err == nil {
		info.Existing = fi
	} else {
		info.Existing = media.FileInfo{Name: filepath.Base(rec.Path)}
		logging.Debug("Could not describe %s: %v", rec.Path, err)
	}

	var err error
	if info.IncomingThumbnail, err = t.codec.Thumbnail(stagingPath, media.DuplicateThumbSize); err != nil {
		logging.Debug("No thumbnail for %s: %v", filename, err)
	}
	if info.ExistingThumbnail, err = t.codec.Thumbnail(rec.Path, media.DuplicateThumbSize); err != nil {
		logging.Debug("No thumbnail for %s: %v", rec.Path, err)
	}
	return info
}

// route classifies the staged image and rejects it, asks for positioning, or
// finalizes it with the automatic crop. A non-nil error means the file failed.
func (t *Tracker) route(ctx context.Context, job *Job, idx int) error {
	if t.memory != nil {
		if err := t.memory.WaitIfPaused(ctx); err != nil {
			job.fail(idx, err)
			return err
		}
	}

	f := job.file(idx)
	w, h, err := t.codec.DecodeDimensions(f.StagingPath)
	if err != nil {
		job.fail(idx, err)
		return err
	}
	g := media.Classify(w, h)
	job.advance(idx, StatusGeometryChecked, func(f *FileResult) { f.Geometry = &g })

	switch {
	case g.Orientation == media.Portrait:
		logging.Info("Job %s: %s rejected, portrait %dx%d", job.id, f.Filename, w, h)
		job.advance(idx, StatusPortraitRejected, nil)
		return nil

	case !g.IsCloseToTarget:
		preview, err := t.codec.Thumbnail(f.StagingPath, media.PositioningPreviewSize)
		if err != nil {
			logging.Warn("Job %s: no preview for %s: %v", job.id, f.Filename, err)
		}
		job.advance(idx, StatusNeedsPositioning, func(f *FileResult) { f.Preview = preview })
		return nil
	}

	return t.finalize(ctx, job, idx, nil)
}

// finalize stores the staged file in the destination folder with its
// derivative and record. Finalization within one folder is serialized so two
// files never pick the same name. On any fault the partial work is undone
// and the file fails.
func (t *Tracker) finalize(ctx context.Context, job *Job, idx int, rect *media.NormRect) error {
	folderID, folderPath := job.folder()
	f := job.file(idx)

	unlock := t.folders.Lock(folderPath)
	defer unlock()

	target := filepath.Join(folderPath, f.Filename)
	path := uniqueName(folderPath, f.Filename)
	exportDir := media.ExportDir(folderPath)

	id, err := t.store.InsertRecord(ctx, path, folderID, f.Fingerprint)
	if err != nil {
		err = fmt.Errorf("%w: insert record: %v", ErrIO, err)
		job.fail(idx, err)
		return err
	}

	derivative, err := t.transformer.ExportFrameReady(f.StagingPath, exportDir, filepath.Base(path), rect)
	if err != nil {
		t.undoRecord(ctx, id)
		job.fail(idx, err)
		return err
	}

	if err := filesystem.Move(f.StagingPath, path, filesystem.DefaultRetryConfig()); err != nil {
		filesystem.RemoveQuietly(derivative)
		t.undoRecord(ctx, id)
		err = fmt.Errorf("%w: %v", ErrIO, err)
		job.fail(idx, err)
		return err
	}

	if err := t.store.SetDerivativePath(ctx, id, derivative); err != nil {
		logging.Warn("Job %s: record %d has no derivative path: %v", job.id, id, err)
	}

	if f.dupAction == ActionOverwrite && f.Duplicate != nil && f.Duplicate.RecordID != id {
		path, derivative = t.replace(ctx, job, id, f.Duplicate.RecordID, path, target, derivative)
	}

	logging.Info("Job %s: %s stored as %s", job.id, f.Filename, path)
	job.advance(idx, StatusSuccess, func(f *FileResult) {
		f.RecordID = id
		f.FinalPath = path
		f.DerivativePath = derivative
		f.StagingPath = ""
	})
	return nil
}

// replace removes the matched record of an overwrite and moves the new file
// and derivative onto the original name. The new file was written under a
// free name first, so a failure here leaves it stored under that name.
func (t *Tracker) replace(ctx context.Context, job *Job, id, oldID int64, path, target, derivative string) (string, string) {
	if err := t.store.DeleteRecord(ctx, oldID); err != nil {
		logging.Warn("Job %s: could not remove replaced record %d: %v", job.id, oldID, err)
		return path, derivative
	}
	if path == target || filesystem.Exists(target) {
		return path, derivative
	}

	cfg := filesystem.DefaultRetryConfig()
	if err := filesystem.Move(path, target, cfg); err != nil {
		logging.Warn("Job %s: keeping %s, rename to %s failed: %v", job.id, path, target, err)
		return path, derivative
	}
	if err := t.store.UpdateRecordPath(ctx, id, target); err != nil {
		logging.Warn("Job %s: record %d path not updated: %v", job.id, id, err)
	}

	exportDir := filepath.Dir(derivative)
	newDerivative := derivative
	if name := media.FrameReadyName(filepath.Base(target)); name != filepath.Base(derivative) {
		newDerivative = filepath.Join(exportDir, media.FreeFrameReadyName(exportDir, filepath.Base(target)))
	}
	if newDerivative != derivative {
		if err := filesystem.Move(derivative, newDerivative, cfg); err != nil {
			logging.Warn("Job %s: keeping derivative %s: %v", job.id, derivative, err)
			return target, derivative
		}
		if err := t.store.SetDerivativePath(ctx, id, newDerivative); err != nil {
			logging.Warn("Job %s: record %d derivative path not updated: %v", job.id, id, err)
		}
	}
	return target, newDerivative
}

func (t *Tracker) undoRecord(ctx context.Context, id int64) {
	if err := t.store.DeleteRecord(ctx, id); err != nil {
		logging.Error("Could not roll back record %d: %v", id, err)
	}
}

// uniqueName returns folder/filename if no file exists there, and otherwise
// folder/stem_N.ext with the smallest free N >= 1. Callers hold the folder
// lock.
func uniqueName(folder, filename string) string {
	candidate := filepath.Join(folder, filename)
	if !filesystem.Exists(candidate) {
		return candidate
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 1; ; n++ {
		candidate = filepath.Join(folder, stem+"_"+strconv.Itoa(n)+ext)
		if !filesystem.Exists(candidate) {
			return candidate
		}
	}
}
