package ingest

import (
	"errors"

	"framefolio/internal/media"
)

var (
	// ErrNotFound reports an unknown job, file or destination folder.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports a malformed request: an unknown action, a bad crop
	// rectangle, or a resolve call for a file that is not awaiting that decision.
	ErrValidation = errors.New("invalid request")

	// ErrIO reports staging, hashing or file move failures.
	ErrIO = errors.New("i/o failure")

	// ErrTransform reports decode, crop, resample or encode failures.
	ErrTransform = media.ErrTransform

	// ErrStoreInconsistency reports a record whose file no longer exists.
	ErrStoreInconsistency = errors.New("record store inconsistency")
)
