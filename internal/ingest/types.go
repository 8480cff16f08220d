package ingest

import (
	"fmt"
	"io"
	"time"

	"framefolio/internal/media"
)

// FileStatus is the position of one file in the ingest state machine.
type FileStatus string

const (
	StatusReceived          FileStatus = "received"
	StatusHashed            FileStatus = "hashed"
	StatusDuplicateDetected FileStatus = "duplicate_detected"
	StatusGeometryChecked   FileStatus = "geometry_checked"
	StatusNeedsPositioning  FileStatus = "needs_positioning"
	StatusPortraitRejected  FileStatus = "portrait_rejected"
	StatusSuccess           FileStatus = "success"
	StatusSkipped           FileStatus = "skipped"
	StatusFailed            FileStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s FileStatus) Terminal() bool {
	switch s {
	case StatusPortraitRejected, StatusSuccess, StatusSkipped, StatusFailed:
		return true
	}
	return false
}

// Awaiting reports whether the file waits for a user decision.
func (s FileStatus) Awaiting() bool {
	return s == StatusDuplicateDetected || s == StatusNeedsPositioning
}

// rank orders statuses along the state graph. A file only ever moves to a
// strictly higher rank.
func (s FileStatus) rank() int {
	switch s {
	case StatusReceived:
		return 0
	case StatusHashed:
		return 1
	case StatusDuplicateDetected:
		return 2
	case StatusGeometryChecked:
		return 3
	case StatusNeedsPositioning:
		return 4
	default:
		return 5
	}
}

func canTransition(from, to FileStatus) bool {
	return !from.Terminal() && to.rank() > from.rank()
}

// JobStatus is the aggregate state of a job.
type JobStatus string

const (
	JobProcessing            JobStatus = "processing"
	JobWaitingForUserAction  JobStatus = "waiting_for_user_action"
	JobComplete              JobStatus = "complete"
	JobError                 JobStatus = "error"
)

// DuplicateAction is the decision for a file in duplicate_detected.
type DuplicateAction string

const (
	ActionSkip         DuplicateAction = "skip"
	ActionOverwrite    DuplicateAction = "overwrite"
	ActionImportAnyway DuplicateAction = "import_anyway"
)

// ParseDuplicateAction validates an action string.
func ParseDuplicateAction(s string) (DuplicateAction, error) {
	switch a := DuplicateAction(s); a {
	case ActionSkip, ActionOverwrite, ActionImportAnyway:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown duplicate action %q", ErrValidation, s)
}

// Positioning is the decision for a file in needs_positioning: either a crop
// rectangle or Skip.
type Positioning struct {
	Crop *media.NormRect `json:"crop,omitempty"`
	Skip bool            `json:"skip,omitempty"`
}

// Upload is one submitted file. Body is fully read during Submit.
type Upload struct {
	Filename string
	Body     io.Reader
}

// DuplicateInfo describes the library record an upload matched. It is a
// snapshot taken at detection time.
type DuplicateInfo struct {
	Location          string         `json:"location"`
	RecordID          int64          `json:"id"`
	Path              string         `json:"path"`
	Incoming          media.FileInfo `json:"incoming"`
	Existing          media.FileInfo `json:"existing"`
	IncomingThumbnail string         `json:"incoming_thumbnail,omitempty"`
	ExistingThumbnail string         `json:"existing_thumbnail,omitempty"`
}

// FileResult is the state of one submitted file.
type FileResult struct {
	Filename       string          `json:"filename"`
	Status         FileStatus      `json:"status"`
	Fingerprint    string          `json:"fingerprint,omitempty"`
	Duplicate      *DuplicateInfo  `json:"duplicate_info,omitempty"`
	Geometry       *media.Geometry `json:"geometry,omitempty"`
	Preview        string          `json:"preview,omitempty"`
	RecordID       int64           `json:"record_id,omitempty"`
	FinalPath      string          `json:"final_path,omitempty"`
	DerivativePath string          `json:"derivative_path,omitempty"`
	Error          string          `json:"error,omitempty"`

	// StagingPath is owned by the pipeline until the file is terminal.
	StagingPath string `json:"-"`

	// dupAction is the duplicate decision, kept for a later positioning resolve.
	dupAction DuplicateAction
	busy      bool
}

// Outcome is the tagged view of a FileResult. Exactly one of the types below
// implements it for any status.
type Outcome interface {
	isOutcome()
}

type (
	// Pending: still moving through the automatic path.
	Pending struct{ Status FileStatus }
	// AwaitingDuplicate: needs a DuplicateAction.
	AwaitingDuplicate struct{ Info DuplicateInfo }
	// AwaitingPositioning: needs a crop rectangle or skip.
	AwaitingPositioning struct {
		Geometry media.Geometry
		Preview  string
	}
	// Finalized: stored in the library.
	Finalized struct {
		RecordID       int64
		Path           string
		DerivativePath string
	}
	// Skipped: discarded on request.
	Skipped struct{}
	// Rejected: portrait images are never accepted.
	Rejected struct{ Geometry media.Geometry }
	// Failed: an I/O or transform fault ended processing.
	Failed struct{ Err string }
)

func (Pending) isOutcome()             {}
func (AwaitingDuplicate) isOutcome()   {}
func (AwaitingPositioning) isOutcome() {}
func (Finalized) isOutcome()           {}
func (Skipped) isOutcome()             {}
func (Rejected) isOutcome()            {}
func (Failed) isOutcome()              {}

// Outcome returns the tagged variant for the file's current status.
func (f FileResult) Outcome() Outcome {
	switch f.Status {
	case StatusDuplicateDetected:
		if f.Duplicate != nil {
			return AwaitingDuplicate{Info: *f.Duplicate}
		}
	case StatusNeedsPositioning:
		if f.Geometry != nil {
			return AwaitingPositioning{Geometry: *f.Geometry, Preview: f.Preview}
		}
	case StatusSuccess:
		return Finalized{RecordID: f.RecordID, Path: f.FinalPath, DerivativePath: f.DerivativePath}
	case StatusSkipped:
		return Skipped{}
	case StatusPortraitRejected:
		var g media.Geometry
		if f.Geometry != nil {
			g = *f.Geometry
		}
		return Rejected{Geometry: g}
	case StatusFailed:
		return Failed{Err: f.Error}
	}
	return Pending{Status: f.Status}
}

// JobSnapshot is an immutable copy of a job's state.
type JobSnapshot struct {
	ID         string       `json:"job_id"`
	Status     JobStatus    `json:"status"`
	Progress   int          `json:"progress"`
	TotalFiles int          `json:"total_files"`
	FolderID   int64        `json:"folder_id"`
	Files      []FileResult `json:"files"`
	Errors     []string     `json:"errors"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// JobSummary is the list view of a job.
type JobSummary struct {
	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	TotalFiles int       `json:"total_files"`
	FolderID   int64     `json:"folder_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary drops per-file detail.
func (s JobSnapshot) Summary() JobSummary {
	return JobSummary{
		ID:         s.ID,
		Status:     s.Status,
		Progress:   s.Progress,
		TotalFiles: s.TotalFiles,
		FolderID:   s.FolderID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// File returns the first file named filename.
func (s JobSnapshot) File(filename string) (FileResult, bool) {
	for _, f := range s.Files {
		if f.Filename == filename {
			return f, true
		}
	}
	return FileResult{}, false
}
