package handlers

import (
	"context"
	"time"

	"framefolio/internal/database"
	"framefolio/internal/ingest"
	"framefolio/internal/startup"
)

// Ingester is the job tracker as seen by the HTTP layer.
type Ingester interface {
	Submit(ctx context.Context, uploads []ingest.Upload, folderID int64) (string, error)
	Status(id string) (ingest.JobSnapshot, error)
	ResolveDuplicate(ctx context.Context, jobID, filename, action string) (ingest.FileResult, error)
	ResolvePositioning(ctx context.Context, jobID, filename string, p ingest.Positioning) (ingest.FileResult, error)
	List() []ingest.JobSummary
	Counts() (active, awaitingDuplicate, awaitingPositioning int)
}

// Store is the subset of the database the handlers use directly.
type Store interface {
	AddFolder(ctx context.Context, path string) (*database.Folder, error)
	ListFolders(ctx context.Context) ([]database.Folder, error)
	CountImages(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type Handlers struct {
	tracker        Ingester
	store          Store
	reconciler     Reconciler
	maxUploadBytes int64
	startTime      time.Time
}

func New(tracker Ingester, store Store, config *startup.Config) *Handlers {
	return &Handlers{
		tracker:        tracker,
		store:          store,
		maxUploadBytes: config.MaxUploadBytes(),
		startTime:      time.Now(),
	}
}
