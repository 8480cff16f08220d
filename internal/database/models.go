package database

import "time"

// Folder is a library destination that uploads are filed into.
type Folder struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageRecord is one finalized library image.
type ImageRecord struct {
	ID             int64     `json:"id"`
	Path           string    `json:"path"`
	FolderID       int64     `json:"folder_id"`
	Fingerprint    string    `json:"fingerprint"`
	DerivativePath string    `json:"derivative_path,omitempty"`
	DateAdded      time.Time `json:"date_added"`
}
