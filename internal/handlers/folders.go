package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"framefolio/internal/database"
	"framefolio/internal/logging"
)

// FolderRequest registers a library folder.
type FolderRequest struct {
	Path string `json:"path"`
}

// ListFolders returns every registered library folder.
func (h *Handlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.store.ListFolders(r.Context())
	if err != nil {
		logging.Error("Failed to list folders: %v", err)
		writeJSONError(w, "Failed to list folders", http.StatusInternalServerError)
		return
	}
	if folders == nil {
		folders = []database.Folder{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, folders)
}

// AddFolder registers an existing directory as a library folder. Registering
// the same directory twice returns the existing folder.
func (h *Handlers) AddFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" || !filepath.IsAbs(req.Path) {
		writeJSONError(w, "An absolute path is required", http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(req.Path); err != nil || !info.IsDir() {
		writeJSONError(w, "Path is not an existing directory", http.StatusBadRequest)
		return
	}

	folder, err := h.store.AddFolder(r.Context(), req.Path)
	if err != nil {
		logging.Error("Failed to add folder %s: %v", req.Path, err)
		writeJSONError(w, "Failed to add folder", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusCreated, folder)
}
