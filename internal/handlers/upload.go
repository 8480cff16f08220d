package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"framefolio/internal/ingest"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// UploadResponse is returned by Upload.
type UploadResponse struct {
	JobID string `json:"job_id"`
}

// DuplicateRequest resolves a file in duplicate_detected.
type DuplicateRequest struct {
	Filename string `json:"filename"`
	Action   string `json:"action"`
}

// PositionRequest resolves a file in needs_positioning.
type PositionRequest struct {
	Filename string `json:"filename"`
	ingest.Positioning
}

// ResolveResponse reports the resolved file and the job's new aggregate state.
type ResolveResponse struct {
	File ingest.FileResult `json:"file"`
	Job  ingest.JobSummary `json:"job"`
}

// Upload accepts multipart files ("files") for a folder ("folder_id") and
// starts an ingest job.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	folderID, err := strconv.ParseInt(r.FormValue("folder_id"), 10, 64)
	if err != nil {
		writeJSONError(w, "folder_id is required", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSONError(w, "At least one file is required", http.StatusBadRequest)
		return
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSONError(w, "Failed to read upload "+fh.Filename, http.StatusBadRequest)
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)
		uploads = append(uploads, ingest.Upload{Filename: fh.Filename, Body: f})
	}

	id, err := h.tracker.Submit(r.Context(), uploads, folderID)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSONStatusCode(w, http.StatusAccepted, UploadResponse{JobID: id})
}

// GetUploadStatus returns the job snapshot.
func (h *Handlers) GetUploadStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.tracker.Status(mux.Vars(r)["id"])
	if err != nil {
		writeIngestError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, snap)
}

// ResolveDuplicate applies a skip, overwrite or import_anyway decision.
func (h *Handlers) ResolveDuplicate(w http.ResponseWriter, r *http.Request) {
	var req DuplicateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Filename == "" || req.Action == "" {
		writeJSONError(w, "filename and action are required", http.StatusBadRequest)
		return
	}

	jobID := mux.Vars(r)["id"]
	res, err := h.tracker.ResolveDuplicate(r.Context(), jobID, req.Filename, req.Action)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	h.writeResolved(w, jobID, res)
}

// ResolvePositioning applies a crop rectangle or skip.
func (h *Handlers) ResolvePositioning(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		writeJSONError(w, "filename is required", http.StatusBadRequest)
		return
	}

	jobID := mux.Vars(r)["id"]
	res, err := h.tracker.ResolvePositioning(r.Context(), jobID, req.Filename, req.Positioning)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	h.writeResolved(w, jobID, res)
}

func (h *Handlers) writeResolved(w http.ResponseWriter, jobID string, res ingest.FileResult) {
	snap, err := h.tracker.Status(jobID)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ResolveResponse{File: res, Job: snap.Summary()})
}

// ListJobs returns every job, newest first.
func (h *Handlers) ListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := h.tracker.List()
	if jobs == nil {
		jobs = []ingest.JobSummary{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, jobs)
}
