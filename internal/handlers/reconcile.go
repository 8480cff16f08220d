package handlers

import (
	"net/http"

	"framefolio/internal/indexer"
)

// Reconciler is the library indexer as seen by the HTTP layer.
type Reconciler interface {
	TriggerIndex() bool
	GetProgress() indexer.Progress
}

// SetReconciler enables the /api/reconcile endpoints.
func (h *Handlers) SetReconciler(r Reconciler) {
	h.reconciler = r
}

// GetReconcileStatus reports whether a pass is running and the last result.
func (h *Handlers) GetReconcileStatus(w http.ResponseWriter, _ *http.Request) {
	if h.reconciler == nil {
		writeJSONError(w, "Reconciliation is not enabled", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, h.reconciler.GetProgress())
}

// TriggerReconcile starts a reconciliation pass in the background.
func (h *Handlers) TriggerReconcile(w http.ResponseWriter, _ *http.Request) {
	if h.reconciler == nil {
		writeJSONError(w, "Reconciliation is not enabled", http.StatusServiceUnavailable)
		return
	}
	if !h.reconciler.TriggerIndex() {
		writeJSONError(w, "Reconciliation already running", http.StatusConflict)
		return
	}
	writeJSONStatusCode(w, http.StatusAccepted, map[string]string{"status": "started"})
}
