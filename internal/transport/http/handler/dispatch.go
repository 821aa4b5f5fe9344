package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/course-remind/internal/application/dispatch"
)

// DispatchHandler exposes the manual scan trigger. This is an operational
// escape hatch, not a stable contract; the background worker is the normal
// driver of scans.
type DispatchHandler struct {
	svc dispatch.Service
}

func NewDispatchHandler(svc dispatch.Service) *DispatchHandler {
	return &DispatchHandler{svc: svc}
}

// Scan runs one dispatch tick over the requested window (default 5
// minutes back from now). Deduplication makes overlapping manual runs safe.
func (h *DispatchHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WindowMinutes int `json:"window_minutes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if body.WindowMinutes <= 0 {
		body.WindowMinutes = 5
	}

	now := time.Now().UTC()
	prev := now.Add(-time.Duration(body.WindowMinutes) * time.Minute)
	stats, err := h.svc.Scan(r.Context(), prev, now)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
