package handler

import (
	"encoding/json"
	"net/http"

	"github.com/course-remind/internal/application/dispatch"
	"github.com/course-remind/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CourseHandler exposes the staff-facing course operations: ad-hoc
// broadcasts and the reminder eligibility report.
type CourseHandler struct {
	svc dispatch.Service
}

func NewCourseHandler(svc dispatch.Service) *CourseHandler { return &CourseHandler{svc: svc} }

// Broadcast notifies every current enrollee of the course. The course id
// comes from the URL; a course_id in the body is ignored.
func (h *CourseHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req domain.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.CourseID = chi.URLParam(r, "id")

	result, err := h.svc.Broadcast(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReminderReport describes each enrollee's reminder eligibility, for
// answering "why did user X not get a reminder".
func (h *CourseHandler) ReminderReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
