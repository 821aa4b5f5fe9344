package handler

import (
	"encoding/json"
	"net/http"

	"github.com/course-remind/internal/application/registry"
	"github.com/course-remind/internal/domain"
	"github.com/course-remind/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// DeviceHandler handles device registration endpoints.
type DeviceHandler struct {
	svc registry.Service
}

func NewDeviceHandler(svc registry.Service) *DeviceHandler { return &DeviceHandler{svc: svc} }

// Register claims the posted destination token for the authenticated user.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.svc.Register(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	devices, err := h.svc.ListAll(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// Deactivate soft-deletes one of the caller's registrations. Tokens owned by
// other users are reported as not found rather than forbidden, so the
// endpoint cannot be used to probe foreign tokens.
func (h *DeviceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	token := chi.URLParam(r, "token")
	devices, err := h.svc.ListAll(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	for _, d := range devices {
		if d.Token != token {
			continue
		}
		if err := h.svc.Deactivate(r.Context(), token); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "device deactivated"})
		return
	}
	writeError(w, http.StatusNotFound, "device not found")
}

// DeactivateAll turns off every registration of the caller, e.g. on account
// deletion or a global logout.
func (h *DeviceHandler) DeactivateAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.DeactivateAll(r.Context(), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "all devices deactivated"})
}
