// Package handler exposes the caller's device sessions over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"blogger-platform/backend/internal/identity/domain"
	"blogger-platform/backend/internal/platform/httpx"
)

// DeviceService is the part of *service.AuthService the handler calls.
type DeviceService interface {
	ResolveDevice(ctx context.Context, refreshToken string) (domain.Principal, string, error)
	ListDevices(ctx context.Context, caller domain.Principal) ([]domain.Device, error)
	LogoutDevice(ctx context.Context, caller domain.Principal, deviceID string) error
	LogoutAllOtherDevices(ctx context.Context, caller domain.Principal, currentDeviceID string) error
}

// Handler serves the /security/devices routes. The caller is identified by the refresh cookie.
type Handler struct {
	devices DeviceService
}

// NewHandler returns a Handler.
func NewHandler(devices DeviceService) *Handler {
	return &Handler{devices: devices}
}

// Routes registers the /security/devices routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/security/devices", h.List)
	r.Delete("/security/devices", h.TerminateOthers)
	r.Delete("/security/devices/{deviceId}", h.Terminate)
}

type deviceResponse struct {
	IP             string    `json:"ip"`
	Title          string    `json:"title"`
	LastActiveDate time.Time `json:"lastActiveDate"`
	DeviceID       string    `json:"deviceId"`
}

// List returns the caller's active devices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.resolve(w, r)
	if !ok {
		return
	}
	devices, err := h.devices.ListDevices(r.Context(), caller)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{IP: d.IP, Title: d.Title, LastActiveDate: d.LastActiveDate, DeviceID: d.DeviceID})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// TerminateOthers ends every device session of the caller except the current one.
func (h *Handler) TerminateOthers(w http.ResponseWriter, r *http.Request) {
	caller, current, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.devices.LogoutAllOtherDevices(r.Context(), caller, current); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Terminate ends one device session of the caller.
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.devices.LogoutDevice(r.Context(), caller, chi.URLParam(r, "deviceId")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (domain.Principal, string, bool) {
	caller, deviceID, err := h.devices.ResolveDevice(r.Context(), httpx.RefreshTokenFrom(r))
	if err != nil {
		httpx.WriteError(w, r, err)
		return domain.Principal{}, "", false
	}
	return caller, deviceID, true
}
