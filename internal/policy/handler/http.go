// Package handler exposes authorization decisions to content services over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogger-platform/backend/internal/platform/httpx"
	"blogger-platform/backend/internal/platform/rbac"
	"blogger-platform/backend/internal/server/middleware"
)

// Handler serves POST /authz/decisions for the caller in the request context.
type Handler struct {
	evaluator rbac.Evaluator
}

// NewHandler returns a Handler backed by evaluator.
func NewHandler(evaluator rbac.Evaluator) *Handler {
	return &Handler{evaluator: evaluator}
}

// Routes registers the authorization routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/authz/decisions", h.Decide)
}

type decisionRequest struct {
	Action   rbac.Action   `json:"action"`
	Resource rbac.Resource `json:"resource"`
}

type decisionResponse struct {
	Decision rbac.Decision `json:"decision"`
}

// Decide evaluates the action on the resource for the current caller. The decision is always
// returned with 200; only an evaluation failure is an error status.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var in decisionRequest
	if err := httpx.DecodeStrict(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	d, err := h.evaluator.Authorize(r.Context(), middleware.PrincipalFrom(r.Context()), in.Action, in.Resource)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, decisionResponse{Decision: d})
}
