package handler

import (
	"net/http"

	"blogger-platform/backend/internal/platform/httpx"
)

type healthResponse struct {
	Status string `json:"status"`
}

// ServeHTTP answers GET /healthz with 200 SERVING or 503 NOT_SERVING.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := c.Check(r.Context()); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "NOT_SERVING"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "SERVING"})
}
