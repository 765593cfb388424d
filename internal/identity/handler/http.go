// Package handler exposes login, refresh, logout and the current identity over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogger-platform/backend/internal/identity/domain"
	"blogger-platform/backend/internal/platform/httpx"
	"blogger-platform/backend/internal/server/middleware"
)

// AuthService is the part of *service.AuthService the handler calls.
type AuthService interface {
	LoginWithPassword(ctx context.Context, loginOrEmail, password string, client domain.ClientInfo) (*domain.CredentialPair, error)
	Refresh(ctx context.Context, refreshToken string, client domain.ClientInfo) (*domain.CredentialPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Handler serves the /auth routes.
type Handler struct {
	auth         AuthService
	secureCookie bool
}

// NewHandler returns a Handler. secureCookie sets the Secure attribute on the refresh cookie.
func NewHandler(auth AuthService, secureCookie bool) *Handler {
	return &Handler{auth: auth, secureCookie: secureCookie}
}

// Routes registers the /auth routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh-token", h.RefreshToken)
	r.Post("/auth/logout", h.Logout)
	r.With(middleware.RequireUser).Get("/auth/me", h.Me)
}

type loginRequest struct {
	LoginOrEmail string `json:"loginOrEmail"`
	Password     string `json:"password"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type meResponse struct {
	UserID string `json:"userId"`
	Login  string `json:"login"`
	Email  string `json:"email"`
}

// Login verifies credentials, returns the access token and sets the refresh cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpx.DecodeStrict(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	pair, err := h.auth.LoginWithPassword(r.Context(), in.LoginOrEmail, in.Password, middleware.ClientFrom(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writePair(w, pair)
}

// RefreshToken rotates the refresh cookie and returns a new access token.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	pair, err := h.auth.Refresh(r.Context(), httpx.RefreshTokenFrom(r), middleware.ClientFrom(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writePair(w, pair)
}

// Logout revokes the refresh cookie's token and ends its device session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), httpx.RefreshTokenFrom(r)); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.ClearRefreshCookie(w, h.secureCookie)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFrom(r.Context())
	httpx.WriteJSON(w, http.StatusOK, meResponse{UserID: p.UserID, Login: p.Login, Email: p.Email})
}

func (h *Handler) writePair(w http.ResponseWriter, pair *domain.CredentialPair) {
	httpx.SetRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt, h.secureCookie)
	httpx.WriteJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}
