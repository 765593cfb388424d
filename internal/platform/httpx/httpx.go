// Package httpx holds the JSON and error-response helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	identityservice "blogger-platform/backend/internal/identity/service"
)

// APIError is the error body returned to clients. Message never carries internal details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the root object of an error body.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ErrBadRequest marks request bodies that cannot be decoded.
var ErrBadRequest = errors.New("bad request")

// StatusOf maps an identity-core error to an HTTP status and a stable code.
// Infrastructure failures and unknown errors are 500.
func StatusOf(err error) (int, APIError) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
	case errors.Is(err, identityservice.ErrInfrastructure):
		return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, APIError{Code: "bad_request", Message: "invalid request body"}
	case errors.Is(err, identityservice.ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{Code: "invalid_credentials", Message: "invalid login or password"}
	case errors.Is(err, identityservice.ErrUnauthorized), errors.Is(err, identityservice.ErrBannedActor):
		return http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "authentication required"}
	case errors.Is(err, identityservice.ErrForbidden):
		return http.StatusForbidden, APIError{Code: "forbidden", Message: "forbidden"}
	case errors.Is(err, identityservice.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "not found"}
	default:
		return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
	}
}

// WriteError writes the mapped status and body for err. 5xx causes are logged server-side.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("http: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	WriteJSON(w, status, ErrorResponse{Error: apiErr})
}

// WriteJSON writes value as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// MaxBodyBytes caps JSON request bodies read by DecodeStrict.
const MaxBodyBytes = 64 << 10

// DecodeStrict decodes the request body into value, rejecting unknown fields and bodies
// larger than MaxBodyBytes. Decode failures are returned wrapping ErrBadRequest.
func DecodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
