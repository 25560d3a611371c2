// Package http provides the local JSON API for session handling, sign
// capture and the marker layer.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/roadsigns/internal/models"
	"github.com/atinyakov/roadsigns/internal/service"
)

// AuthService defines the session operations required by the HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, identity, secret string) error
	Login(ctx context.Context, identity, secret string) error
	Logout(ctx context.Context) error
	Session() models.Session
}

// AuthHandler handles HTTP requests for registration, login and logout.
type AuthHandler struct {
	// AuthService performs the underlying session operations.
	AuthService AuthService
}

// CredentialRequest represents the JSON payload for register and login.
type CredentialRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialRequest, bool) {
	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	err := h.AuthService.Register(r.Context(), req.Identity, req.Secret)
	switch {
	case errors.Is(err, service.ErrInvalidIdentity):
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrDuplicateIdentity):
		http.Error(w, "user already exists", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// Login handles POST /api/login. A mismatch never tells which field was
// wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	err := h.AuthService.Login(r.Context(), req.Identity, req.Secret)
	if errors.Is(err, service.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, h.AuthService.Session())
}

// Logout handles POST /api/logout. Cleanup failures are reported but the
// session is already closed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context()); err != nil {
		http.Error(w, "logout incomplete", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.AuthService.Session())
}

// Session handles GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.AuthService.Session())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
