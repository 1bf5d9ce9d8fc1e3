package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-credential-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionEnvelope wraps login responses.
type SessionEnvelope struct {
	Token string `json:"token"`
	Email string `json:"email"`
	ID    string `json:"id"`
}

// RegisteredEnvelope wraps a completed registration.
type RegisteredEnvelope struct {
	Message   string `json:"message"`
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes. The two
// conflict kinds keep distinct messages: clients depend on telling "already
// pending" apart from "already registered".
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyPending), errors.Is(err, domain.ErrAlreadyRegistered), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrLinkExpired), errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "link invalid or expired")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
