package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-credential-api/internal/application/recovery"
	"github.com/go-credential-api/internal/pkg/validate"
	"github.com/go-credential-api/internal/transport/http/middleware"
)

// PasswordResetHandler handles the password-reset-link lifecycle endpoints.
type PasswordResetHandler struct {
	svc recovery.Service
}

func NewPasswordResetHandler(svc recovery.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

// IssueLink handles POST /v1/password-reset-links.
func (h *PasswordResetHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	var req recovery.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.IssueLink(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset link sent"})
}

// ResendLink handles POST /v1/password-reset-links/resend.
func (h *PasswordResetHandler) ResendLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.ResendLink(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset link resent"})
}

// Finalize handles POST /v1/password-resets, behind the reset verification
// middleware.
func (h *PasswordResetHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	verified, ok := middleware.VerifiedLinkFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Finalize(r.Context(), verified.Email, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset successfully"})
}

// RecoverEmail handles POST /v1/email-recovery.
func (h *PasswordResetHandler) RecoverEmail(w http.ResponseWriter, r *http.Request) {
	var req recovery.RecoverEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	masked, err := h.svc.RecoverEmail(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"masked_email": masked})
}
