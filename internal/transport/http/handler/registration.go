package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-credential-api/internal/application/registration"
	"github.com/go-credential-api/internal/pkg/validate"
	"github.com/go-credential-api/internal/transport/http/middleware"
)

// RegistrationHandler handles the registration-link lifecycle endpoints.
type RegistrationHandler struct {
	svc registration.Service
}

func NewRegistrationHandler(svc registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// IssueLink handles POST /v1/registration-links.
func (h *RegistrationHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.IssueLink(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "registration link sent"})
}

// ResendLink handles POST /v1/registration-links/resend.
func (h *RegistrationHandler) ResendLink(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "registration link resent"})
}

// Finalize handles POST /v1/registrations. It runs behind the registration
// verification middleware, which guarantees a VALID verdict and attaches the
// verified email.
func (h *RegistrationHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	verified, ok := middleware.VerifiedLinkFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req registration.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	account, err := h.svc.Finalize(r.Context(), verified.Email, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisteredEnvelope{
		Message:   "user registered successfully",
		ID:        account.AccountID,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	})
}
