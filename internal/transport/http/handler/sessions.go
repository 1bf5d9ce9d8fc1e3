package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-credential-api/internal/application/login"
	"github.com/go-credential-api/internal/pkg/validate"
	"github.com/go-credential-api/internal/transport/http/middleware"
)

// SessionHandler handles login and current-account endpoints.
type SessionHandler struct {
	svc login.Service
}

func NewSessionHandler(svc login.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Login handles POST /v1/sessions/login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	token, account, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		Token: token,
		Email: account.Email,
		ID:    account.AccountID,
	})
}

// Me handles GET /v1/accounts/me, behind the session auth middleware.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.svc.Get(r.Context(), claims.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
