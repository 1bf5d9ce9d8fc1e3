package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-credential-api/internal/application/recovery"
	"github.com/go-credential-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecoverySvc struct{ mock.Mock }

func (m *mockRecoverySvc) IssueLink(ctx context.Context, req recovery.IssueRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRecoverySvc) ResendLink(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockRecoverySvc) Finalize(ctx context.Context, email, newPassword string) error {
	return m.Called(ctx, email, newPassword).Error(0)
}

func (m *mockRecoverySvc) RecoverEmail(ctx context.Context, req recovery.RecoverEmailRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestResetIssueLink_IdentityMismatchMapsToNotFound(t *testing.T) {
	svc := &mockRecoverySvc{}
	svc.On("IssueLink", mock.Anything, mock.Anything).Return(domain.ErrNotFound)
	h := NewPasswordResetHandler(svc)
	body, _ := json.Marshal(recovery.IssueRequest{
		Email: "ada@example.com", Name: "Ada", Surname: "Byron", DateOfBirth: "1990-12-10",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/password-reset-links", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.IssueLink(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResetIssueLink_ValidationFailure(t *testing.T) {
	svc := &mockRecoverySvc{}
	h := NewPasswordResetHandler(svc)
	body, _ := json.Marshal(map[string]string{"email": "ada@example.com"}) // missing identity fields
	r := httptest.NewRequest(http.MethodPost, "/v1/password-reset-links", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.IssueLink(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "IssueLink", mock.Anything, mock.Anything)
}

func TestResetIssueLink_HappyPath(t *testing.T) {
	svc := &mockRecoverySvc{}
	svc.On("IssueLink", mock.Anything, mock.MatchedBy(func(req recovery.IssueRequest) bool {
		return req.Email == "ada@example.com" && req.Name == "Ada"
	})).Return(nil)
	h := NewPasswordResetHandler(svc)
	body, _ := json.Marshal(recovery.IssueRequest{
		Email: "ada@example.com", Name: "Ada", Surname: "Lovelace", DateOfBirth: "1990-12-10",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/password-reset-links", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.IssueLink(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestResetFinalize_MissingVerifiedLink(t *testing.T) {
	h := NewPasswordResetHandler(&mockRecoverySvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/password-resets", nil)
	rr := httptest.NewRecorder()
	h.Finalize(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRecoverEmail_ReturnsMaskedEmail(t *testing.T) {
	svc := &mockRecoverySvc{}
	svc.On("RecoverEmail", mock.Anything, mock.Anything).
		Return("ada*********ce@example.com", nil)
	h := NewPasswordResetHandler(svc)
	body, _ := json.Marshal(recovery.RecoverEmailRequest{
		Name: "Ada", Surname: "Lovelace", DateOfBirth: "1990-12-10",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/email-recovery", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.RecoverEmail(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ada*********ce@example.com", resp["masked_email"])
}

func TestRecoverEmail_NotFound(t *testing.T) {
	svc := &mockRecoverySvc{}
	svc.On("RecoverEmail", mock.Anything, mock.Anything).Return("", domain.ErrNotFound)
	h := NewPasswordResetHandler(svc)
	body, _ := json.Marshal(recovery.RecoverEmailRequest{
		Name: "No", Surname: "Body", DateOfBirth: "1990-01-01",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/email-recovery", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.RecoverEmail(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
