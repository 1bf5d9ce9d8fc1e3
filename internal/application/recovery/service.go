package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/pkg/link"
	"golang.org/x/crypto/bcrypt"
)

// IssueRequest carries the identity attributes a reset-link request must
// present. Matching them against the account is an identity-verification
// step, not just an email-existence check.
type IssueRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required"`
	Surname     string `json:"surname" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// RecoverEmailRequest asks for the masked email of the account matching the
// given identity attributes.
type RecoverEmailRequest struct {
	Name        string `json:"name" validate:"required"`
	Surname     string `json:"surname" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// AccountStore is the account capability the service needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByIdentity(ctx context.Context, name, surname, dateOfBirth string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// PendingStore is the pending-link capability the service needs.
type PendingStore interface {
	PutIfAbsent(ctx context.Context, p *domain.PendingLink) error
	Replace(ctx context.Context, p *domain.PendingLink) error
	GetByEmail(ctx context.Context, email string) (*domain.PendingLink, error)
	Delete(ctx context.Context, email string) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Mailer is the outbound email capability the service needs.
type Mailer interface {
	SendPasswordResetLink(to, link string) error
	SendPasswordChanged(to string) error
}

// TokenIssuer is the codec capability the service needs.
type TokenIssuer interface {
	IssueLinkToken(email string) (string, error)
}

type Service interface {
	IssueLink(ctx context.Context, req IssueRequest) error
	ResendLink(ctx context.Context, email string) error
	Finalize(ctx context.Context, email, newPassword string) error
	RecoverEmail(ctx context.Context, req RecoverEmailRequest) (string, error)
}

type ServiceDeps struct {
	Accounts     AccountStore
	Pending      PendingStore
	Mailer       Mailer
	Codec        TokenIssuer
	Links        *link.Builder
	LinkLifetime time.Duration
}

type service struct {
	accounts     AccountStore
	pending      PendingStore
	mailer       Mailer
	codec        TokenIssuer
	links        *link.Builder
	linkLifetime time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accounts:     deps.Accounts,
		pending:      deps.Pending,
		mailer:       deps.Mailer,
		codec:        deps.Codec,
		links:        deps.Links,
		linkLifetime: deps.LinkLifetime,
	}
}

// IssueLink mints a password-reset link after verifying that the email
// belongs to a finalized account whose name, surname and date of birth all
// match the request.
func (s *service) IssueLink(ctx context.Context, req IssueRequest) error {
	if _, err := s.pending.SweepExpired(ctx, time.Now()); err != nil {
		slog.Warn("lazy sweep of password reset links failed", "err", err)
	}

	acc, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no matching account: %w", domain.ErrNotFound)
		}
		return err
	}
	if acc.Name != req.Name || acc.Surname != req.Surname || acc.DateOfBirth != req.DateOfBirth {
		// Identity attributes must match exactly; a near-miss is a miss.
		return fmt.Errorf("no matching account: %w", domain.ErrNotFound)
	}

	stale := false
	if rec, err := s.pending.GetByEmail(ctx, req.Email); err == nil {
		if !rec.Expired(time.Now()) {
			return fmt.Errorf("password reset link for this email: %w", domain.ErrAlreadyPending)
		}
		stale = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	token, err := s.codec.IssueLinkToken(req.Email)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	now := time.Now().UTC()
	rec := &domain.PendingLink{
		Email:     req.Email,
		Link:      s.links.Build(domain.LinkKindPasswordReset, token, req.Email),
		ExpiresAt: now.Add(s.linkLifetime).Unix(),
		CreatedAt: now,
	}

	if stale {
		err = s.pending.Replace(ctx, rec)
	} else {
		err = s.pending.PutIfAbsent(ctx, rec)
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("password reset link for this email: %w", domain.ErrAlreadyPending)
		}
		return err
	}

	if err := s.mailer.SendPasswordResetLink(req.Email, rec.Link); err != nil {
		if derr := s.pending.Delete(ctx, req.Email); derr != nil {
			slog.Warn("failed to roll back reset link after send failure", "err", derr)
		}
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResendLink re-sends the stored reset link unchanged; a stale record is
// deleted and rejected.
func (s *service) ResendLink(ctx context.Context, email string) error {
	rec, err := s.pending.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no password reset link for this email: %w", domain.ErrNotFound)
		}
		return err
	}
	if rec.Expired(time.Now()) {
		if derr := s.pending.Delete(ctx, email); derr != nil {
			slog.Warn("failed to delete expired reset link", "err", derr)
		}
		return fmt.Errorf("password reset link: %w", domain.ErrLinkExpired)
	}
	if err := s.mailer.SendPasswordResetLink(email, rec.Link); err != nil {
		return fmt.Errorf("resend reset email: %w", err)
	}
	return nil
}

// Finalize consumes a verified reset link: updates the password digest,
// deletes the pending record, then sends the confirmation email. A failed
// confirmation send surfaces as an error: the password did change, but the
// caller must not report a silent success for an incomplete flow.
func (s *service) Finalize(ctx context.Context, email, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, email, string(hash)); err != nil {
		return err
	}

	if err := s.pending.Delete(ctx, email); err != nil {
		slog.Warn("failed to delete consumed reset link", "err", err)
	}

	if err := s.mailer.SendPasswordChanged(email); err != nil {
		return fmt.Errorf("send password changed email: %w", err)
	}
	return nil
}

// RecoverEmail returns the masked email of the account matching the identity
// attributes.
func (s *service) RecoverEmail(ctx context.Context, req RecoverEmailRequest) (string, error) {
	acc, err := s.accounts.FindByIdentity(ctx, req.Name, req.Surname, req.DateOfBirth)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("no matching account: %w", domain.ErrNotFound)
		}
		return "", err
	}
	return maskEmail(acc.Email), nil
}

// maskEmail keeps the first three and last two characters of the local part
// and replaces the middle with a fixed-width run of asterisks, so the mask
// leaks nothing about the local part's length.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local, dom := email[:at], email[at:]
	head := local
	if len(head) > 3 {
		head = head[:3]
	}
	tail := ""
	if len(local) >= 2 {
		tail = local[len(local)-2:]
	}
	return head + strings.Repeat("*", 9) + tail + dom
}
