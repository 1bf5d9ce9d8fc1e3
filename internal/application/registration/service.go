package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/pkg/id"
	"github.com/go-credential-api/internal/pkg/link"
	"golang.org/x/crypto/bcrypt"
)

// FinalizeRequest carries the profile fields supplied when a verified
// registration link is consumed.
type FinalizeRequest struct {
	Name        string `json:"name" validate:"required"`
	Surname     string `json:"surname" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// AccountStore is the account capability the service needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	PutIfAbsent(ctx context.Context, a *domain.Account) error
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
	SendRegistrationLink(to, link string) error
}

// TokenIssuer is the codec capability the service needs.
type TokenIssuer interface {
	IssueLinkToken(email string) (string, error)
}

type Service interface {
	IssueLink(ctx context.Context, email string) error
	ResendLink(ctx context.Context, email string) error
	Finalize(ctx context.Context, email string, req FinalizeRequest) (*domain.Account, error)
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

// IssueLink mints a registration link for email, persists it, then sends it.
// The email's three-way existence is classified first: already mid-registration
// (conflict, "already pending"), already a full account (conflict, "already
// registered"), or neither.
func (s *service) IssueLink(ctx context.Context, email string) error {
	// Lazy sweep so a long-dead record doesn't masquerade as a live conflict.
	if _, err := s.pending.SweepExpired(ctx, time.Now()); err != nil {
		slog.Warn("lazy sweep of registration links failed", "err", err)
	}

	stale := false
	if rec, err := s.pending.GetByEmail(ctx, email); err == nil {
		if !rec.Expired(time.Now()) {
			return fmt.Errorf("registration link for this email: %w", domain.ErrAlreadyPending)
		}
		stale = true // swept out from under us or sweep failed; replace atomically below
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("account for this email: %w", domain.ErrAlreadyRegistered)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	return s.mint(ctx, email, stale)
}

// mint creates and stores a fresh link, then emails it. Persist-then-send: a
// failed send deletes the record again so a retry cannot hit a duplicate-
// record conflict.
func (s *service) mint(ctx context.Context, email string, replaceStale bool) error {
	token, err := s.codec.IssueLinkToken(email)
	if err != nil {
		return fmt.Errorf("issue registration token: %w", err)
	}
	now := time.Now().UTC()
	rec := &domain.PendingLink{
		Email:     email,
		Link:      s.links.Build(domain.LinkKindRegistration, token, email),
		ExpiresAt: now.Add(s.linkLifetime).Unix(),
		CreatedAt: now,
	}

	if replaceStale {
		// Single-write swap of the stale record; see PendingLinkRepo.Replace.
		err = s.pending.Replace(ctx, rec)
	} else {
		err = s.pending.PutIfAbsent(ctx, rec)
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("registration link for this email: %w", domain.ErrAlreadyPending)
		}
		return err
	}

	if err := s.mailer.SendRegistrationLink(email, rec.Link); err != nil {
		if derr := s.pending.Delete(ctx, email); derr != nil {
			slog.Warn("failed to roll back registration link after send failure", "err", derr)
		}
		return fmt.Errorf("send registration email: %w", err)
	}
	return nil
}

// ResendLink re-sends the stored link unchanged. It never re-mints: the link
// the user already received stays valid, and a stale record is deleted and
// rejected instead of silently refreshed.
func (s *service) ResendLink(ctx context.Context, email string) error {
	rec, err := s.pending.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no registration link for this email: %w", domain.ErrNotFound)
		}
		return err
	}
	if rec.Expired(time.Now()) {
		if derr := s.pending.Delete(ctx, email); derr != nil {
			slog.Warn("failed to delete expired registration link", "err", derr)
		}
		return fmt.Errorf("registration link: %w", domain.ErrLinkExpired)
	}
	if err := s.mailer.SendRegistrationLink(email, rec.Link); err != nil {
		return fmt.Errorf("resend registration email: %w", err)
	}
	return nil
}

// Finalize consumes a verified registration link: hashes the password,
// creates the account, then deletes the pending record. Deletion happens
// only after the account insert succeeds and is idempotent, so a
// crash between the two steps leaves a consumable-but-conflicting record
// rather than a lost registration.
func (s *service) Finalize(ctx context.Context, email string, req FinalizeRequest) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		AccountID:    id.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Surname:      req.Surname,
		DateOfBirth:  req.DateOfBirth,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.PutIfAbsent(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("account for this email: %w", domain.ErrAlreadyRegistered)
		}
		return nil, err
	}

	if err := s.pending.Delete(ctx, email); err != nil {
		slog.Warn("failed to delete consumed registration link", "err", err)
	}
	return account, nil
}
