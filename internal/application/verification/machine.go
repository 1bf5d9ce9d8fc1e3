package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-credential-api/internal/domain"
	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
	"github.com/go-credential-api/internal/pkg/link"
)

// State is the terminal verdict for a token+email pair.
type State int

const (
	StateValid State = iota
	// StateInvalid: signature mismatch or malformed token. No store mutation:
	// a forged token must not be able to delete anyone's pending link.
	StateInvalid
	// StateTokenExpired: the token's embedded expiry has passed. The stored
	// record (if any) is deleted as a side effect.
	StateTokenExpired
	// StateLinkExpired: the token is still valid but the stored record's own
	// expiry has passed. The record is deleted as a side effect.
	StateLinkExpired
	// StateNotFound: no record matches the reconstructed link exactly. No
	// mutation: absence may mean never issued, already consumed, or a
	// misconfigured base URL; none of those justify deleting anything.
	StateNotFound
)

// Result carries the verdict plus, on StateValid, the verified email and the
// matched record. The caller that consumes the action deletes the record only
// after the protected action succeeds, so a verify-then-crash does not
// silently lose the pending action.
type Result struct {
	State  State
	Email  string
	Record *domain.PendingLink
}

// TokenVerifier is the codec capability the machine needs.
type TokenVerifier interface {
	VerifyLinkToken(token string) (*jwtinfra.LinkClaims, error)
}

// PendingStore is the store capability the machine needs.
type PendingStore interface {
	GetByLink(ctx context.Context, link, email string) (*domain.PendingLink, error)
	Delete(ctx context.Context, email string) error
}

// Machine decides whether a verification link of one kind may proceed. It
// holds no mutable state of its own: all coordination goes through the store,
// so concurrent verifications interleave safely.
type Machine struct {
	kind  domain.LinkKind
	codec TokenVerifier
	links *link.Builder
	store PendingStore
}

func NewMachine(kind domain.LinkKind, codec TokenVerifier, links *link.Builder, store PendingStore) *Machine {
	return &Machine{kind: kind, codec: codec, links: links, store: store}
}

// Verify runs the checks in order, short-circuiting on the first failure:
// token signature and embedded expiry, canonical link reconstruction, exact
// match against the stored record, then the record's own expiry. The email
// must arrive already percent-decoded; records are stored decoded.
//
// A non-nil error means the store failed and no verdict could be reached.
func (m *Machine) Verify(ctx context.Context, token, email string) (*Result, error) {
	if _, err := m.codec.VerifyLinkToken(token); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			m.cleanup(ctx, email)
			return &Result{State: StateTokenExpired, Email: email}, nil
		}
		return &Result{State: StateInvalid, Email: email}, nil
	}

	expected := m.links.Build(m.kind, token, email)
	rec, err := m.store.GetByLink(ctx, expected, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Result{State: StateNotFound, Email: email}, nil
		}
		return nil, err
	}

	if rec.Expired(time.Now()) {
		m.cleanup(ctx, email)
		return &Result{State: StateLinkExpired, Email: email}, nil
	}

	return &Result{State: StateValid, Email: email, Record: rec}, nil
}

// cleanup is best-effort: a failed delete is logged, never surfaced, and must
// not block the reject verdict.
func (m *Machine) cleanup(ctx context.Context, email string) {
	if err := m.store.Delete(ctx, email); err != nil {
		slog.Warn("failed to delete stale pending link", "kind", m.kind, "err", err)
	}
}
