package link

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-credential-api/internal/domain"
)

// Builder produces the canonical verification link for a token+email pair.
//
// The link string is compared byte-for-byte against the stored record during
// verification, so construction must be deterministic: one configured base
// URL (never the request's Host header), a fixed path per kind, and a fixed
// parameter order with token before the percent-encoded email.
type Builder struct {
	baseURL string
}

func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Build returns base + path(kind) + "?token=" + token + "&email=" + encoded email.
func (b *Builder) Build(kind domain.LinkKind, token, email string) string {
	return fmt.Sprintf("%s%s?token=%s&email=%s", b.baseURL, Path(kind), token, url.QueryEscape(email))
}

// Parse is the inverse of Build. It rejects links whose path does not match a
// known kind or whose base differs from the configured one.
func (b *Builder) Parse(link string) (domain.LinkKind, string, string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", "", fmt.Errorf("parse link: %w", err)
	}
	var kind domain.LinkKind
	switch u.Path {
	case Path(domain.LinkKindRegistration):
		kind = domain.LinkKindRegistration
	case Path(domain.LinkKindPasswordReset):
		kind = domain.LinkKindPasswordReset
	default:
		return "", "", "", fmt.Errorf("unknown link path %q: %w", u.Path, domain.ErrBadRequest)
	}
	if got := u.Scheme + "://" + u.Host; got != b.baseURL {
		return "", "", "", fmt.Errorf("link base %q does not match configured base: %w", got, domain.ErrBadRequest)
	}
	q := u.Query()
	token, email := q.Get("token"), q.Get("email")
	if token == "" || email == "" {
		return "", "", "", fmt.Errorf("link missing token or email: %w", domain.ErrBadRequest)
	}
	return kind, token, email, nil
}

// Path returns the finalize endpoint path for a link kind.
func Path(kind domain.LinkKind) string {
	if kind == domain.LinkKindPasswordReset {
		return "/v1/password-resets"
	}
	return "/v1/registrations"
}
