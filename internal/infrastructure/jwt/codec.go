package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// LinkClaims is the payload of a verification-link token: an email claim plus
// the embedded expiry. Nothing else is stored in the token; everything about
// the pending action lives in the store.
type LinkClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionClaims is the payload of a login session token.
type SessionClaims struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 JWTs with a process-wide shared secret.
type Codec struct {
	secret     []byte
	linkTTL    time.Duration
	sessionTTL time.Duration
}

func NewCodec(cfg *config.Config) (*Codec, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	return &Codec{
		secret:     []byte(cfg.JWTSecret),
		linkTTL:    cfg.LinkLifetime,
		sessionTTL: cfg.SessionLifetime,
	}, nil
}

// IssueLinkToken mints a signed token carrying the email claim, expiring
// after the configured link lifetime. Pure function of secret + clock.
func (c *Codec) IssueLinkToken(email string) (string, error) {
	claims := LinkClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.linkTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// VerifyLinkToken parses and validates a link token. Expiry and signature
// failure are distinct: callers clean up the store only on expiry.
// Returns domain.ErrTokenExpired or domain.ErrInvalidToken.
func (c *Codec) VerifyLinkToken(tokenStr string) (*LinkClaims, error) {
	claims := &LinkClaims{}
	if err := c.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueSessionToken mints the signed token returned on login.
func (c *Codec) IssueSessionToken(accountID, email string) (string, error) {
	claims := SessionClaims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// VerifySessionToken parses and validates a session token.
func (c *Codec) VerifySessionToken(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := c.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("verify token: %w", domain.ErrTokenExpired)
		}
		return fmt.Errorf("verify token: %w", domain.ErrInvalidToken)
	}
	if !token.Valid {
		return fmt.Errorf("verify token: %w", domain.ErrInvalidToken)
	}
	return nil
}
