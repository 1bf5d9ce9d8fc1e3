package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Conflict refinements for link issuance. Callers must be able to tell
	// "a link is already outstanding" apart from "this email already has an account".
	ErrAlreadyPending    = errors.New("verification link already pending")
	ErrAlreadyRegistered = errors.New("email already registered")

	// Token and link staleness. ErrTokenExpired means the signed token's own
	// embedded expiry has passed; ErrLinkExpired means the stored record's
	// expiry passed while the token was still valid. The HTTP layer collapses
	// both into one message; cleanup logic treats them differently.
	ErrTokenExpired = errors.New("token expired")
	ErrLinkExpired  = errors.New("link expired")
	ErrInvalidToken = errors.New("invalid token")
)
