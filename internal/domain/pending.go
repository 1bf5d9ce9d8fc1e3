package domain

import "time"

// LinkKind discriminates the two single-use verification flows.
type LinkKind string

const (
	LinkKindRegistration  LinkKind = "registration"
	LinkKindPasswordReset LinkKind = "password_reset"
)

// PendingLink is one outstanding verification link for an email address.
// PK: email, so at most one live link of a given kind per email.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL; it is authored from the
// same configured lifetime as the token's embedded expiry but checked
// independently, so a record can be retired server-side without touching the
// signing secret.
type PendingLink struct {
	Email     string    `json:"email" dynamodbav:"email"`
	Link      string    `json:"-" dynamodbav:"link"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Expired reports whether the stored record is past its own expiry.
func (p *PendingLink) Expired(now time.Time) bool {
	return p.ExpiresAt < now.Unix()
}
