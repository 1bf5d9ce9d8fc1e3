package http

import (
	"github.com/go-credential-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
	"github.com/go-credential-api/internal/infrastructure/mail"
	"github.com/go-credential-api/internal/pkg/link"
)

// Deps holds all infrastructure dependencies for the router. Both pending
// tables use the same repo type; only the table name differs.
type Deps struct {
	AccountRepo        *dynamo.AccountRepo
	RegistrationLinks  *dynamo.PendingLinkRepo
	PasswordResetLinks *dynamo.PendingLinkRepo
	Mailer             mail.Sender
	Codec              *jwtinfra.Codec
	Links              *link.Builder
}
