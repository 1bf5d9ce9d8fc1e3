package middleware

import (
	"context"
	"net/http"

	"github.com/go-credential-api/internal/application/verification"
	"github.com/go-credential-api/internal/domain"
)

const verifiedLinkKey contextKey = "verified_link"

// VerifiedLink is what a passing verification attaches to the request
// context: the decoded email claim and the matched store record. The handler
// that consumes the action deletes the record after its own work succeeds.
type VerifiedLink struct {
	Email  string
	Record *domain.PendingLink
}

// VerifyLink returns middleware that runs the verification state machine
// over the token and email query parameters and rejects everything but a
// VALID verdict. Both expiry kinds collapse into one user-facing message;
// they stay distinct states inside the machine.
func VerifyLink(m *verification.Machine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			token, email := q.Get("token"), q.Get("email")
			if token == "" || email == "" {
				writeJSONError(w, http.StatusBadRequest, "token and email are required")
				return
			}

			// q.Get already percent-decoded the email, matching how records
			// are stored; the machine re-encodes it while reconstructing the
			// canonical link.
			res, err := m.Verify(r.Context(), token, email)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "verification failed")
				return
			}
			switch res.State {
			case verification.StateValid:
				ctx := context.WithValue(r.Context(), verifiedLinkKey, &VerifiedLink{
					Email:  res.Email,
					Record: res.Record,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			case verification.StateNotFound:
				writeJSONError(w, http.StatusUnauthorized, "link not found or email does not match")
			default:
				writeJSONError(w, http.StatusUnauthorized, "link invalid or expired")
			}
		})
	}
}

// VerifiedLinkFromContext extracts the verified link from the request context.
func VerifiedLinkFromContext(ctx context.Context) (*VerifiedLink, bool) {
	v, ok := ctx.Value(verifiedLinkKey).(*VerifiedLink)
	return v, ok
}
