package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-credential-api/internal/application/login"
	"github.com/go-credential-api/internal/application/recovery"
	"github.com/go-credential-api/internal/application/registration"
	"github.com/go-credential-api/internal/application/verification"
	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/transport/http/handler"
	appmiddleware "github.com/go-credential-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrationSvc := registration.NewService(registration.ServiceDeps{
		Accounts:     deps.AccountRepo,
		Pending:      deps.RegistrationLinks,
		Mailer:       deps.Mailer,
		Codec:        deps.Codec,
		Links:        deps.Links,
		LinkLifetime: cfg.LinkLifetime,
	})
	recoverySvc := recovery.NewService(recovery.ServiceDeps{
		Accounts:     deps.AccountRepo,
		Pending:      deps.PasswordResetLinks,
		Mailer:       deps.Mailer,
		Codec:        deps.Codec,
		Links:        deps.Links,
		LinkLifetime: cfg.LinkLifetime,
	})
	loginSvc := login.NewService(deps.AccountRepo, deps.Codec)

	regMachine := verification.NewMachine(domain.LinkKindRegistration, deps.Codec, deps.Links, deps.RegistrationLinks)
	resetMachine := verification.NewMachine(domain.LinkKindPasswordReset, deps.Codec, deps.Links, deps.PasswordResetLinks)

	healthH := handler.NewHealthHandler()
	regH := handler.NewRegistrationHandler(registrationSvc)
	resetH := handler.NewPasswordResetHandler(recoverySvc)
	sessionH := handler.NewSessionHandler(loginSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/registration-links", regH.IssueLink)
		r.With(sensitiveRL.Limit).Post("/registration-links/resend", regH.ResendLink)
		r.With(appmiddleware.VerifyLink(regMachine)).Post("/registrations", regH.Finalize)

		r.With(sensitiveRL.Limit).Post("/password-reset-links", resetH.IssueLink)
		r.With(sensitiveRL.Limit).Post("/password-reset-links/resend", resetH.ResendLink)
		r.With(appmiddleware.VerifyLink(resetMachine)).Post("/password-resets", resetH.Finalize)

		r.With(sensitiveRL.Limit).Post("/email-recovery", resetH.RecoverEmail)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Codec))
			r.Get("/accounts/me", sessionH.Me)
		})
	})

	return r
}
