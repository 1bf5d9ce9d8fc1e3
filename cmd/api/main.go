package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-credential-api/internal/application/verification"
	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-credential-api/internal/infrastructure/jwt"
	"github.com/go-credential-api/internal/infrastructure/mail"
	"github.com/go-credential-api/internal/pkg/link"
	transporthttp "github.com/go-credential-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	codec, err := jwtinfra.NewCodec(cfg)
	if err != nil {
		log.Fatalf("JWT codec: %v", err)
	}

	mailer, err := mail.NewSender(cfg)
	if err != nil {
		log.Fatalf("mail sender: %v", err)
	}

	deps := &transporthttp.Deps{
		AccountRepo:        dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		RegistrationLinks:  dynamo.NewPendingLinkRepo(dynamoClient, cfg.DynamoTables.RegistrationLinks),
		PasswordResetLinks: dynamo.NewPendingLinkRepo(dynamoClient, cfg.DynamoTables.PasswordResetLinks),
		Mailer:             mailer,
		Codec:              codec,
		Links:              link.NewBuilder(cfg.BaseURL),
	}

	// Background reaper: sweeps both pending-link tables on a fixed interval,
	// stopped with the server.
	reaper := verification.NewReaper(cfg.ReaperInterval, deps.RegistrationLinks, deps.PasswordResetLinks)
	reaper.Start()

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	reaper.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
