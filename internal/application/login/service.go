package login

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-credential-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore is the account capability the service needs.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// TokenIssuer is the codec capability the service needs.
type TokenIssuer interface {
	IssueSessionToken(accountID, email string) (string, error)
}

type Service interface {
	// Login verifies the password and returns a signed session token plus the
	// account. Unknown email and wrong password are indistinguishable to the
	// caller.
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	Get(ctx context.Context, email string) (*domain.Account, error)
}

type service struct {
	accounts AccountStore
	codec    TokenIssuer
}

func NewService(accounts AccountStore, codec TokenIssuer) Service {
	return &service{accounts: accounts, codec: codec}
}

func (s *service) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	token, err := s.codec.IssueSessionToken(acc.AccountID, acc.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue session token: %w", err)
	}
	return token, acc, nil
}

func (s *service) Get(ctx context.Context, email string) (*domain.Account, error) {
	return s.accounts.GetByEmail(ctx, email)
}
