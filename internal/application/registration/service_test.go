package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/pkg/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockAccountStore struct {
	mock.Mock
}

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountStore) PutIfAbsent(ctx context.Context, a *domain.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

type mockPendingStore struct {
	mock.Mock
}

func (m *mockPendingStore) PutIfAbsent(ctx context.Context, p *domain.PendingLink) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPendingStore) Replace(ctx context.Context, p *domain.PendingLink) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPendingStore) GetByEmail(ctx context.Context, email string) (*domain.PendingLink, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingLink), args.Error(1)
}

func (m *mockPendingStore) Delete(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockPendingStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendRegistrationLink(to, link string) error {
	args := m.Called(to, link)
	return args.Error(0)
}

type stubIssuer struct{}

func (stubIssuer) IssueLinkToken(email string) (string, error) { return "tok-" + email, nil }

func newTestService(accounts *mockAccountStore, pending *mockPendingStore, mailer *mockMailer) Service {
	return NewService(ServiceDeps{
		Accounts:     accounts,
		Pending:      pending,
		Mailer:       mailer,
		Codec:        stubIssuer{},
		Links:        link.NewBuilder("https://api.example.com"),
		LinkLifetime: 30 * time.Minute,
	})
}

func TestIssueLink_HappyPath(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "new@example.com"
	pending.On("SweepExpired", mock.Anything, mock.Anything).Return(0, nil)
	pending.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	accounts.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	pending.On("PutIfAbsent", mock.Anything, mock.MatchedBy(func(p *domain.PendingLink) bool {
		return p.Email == email && p.Link != "" && p.ExpiresAt > time.Now().Unix()
	})).Return(nil)
	mailer.On("SendRegistrationLink", email, mock.Anything).Return(nil)

	err := svc.IssueLink(context.Background(), email)
	require.NoError(t, err)
	pending.AssertExpectations(t)
	mailer.AssertExpectations(t)
	pending.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestIssueLink_AlreadyPending(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "pending@example.com"
	live := &domain.PendingLink{Email: email, ExpiresAt: time.Now().Add(10 * time.Minute).Unix()}
	pending.On("SweepExpired", mock.Anything, mock.Anything).Return(0, nil)
	pending.On("GetByEmail", mock.Anything, email).Return(live, nil)

	err := svc.IssueLink(context.Background(), email)
	require.ErrorIs(t, err, domain.ErrAlreadyPending)
	// The live record must survive a rejected re-request.
	pending.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	pending.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
	pending.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendRegistrationLink", mock.Anything, mock.Anything)
}

func TestIssueLink_AlreadyRegistered(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "taken@example.com"
	pending.On("SweepExpired", mock.Anything, mock.Anything).Return(0, nil)
	pending.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	accounts.On("GetByEmail", mock.Anything, email).Return(&domain.Account{Email: email}, nil)

	err := svc.IssueLink(context.Background(), email)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	assert.NotErrorIs(t, err, domain.ErrAlreadyPending)
	mailer.AssertNotCalled(t, "SendRegistrationLink", mock.Anything, mock.Anything)
}

func TestIssueLink_StaleRecordReplacedAtomically(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "stale@example.com"
	stale := &domain.PendingLink{Email: email, ExpiresAt: time.Now().Add(-time.Minute).Unix()}
	pending.On("SweepExpired", mock.Anything, mock.Anything).Return(0, nil)
	pending.On("GetByEmail", mock.Anything, email).Return(stale, nil)
	accounts.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	pending.On("Replace", mock.Anything, mock.MatchedBy(func(p *domain.PendingLink) bool {
		return p.Email == email && !p.Expired(time.Now())
	})).Return(nil)
	mailer.On("SendRegistrationLink", email, mock.Anything).Return(nil)

	err := svc.IssueLink(context.Background(), email)
	require.NoError(t, err)
	pending.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
	pending.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIssueLink_SendFailureRollsBack(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "new@example.com"
	pending.On("SweepExpired", mock.Anything, mock.Anything).Return(0, nil)
	pending.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	accounts.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	pending.On("PutIfAbsent", mock.Anything, mock.Anything).Return(nil)
	mailer.On("SendRegistrationLink", email, mock.Anything).Return(errors.New("smtp down"))
	pending.On("Delete", mock.Anything, email).Return(nil)

	err := svc.IssueLink(context.Background(), email)
	require.Error(t, err)
	pending.AssertCalled(t, "Delete", mock.Anything, email)
}

func TestIssueLink_ConcurrentInsertLosesAsAlreadyPending(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "racer@example.com"
	pending.On("SweepExpired", mock.Anything, mock.Anything).Return(0, nil)
	pending.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	accounts.On("GetByEmail", mock.Anything, email).Return(nil, domain.ErrNotFound)
	pending.On("PutIfAbsent", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	err := svc.IssueLink(context.Background(), email)
	require.ErrorIs(t, err, domain.ErrAlreadyPending)
	mailer.AssertNotCalled(t, "SendRegistrationLink", mock.Anything, mock.Anything)
}

func TestResendLink_SendsStoredLinkUnchanged(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "user@example.com"
	stored := &domain.PendingLink{
		Email:     email,
		Link:      "https://api.example.com/v1/registrations?token=orig&email=user%40example.com",
		ExpiresAt: time.Now().Add(10 * time.Minute).Unix(),
	}
	pending.On("GetByEmail", mock.Anything, email).Return(stored, nil)
	mailer.On("SendRegistrationLink", email, stored.Link).Return(nil)

	err := svc.ResendLink(context.Background(), email)
	require.NoError(t, err)
	mailer.AssertCalled(t, "SendRegistrationLink", email, stored.Link)
	// Resend never mints a new record.
	pending.AssertNotCalled(t, "PutIfAbsent", mock.Anything, mock.Anything)
	pending.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestResendLink_NotFound(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	pending.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	err := svc.ResendLink(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	mailer.AssertNotCalled(t, "SendRegistrationLink", mock.Anything, mock.Anything)
}

func TestResendLink_ExpiredDeletesAndRejects(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "late@example.com"
	stale := &domain.PendingLink{Email: email, ExpiresAt: time.Now().Add(-time.Minute).Unix()}
	pending.On("GetByEmail", mock.Anything, email).Return(stale, nil)
	pending.On("Delete", mock.Anything, email).Return(nil)

	err := svc.ResendLink(context.Background(), email)
	require.ErrorIs(t, err, domain.ErrLinkExpired)
	pending.AssertCalled(t, "Delete", mock.Anything, email)
	mailer.AssertNotCalled(t, "SendRegistrationLink", mock.Anything, mock.Anything)
}

func TestFinalize_CreatesAccountAndDeletesPending(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "done@example.com"
	accounts.On("PutIfAbsent", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Email == email && a.AccountID != "" && a.Name == "Ada"
	})).Return(nil)
	pending.On("Delete", mock.Anything, email).Return(nil)

	acc, err := svc.Finalize(context.Background(), email, FinalizeRequest{
		Name:        "Ada",
		Surname:     "Lovelace",
		DateOfBirth: "1990-12-10",
		Password:    "correct horse",
	})
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, email, acc.Email)
	// The digest must verify against the submitted password and never echo it.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("correct horse")))
	pending.AssertCalled(t, "Delete", mock.Anything, email)
}

func TestFinalize_ConflictWhenAccountAppeared(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	accounts.On("PutIfAbsent", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	_, err := svc.Finalize(context.Background(), "dupe@example.com", FinalizeRequest{
		Name:        "Ada",
		Surname:     "Lovelace",
		DateOfBirth: "1990-12-10",
		Password:    "correct horse",
	})
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	// The pending record stays until the account insert succeeds.
	pending.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestFinalize_DeleteFailureStillReturnsAccount(t *testing.T) {
	accounts := new(mockAccountStore)
	pending := new(mockPendingStore)
	mailer := new(mockMailer)
	svc := newTestService(accounts, pending, mailer)

	email := "done@example.com"
	accounts.On("PutIfAbsent", mock.Anything, mock.Anything).Return(nil)
	pending.On("Delete", mock.Anything, email).Return(errors.New("dynamo down"))

	acc, err := svc.Finalize(context.Background(), email, FinalizeRequest{
		Name:        "Ada",
		Surname:     "Lovelace",
		DateOfBirth: "1990-12-10",
		Password:    "correct horse",
	})
	require.NoError(t, err)
	assert.NotNil(t, acc)
}
