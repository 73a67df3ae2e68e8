// Package accounts is an in-memory identity backend. It implements both
// authflow gateways and publishes session-status changes for the client
// that signed in.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/pubsub"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for the accounts backend.
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials provided")
)

// Outcome error codes, mirroring what identity providers report.
const (
	CodeCredentialsSignin = "CredentialsSignin"
	CodeOAuthSignin       = "OAuthSignin"
)

// Account is a registered user.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash []byte
	Provider     string
	CreatedAt    time.Time
}

// Service stores accounts in memory.
type Service struct {
	mu        sync.RWMutex
	byEmail   map[string]*Account
	providers map[string]bool
	hashCost  int
	publisher pubsub.Publisher
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

// WithProviders sets the social identity providers accepted by
// SignInWithProvider.
func WithProviders(names ...string) Option {
	return func(s *Service) {
		s.providers = make(map[string]bool, len(names))
		for _, n := range names {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				s.providers[n] = true
			}
		}
	}
}

// WithPublisher sets where session-status changes are published. Without
// one, no status changes are announced.
func WithPublisher(p pubsub.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates an empty account store accepting github and google.
func NewService(opts ...Option) *Service {
	s := &Service{
		byEmail:   make(map[string]*Account),
		providers: map[string]bool{"github": true, "google": true},
		hashCost:  bcrypt.DefaultCost,
		logger:    slog.Default().With("component", "accounts"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account for record.
func (s *Service) Register(ctx context.Context, record authflow.CredentialRecord) error {
	email := normalizeEmail(record.Email)
	if email == "" || record.Password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(record.Password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return ErrUserAlreadyExists
	}
	s.byEmail[email] = &Account{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(record.Name),
		Email:        email,
		PasswordHash: hash,
		Provider:     "credentials",
		CreatedAt:    time.Now().UTC(),
	}

	s.logger.Info("Account registered", "email", email)
	return nil
}

// SignInWithCredentials verifies the email/password pair. A rejected pair is
// an Outcome error, not a Go error.
func (s *Service) SignInWithCredentials(ctx context.Context, record authflow.CredentialRecord, opts authflow.SignInOptions) (authflow.Outcome, error) {
	clientID := sessionwatch.ClientIDFromContext(ctx)
	s.announce(ctx, clientID, sessionwatch.StatusLoading, "")

	if _, err := s.Authenticate(record.Email, record.Password); err != nil {
		s.logger.Warn("Failed login attempt", "email", record.Email, "error", err)
		s.announce(ctx, clientID, sessionwatch.StatusUnauthenticated, "")
		return authflow.Outcome{OK: false, Error: CodeCredentialsSignin}, nil
	}

	s.announce(ctx, clientID, sessionwatch.StatusAuthenticated, normalizeEmail(record.Email))
	return authflow.Outcome{OK: true}, nil
}

// SignInWithProvider accepts any configured provider and links a provider
// account on first use.
func (s *Service) SignInWithProvider(ctx context.Context, provider string, opts authflow.SignInOptions) (authflow.Outcome, error) {
	clientID := sessionwatch.ClientIDFromContext(ctx)
	name := strings.ToLower(strings.TrimSpace(provider))

	s.mu.Lock()
	if !s.providers[name] {
		s.mu.Unlock()
		s.logger.Warn("Social sign-in with unknown provider", "provider", provider)
		return authflow.Outcome{OK: false, Error: CodeOAuthSignin}, nil
	}

	subject := name + ":" + clientID
	if _, exists := s.byEmail[subject]; !exists {
		s.byEmail[subject] = &Account{
			ID:        uuid.New(),
			Email:     subject,
			Provider:  name,
			CreatedAt: time.Now().UTC(),
		}
	}
	s.mu.Unlock()

	s.announce(ctx, clientID, sessionwatch.StatusAuthenticated, subject)
	return authflow.Outcome{OK: true}, nil
}

// Authenticate returns the account matching email and password.
func (s *Service) Authenticate(email, password string) (*Account, error) {
	s.mu.RLock()
	acct, ok := s.byEmail[normalizeEmail(email)]
	s.mu.RUnlock()

	if !ok || acct.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

// FindByEmail returns the account registered under email.
func (s *Service) FindByEmail(email string) (*Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byEmail[normalizeEmail(email)]
	return acct, ok
}

// HasProvider reports whether name is an accepted social provider.
func (s *Service) HasProvider(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[strings.ToLower(name)]
}

func (s *Service) announce(ctx context.Context, clientID string, status sessionwatch.Status, subject string) {
	if s.publisher == nil || clientID == "" {
		return
	}
	change := sessionwatch.StatusChanged{Status: status, Subject: subject}
	if err := sessionwatch.PublishStatus(ctx, s.publisher, clientID, change); err != nil {
		s.logger.Error("Failed to publish session status", "client_id", clientID, "status", status, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
