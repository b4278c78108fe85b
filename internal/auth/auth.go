// Package auth provides identity management for seller accounts.
//
// Accounts are stored in the persistence gateway with bcrypt password
// hashes. The provider mirrors the error taxonomy of hosted identity
// services so the conversation layer can map failures to stable
// user-facing messages.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/whatsup-com/whatsup-bot/internal/models"
	"github.com/whatsup-com/whatsup-bot/internal/store"
)

// Sentinel errors returned by Provider implementations.
var (
	ErrEmailInUse      = errors.New("email-already-in-use")
	ErrUserNotFound    = errors.New("user-not-found")
	ErrWrongPassword   = errors.New("wrong-password")
	ErrInvalidEmail    = errors.New("invalid-email")
	ErrTooManyRequests = errors.New("too-many-requests")
)

// Throttle configuration for repeated failed sign-in attempts.
const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutWindow     = 10 * time.Minute
)

// Provider manages seller credentials.
type Provider interface {
	// CreateAccount registers a new account and returns its UID.
	CreateAccount(email, password string) (string, error)
	// Authenticate verifies credentials and returns the account UID.
	Authenticate(email, password string) (string, error)
	// SignOut releases any provider-side state for the account.
	SignOut(uid string) error
}

// Opts holds configuration for a StoreProvider.
type Opts struct {
	MaxFailedAttempts int
	LockoutWindow     time.Duration
}

// Option configures a StoreProvider.
type Option func(*Opts)

// WithMaxFailedAttempts sets how many consecutive failed sign-ins are
// tolerated before the account is temporarily locked.
func WithMaxFailedAttempts(n int) Option {
	return func(o *Opts) {
		o.MaxFailedAttempts = n
	}
}

// WithLockoutWindow sets how long a lockout lasts.
func WithLockoutWindow(d time.Duration) Option {
	return func(o *Opts) {
		o.LockoutWindow = d
	}
}

type failureRecord struct {
	count int
	last  time.Time
}

// StoreProvider implements Provider backed by the persistence gateway.
type StoreProvider struct {
	store store.Store

	mu       sync.Mutex
	failures map[string]*failureRecord
	maxFail  int
	window   time.Duration
}

// NewStoreProvider creates a Provider backed by the given store.
func NewStoreProvider(st store.Store, opts ...Option) *StoreProvider {
	cfg := Opts{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		LockoutWindow:     DefaultLockoutWindow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("StoreProvider.NewStoreProvider: creating auth provider",
		"maxFailedAttempts", cfg.MaxFailedAttempts, "lockoutWindow", cfg.LockoutWindow)
	return &StoreProvider{
		store:    st,
		failures: make(map[string]*failureRecord),
		maxFail:  cfg.MaxFailedAttempts,
		window:   cfg.LockoutWindow,
	}
}

// CreateAccount registers a new account with a bcrypt-hashed password.
func (p *StoreProvider) CreateAccount(email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	if _, err := p.store.GetAccountByEmail(email); err == nil {
		slog.Debug("StoreProvider.CreateAccount: email already registered", "email", email)
		return "", ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("StoreProvider.CreateAccount: failed to hash password", "error", err)
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	uid := uuid.New().String()
	account := models.Account{
		UID:          uid,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := p.store.CreateAccount(account); err != nil {
		return "", fmt.Errorf("failed to persist account: %w", err)
	}
	slog.Info("StoreProvider.CreateAccount: account created", "uid", uid, "email", email)
	return uid, nil
}

// Authenticate verifies credentials and returns the account UID on success.
func (p *StoreProvider) Authenticate(email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !ValidEmail(email) {
		return "", ErrInvalidEmail
	}

	if p.lockedOut(email) {
		slog.Warn("StoreProvider.Authenticate: account temporarily locked", "email", email)
		return "", ErrTooManyRequests
	}

	account, err := p.store.GetAccountByEmail(email)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		p.recordFailure(email)
		slog.Debug("StoreProvider.Authenticate: password mismatch", "email", email)
		return "", ErrWrongPassword
	}

	p.clearFailures(email)
	slog.Info("StoreProvider.Authenticate: sign-in succeeded", "uid", account.UID)
	return account.UID, nil
}

// SignOut clears throttle state for the account. The provider keeps no
// session tokens, so there is nothing else to revoke.
func (p *StoreProvider) SignOut(uid string) error {
	slog.Debug("StoreProvider.SignOut: signing out", "uid", uid)
	return nil
}

func (p *StoreProvider) lockedOut(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.failures[email]
	if !ok {
		return false
	}
	if time.Since(rec.last) > p.window {
		delete(p.failures, email)
		return false
	}
	return rec.count >= p.maxFail
}

func (p *StoreProvider) recordFailure(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.failures[email]
	if !ok || time.Since(rec.last) > p.window {
		rec = &failureRecord{}
		p.failures[email] = rec
	}
	rec.count++
	rec.last = time.Now()
}

func (p *StoreProvider) clearFailures(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failures, email)
}

// UserMessage maps a provider error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmailInUse):
		return "This email is already registered. Please login instead or use a different email."
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email. Please register first."
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password. Please try again."
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email format. Please enter a valid email address."
	case errors.Is(err, ErrTooManyRequests):
		return "Too many attempts. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}
