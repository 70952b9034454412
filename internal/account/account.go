// Package account registers students and teachers and issues the opaque
// session tokens the HTTP API authenticates with.
package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role decides which dashboard an account sees.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

const (
	DefaultSessionTTL = 24 * time.Hour
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrNotFound           = errors.New("account not found")
)

// ValidationError describes a rejected registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Profile holds the details shown on dashboards and the roster export.
type Profile struct {
	FullName         string `json:"full_name"`
	Institute        string `json:"institute,omitempty"`
	EnrollmentNumber string `json:"enrollment_number,omitempty"`
}

// Account is a registered user.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Profile      Profile   `json:"profile"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an issued login token.
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists accounts.
type Store interface {
	Create(ctx context.Context, a Account) error
	ByEmail(ctx context.Context, email string) (Account, error)
	ByID(ctx context.Context, id string) (Account, error)
	ListByRole(ctx context.Context, role Role) ([]Account, error)
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
	order   []string
}

// NewMemoryStore creates an empty account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[a.Email]; ok {
		return ErrEmailTaken
	}
	s.byID[a.ID] = a
	s.byEmail[a.Email] = a.ID
	s.order = append(s.order, a.ID)
	return nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) ByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

// ListByRole returns accounts with role in registration order.
func (s *MemoryStore) ListByRole(_ context.Context, role Role) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, id := range s.order {
		if a := s.byID[id]; a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL sets how long issued tokens stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service registers accounts and manages sessions.
type Service struct {
	store Store
	ttl   time.Duration
	cost  int
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// NewService creates an account service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		ttl:      DefaultSessionTTL,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     Role    `json:"role"`
	Profile  Profile `json:"profile"`
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Account{}, err
	}
	if n := len(in.Password); n < minPasswordLength || n > maxPasswordLength {
		return Account{}, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be %d to %d bytes", minPasswordLength, maxPasswordLength)}
	}
	if !in.Role.Valid() {
		return Account{}, &ValidationError{Field: "role", Reason: fmt.Sprintf("must be %q or %q", RoleStudent, RoleTeacher)}
	}
	in.Profile.FullName = strings.TrimSpace(in.Profile.FullName)
	if in.Profile.FullName == "" {
		return Account{}, &ValidationError{Field: "full_name", Reason: "required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hashing password: %w", err)
	}

	a := Account{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         in.Role,
		Profile:      in.Profile,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Account{}, err
	}

	slog.Info("account registered", "account_id", a.ID, "role", a.Role)
	return a, nil
}

// Authenticate checks credentials and issues a session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	a, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("loading account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		Token:     token,
		AccountID: a.ID,
		Role:      a.Role,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Resolve returns the account behind a live session token. Expired
// tokens are dropped on sight.
func (s *Service) Resolve(ctx context.Context, token string) (Account, error) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok && !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return Account{}, ErrInvalidSession
	}

	a, err := s.store.ByID(ctx, sess.AccountID)
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidSession
	}
	return a, err
}

// Logout revokes a session token. Unknown tokens are ignored.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Students lists every student account.
func (s *Service) Students(ctx context.Context) ([]Account, error) {
	return s.store.ListByRole(ctx, RoleStudent)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ValidationError{Field: "email", Reason: "not a valid address"}
	}
	return email, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
