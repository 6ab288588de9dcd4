// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// DefaultSessionTTL is how long an issued session stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// UserService handles registration and session management.
type UserService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	clock    clockwork.Clock
	ttl      time.Duration
}

// NewUserService creates a new user service. A zero ttl uses DefaultSessionTTL.
func NewUserService(users domain.UserRepository, sessions domain.SessionRepository, clock clockwork.Clock, ttl time.Duration) *UserService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &UserService{
		users:    users,
		sessions: sessions,
		clock:    clock,
		ttl:      ttl,
	}
}

// SessionTTL reports the lifetime of issued sessions.
func (s *UserService) SessionTTL() time.Duration {
	return s.ttl
}

// Register creates a user and opens a session for it. An email that is
// already registered yields domain.ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, name, email string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", domain.Invalid("name", "is required")
	}
	email, err := validEmail(email)
	if err != nil {
		return nil, "", err
	}

	u, err := s.createUser(ctx, name, email)
	if err != nil {
		return nil, "", err
	}

	token, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// SignInWithEmail opens a session for the user registered under email,
// provisioning one when none exists (e.g. after SSO).
func (s *UserService) SignInWithEmail(ctx context.Context, name, email string) (*domain.User, string, error) {
	email, err := validEmail(email)
	if err != nil {
		return nil, "", err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		if strings.TrimSpace(name) == "" {
			name = email
		}
		u, err = s.createUser(ctx, strings.TrimSpace(name), email)
		if errors.Is(err, domain.ErrEmailTaken) {
			// Lost a race with a concurrent sign-in.
			u, err = s.users.GetByEmail(ctx, email)
		}
		if err != nil {
			return nil, "", err
		}
		if u == nil {
			return nil, "", ErrUserNotFound
		}
	}

	token, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout invalidates a session.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, hashToken(token))
}

// ValidateSession resolves a session token to its user.
func (s *UserService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	key := hashToken(token)
	session, err := s.sessions.GetByToken(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.clock.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, key)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// PurgeExpiredSessions removes sessions that are past their expiry.
func (s *UserService) PurgeExpiredSessions(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx, s.clock.Now())
}

func (s *UserService) createUser(ctx context.Context, name, email string) (*domain.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	u := &domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	err = s.sessions.Create(ctx, &domain.Session{
		TokenHash: hashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func validEmail(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", domain.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "is not a valid address")
	}
	return email, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
