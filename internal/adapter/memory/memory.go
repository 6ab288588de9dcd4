// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/google/uuid"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	meals    map[uuid.UUID]domain.Meal
	users    map[uuid.UUID]domain.User
	emails   map[string]uuid.UUID
	sessions map[string]domain.Session
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		meals:    make(map[uuid.UUID]domain.Meal),
		users:    make(map[uuid.UUID]domain.User),
		emails:   make(map[string]uuid.UUID),
		sessions: make(map[string]domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.MealRepository = (*DB)(nil)
var _ domain.UserRepository = (*UserRepo)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- MealRepository ---

// Create stores a meal.
func (db *DB) Create(ctx context.Context, m *domain.Meal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.meals[m.ID] = *m
	return nil
}

// ListByUser lists a user's meals, most recent date first. Ties fall back to
// creation time, then id, both descending.
func (db *DB) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Meal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Meal, 0)
	for _, m := range db.meals {
		if m.UserID == userID {
			result = append(result, m)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return bytes.Compare(result[i].ID[:], result[j].ID[:]) > 0
	})
	return result, nil
}

// GetByID returns the meal with the given id, or nil.
func (db *DB) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	m, ok := db.meals[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Update replaces a meal if it exists and is owned by m.UserID.
func (db *DB) Update(ctx context.Context, m *domain.Meal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, ok := db.meals[m.ID]
	if !ok || cur.UserID != m.UserID {
		return domain.ErrMealNotFound
	}
	cur.Name = m.Name
	cur.Description = m.Description
	cur.IsOnDiet = m.IsOnDiet
	cur.Date = m.Date
	cur.UpdatedAt = m.UpdatedAt
	db.meals[m.ID] = cur
	return nil
}

// Delete removes a meal if it exists and is owned by userID.
func (db *DB) Delete(ctx context.Context, userID, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, ok := db.meals[id]
	if !ok || cur.UserID != userID {
		return domain.ErrMealNotFound
	}
	delete(db.meals, id)
	return nil
}

// --- UserRepository ---

// UserRepo implements user persistence.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new user repository.
func (db *DB) NewUserRepo() *UserRepo {
	return &UserRepo{db: db}
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	id, ok := r.db.emails[email]
	if !ok {
		return nil, nil
	}
	u := r.db.users[id]
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Create creates a new user. The email must not already be registered.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.emails[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	r.db.users[u.ID] = *u
	r.db.emails[u.Email] = u.ID
	return nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[s.TokenHash] = *s
	return nil
}

// GetByToken retrieves a session by token digest.
func (r *SessionRepo) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, tokenHash)
	return nil
}

// DeleteExpired deletes all sessions that expired before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
