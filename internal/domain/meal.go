package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Meal is a single meal recorded by a user.
type Meal struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsOnDiet    bool      `json:"isOnDiet"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MealRepository is the port for meal persistence.
//
// Update and Delete are conditional on both the meal id and the owning user
// id and return ErrMealNotFound when nothing matched.
type MealRepository interface {
	Create(ctx context.Context, m *Meal) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Meal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Meal, error)
	Update(ctx context.Context, m *Meal) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// AssertOwned returns m if it exists and belongs to callerID. A missing meal
// and a meal owned by someone else are indistinguishable to the caller.
func AssertOwned(m *Meal, callerID uuid.UUID) (*Meal, error) {
	if m == nil || m.UserID != callerID {
		return nil, ErrMealNotFound
	}
	return m, nil
}
