package app

import (
	"context"
	"strings"
	"time"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MealInput carries the user-editable fields of a meal. Description and
// IsOnDiet are pointers so a missing field can be told apart from its zero
// value. An empty description is allowed.
type MealInput struct {
	Name        string
	Description *string
	IsOnDiet    *bool
	Date        time.Time
}

func (in MealInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if in.Description == nil {
		return domain.Invalid("description", "is required")
	}
	if in.IsOnDiet == nil {
		return domain.Invalid("isOnDiet", "is required")
	}
	if in.Date.IsZero() {
		return domain.Invalid("date", "is required")
	}
	return nil
}

// MealService encapsulates owner-scoped meal use cases.
type MealService struct {
	repo  domain.MealRepository
	clock clockwork.Clock
}

// NewMealService creates a MealService backed by the given repository.
func NewMealService(repo domain.MealRepository, clock clockwork.Clock) *MealService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MealService{repo: repo, clock: clock}
}

// Create validates and stores a new meal owned by userID.
func (s *MealService) Create(ctx context.Context, userID uuid.UUID, in MealInput) (*domain.Meal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	m := &domain.Meal{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: *in.Description,
		IsOnDiet:    *in.IsOnDiet,
		Date:        in.Date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns every meal owned by userID, most recent date first.
func (s *MealService) List(ctx context.Context, userID uuid.UUID) ([]domain.Meal, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns the meal if userID owns it.
func (s *MealService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Meal, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.AssertOwned(m, userID)
}

// Update replaces the editable fields of an owned meal. The write is
// conditional on ownership, so a meal deleted between the check and the
// write also reports domain.ErrMealNotFound.
func (s *MealService) Update(ctx context.Context, userID, id uuid.UUID, in MealInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	updated := *m
	updated.Name = strings.TrimSpace(in.Name)
	updated.Description = *in.Description
	updated.IsOnDiet = *in.IsOnDiet
	updated.Date = in.Date.UTC()
	updated.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Update(ctx, &updated)
}

// Delete removes an owned meal.
func (s *MealService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}
