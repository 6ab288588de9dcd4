package app

import (
	"context"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/google/uuid"
)

// MetricsService computes diet adherence metrics.
type MetricsService struct {
	meals domain.MealRepository
}

// NewMetricsService creates a MetricsService backed by the given repository.
func NewMetricsService(meals domain.MealRepository) *MetricsService {
	return &MetricsService{meals: meals}
}

// ForUser returns the metrics over userID's meals in listing order
// (recorded date, most recent first).
func (s *MetricsService) ForUser(ctx context.Context, userID uuid.UUID) (domain.Metrics, error) {
	meals, err := s.meals.ListByUser(ctx, userID)
	if err != nil {
		return domain.Metrics{}, err
	}
	return domain.ComputeMetrics(meals), nil
}
