package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/google/uuid"
)

const mealColumns = "id, user_id, name, description, is_on_diet, date, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(row rowScanner) (domain.Meal, error) {
	var m domain.Meal
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Description, &m.IsOnDiet, &m.Date, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts a new meal.
func (d *DB) Create(ctx context.Context, m *domain.Meal) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO meals("+mealColumns+") VALUES($1, $2, $3, $4, $5, $6, $7, $8);",
		m.ID, m.UserID, m.Name, m.Description, m.IsOnDiet, m.Date.UTC(), m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create meal: %w", err)
	}
	return nil
}

// ListByUser returns a user's meals ordered by date, most recent first.
func (d *DB) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Meal, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+mealColumns+" FROM meals WHERE user_id=$1 ORDER BY date DESC, created_at DESC, id DESC;", userID)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Meal, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID returns the meal with the given id regardless of owner, or nil.
func (d *DB) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	m, err := scanMeal(d.sql.QueryRowContext(ctx,
		"SELECT "+mealColumns+" FROM meals WHERE id=$1;", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	return &m, nil
}

// Update rewrites the editable fields of a meal, scoped to its owner.
func (d *DB) Update(ctx context.Context, m *domain.Meal) error {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE meals SET name=$3, description=$4, is_on_diet=$5, date=$6, updated_at=$7 WHERE id=$1 AND user_id=$2;",
		m.ID, m.UserID, m.Name, m.Description, m.IsOnDiet, m.Date.UTC(), m.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("update meal: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes a meal by ID, scoped to a user.
func (d *DB) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM meals WHERE id=$1 AND user_id=$2;", id, userID)
	if err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrMealNotFound
	}
	return nil
}
