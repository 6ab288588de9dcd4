package redisstore

import (
	"encoding/json"
	"fmt"

	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/google/uuid"
)

func decode(tokenHash string, b []byte) (*domain.Session, error) {
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	userID, err := uuid.Parse(rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &domain.Session{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}
