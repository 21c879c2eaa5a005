package repository

import (
	"context"

	"recruit-intake/internal/candidate/domain"
)

// Repository defines persistence for candidates.
type Repository interface {
	// Upsert inserts c or updates the row with the same phone, returning the stored candidate id.
	// c.ID is used only when a new row is created.
	Upsert(ctx context.Context, c *domain.Candidate) (string, error)
	// GetByPhone returns the candidate for a canonical phone, or nil if not found.
	GetByPhone(ctx context.Context, phone string) (*domain.Candidate, error)
}
