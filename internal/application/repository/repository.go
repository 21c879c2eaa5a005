package repository

import (
	"context"

	"recruit-intake/internal/application/domain"
)

// Repository defines persistence for job applications.
type Repository interface {
	// Insert stores a. It returns domain.ErrDuplicate when (candidate, job) already exists.
	Insert(ctx context.Context, a *domain.JobApplication) error
	// GetByCandidateAndJob returns the application for the pair, or nil if not found.
	GetByCandidateAndJob(ctx context.Context, candidateID, jobID string) (*domain.JobApplication, error)
}
