package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"recruit-intake/internal/application/domain"
	"recruit-intake/internal/db"
)

const insertApplication = `
INSERT INTO job_applications (id, candidate_id, job_id, company_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (candidate_id, job_id) DO NOTHING`

const selectApplication = `
SELECT id, candidate_id, job_id, company_id, status, created_at
FROM job_applications
WHERE candidate_id = $1 AND job_id = $2`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an application repository backed by conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Insert stores a. The unique (candidate_id, job_id) constraint is resolved by the statement itself, so
// a conflict shows up as zero affected rows rather than a driver error code.
func (r *PostgresRepository) Insert(ctx context.Context, a *domain.JobApplication) error {
	status := a.Status
	if status == "" {
		status = domain.StatusPending
	}
	tag, err := r.db.Exec(ctx, insertApplication, a.ID, a.CandidateID, a.JobID, a.CompanyID, string(status), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("application: insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// GetByCandidateAndJob returns the application, or nil if not found.
func (r *PostgresRepository) GetByCandidateAndJob(ctx context.Context, candidateID, jobID string) (*domain.JobApplication, error) {
	var a domain.JobApplication
	var status string
	err := r.db.QueryRow(ctx, selectApplication, candidateID, jobID).Scan(
		&a.ID, &a.CandidateID, &a.JobID, &a.CompanyID, &status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Status = domain.Status(status)
	return &a, nil
}
