package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"recruit-intake/internal/candidate/domain"
	"recruit-intake/internal/db"
)

const upsertCandidate = `
INSERT INTO candidates (id, name, phone, email, city, region, sex, birth_date, primary_role, extra_roles, resume_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
ON CONFLICT (phone) DO UPDATE SET
    name         = EXCLUDED.name,
    email        = EXCLUDED.email,
    city         = EXCLUDED.city,
    region       = EXCLUDED.region,
    sex          = EXCLUDED.sex,
    birth_date   = EXCLUDED.birth_date,
    primary_role = EXCLUDED.primary_role,
    extra_roles  = EXCLUDED.extra_roles,
    resume_url   = COALESCE(EXCLUDED.resume_url, candidates.resume_url),
    updated_at   = EXCLUDED.updated_at
RETURNING id`

const selectCandidateByPhone = `
SELECT id, name, phone, email, city, region, sex, birth_date, COALESCE(primary_role, ''), extra_roles,
       COALESCE(resume_url, ''), created_at, updated_at
FROM candidates
WHERE phone = $1`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a candidate repository backed by conn (a pool or a transaction).
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Upsert writes every collected field keyed by phone. A nil resume URL keeps the stored one.
func (r *PostgresRepository) Upsert(ctx context.Context, c *domain.Candidate) (string, error) {
	if c == nil || c.Phone == "" {
		return "", errors.New("candidate: phone is required")
	}
	extra := c.ExtraRoles
	if extra == nil {
		extra = []string{}
	}
	var id string
	err := r.db.QueryRow(ctx, upsertCandidate,
		c.ID, c.Name, c.Phone, c.Email, c.City, c.Region, c.Sex, c.BirthDate,
		nullString(c.PrimaryRole), extra, nullString(c.ResumeURL), c.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("candidate: upsert: %w", err)
	}
	return id, nil
}

// GetByPhone returns the candidate for phone, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.Candidate, error) {
	var c domain.Candidate
	err := r.db.QueryRow(ctx, selectCandidateByPhone, phone).Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.City, &c.Region, &c.Sex, &c.BirthDate,
		&c.PrimaryRole, &c.ExtraRoles, &c.ResumeURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
