package repository

import (
	"context"
	"errors"
	"slices"
	"sync"

	"recruit-intake/internal/candidate/domain"
)

// MemoryRepository keeps candidates in process memory. It backs local runs without DATABASE_URL and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byPhone map[string]*domain.Candidate
}

// NewMemoryRepository returns an empty in-memory candidate repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byPhone: make(map[string]*domain.Candidate)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, c *domain.Candidate) (string, error) {
	if c == nil || c.Phone == "" {
		return "", errors.New("candidate: phone is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.ExtraRoles = slices.Clone(c.ExtraRoles)
	if cur, ok := r.byPhone[c.Phone]; ok {
		cp.ID = cur.ID
		cp.CreatedAt = cur.CreatedAt
		if cp.ResumeURL == "" {
			cp.ResumeURL = cur.ResumeURL
		}
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}
	r.byPhone[c.Phone] = &cp
	return cp.ID, nil
}

func (r *MemoryRepository) GetByPhone(ctx context.Context, phone string) (*domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.ExtraRoles = slices.Clone(c.ExtraRoles)
	return &cp, nil
}

// Len returns the number of stored candidates.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPhone)
}
