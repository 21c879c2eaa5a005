package repository

import (
	"context"
	"sync"

	"recruit-intake/internal/application/domain"
)

type pairKey struct{ candidateID, jobID string }

// MemoryRepository keeps applications in process memory, enforcing the same uniqueness as the table.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[pairKey]*domain.JobApplication
}

// NewMemoryRepository returns an empty in-memory application repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[pairKey]*domain.JobApplication)}
}

func (r *MemoryRepository) Insert(ctx context.Context, a *domain.JobApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pairKey{a.CandidateID, a.JobID}
	if _, ok := r.rows[k]; ok {
		return domain.ErrDuplicate
	}
	cp := *a
	if cp.Status == "" {
		cp.Status = domain.StatusPending
	}
	r.rows[k] = &cp
	return nil
}

func (r *MemoryRepository) GetByCandidateAndJob(ctx context.Context, candidateID, jobID string) (*domain.JobApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[pairKey{candidateID, jobID}]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// Len returns the number of stored applications.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
