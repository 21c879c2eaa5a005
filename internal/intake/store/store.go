// Package store keeps live intake sessions in process memory and evicts idle ones.
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/platform/clock"
)

// Store is a TTL-bounded session registry. A session idle for longer than the TTL is dropped and its
// challenge timer cancelled; nothing it collected is persisted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	ttl      time.Duration
	clk      clock.Clock
	logger   *zap.Logger
}

// New returns an empty Store. logger may be nil.
func New(ttl time.Duration, clk clock.Clock, logger *zap.Logger) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{sessions: make(map[string]*domain.Session), ttl: ttl, clk: clk, logger: logger}
}

// Put registers s under its id.
func (st *Store) Put(s *domain.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

// Get returns the session for id, or nil if unknown or expired.
func (st *Store) Get(id string) *domain.Session {
	st.mu.RLock()
	s := st.sessions[id]
	st.mu.RUnlock()
	if s == nil || st.expired(s, st.clk.Now()) {
		return nil
	}
	return s
}

// Delete removes the session for id and cancels its timers. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		release(s)
	}
	return ok
}

// Len returns the number of registered sessions, expired ones included until the next Sweep.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts every expired session and returns how many were removed. The store lock is never held
// while waiting on a session lock.
func (st *Store) Sweep() int {
	now := st.clk.Now()
	st.mu.RLock()
	candidates := make([]*domain.Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.RUnlock()

	var evicted []*domain.Session
	for _, s := range candidates {
		if !st.expired(s, now) {
			continue
		}
		st.mu.Lock()
		if st.sessions[s.ID] == s && st.expired(s, now) {
			delete(st.sessions, s.ID)
			evicted = append(evicted, s)
		}
		st.mu.Unlock()
	}
	for _, s := range evicted {
		release(s)
	}
	if len(evicted) > 0 {
		st.logger.Info("evicted idle intake sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *Store) expired(s *domain.Session, now time.Time) bool {
	if st.ttl <= 0 {
		return false
	}
	return now.Sub(s.LastActive()) > st.ttl
}

func release(s *domain.Session) {
	s.Lock()
	defer s.Unlock()
	if s.Challenge != nil {
		s.Challenge.Close()
		s.Challenge = nil
	}
}
