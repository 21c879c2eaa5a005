package notify

import (
	"context"
	"sync"
	"time"
)

// DevNotifier records codes in memory instead of sending them, so a local client can read them back
// through the dev-only endpoint. Never enabled in production.
type DevNotifier struct {
	mu   sync.RWMutex
	m    map[string]devEntry
	ttl  time.Duration
	nowF func() time.Time
}

type devEntry struct {
	code      string
	expiresAt time.Time
}

// NewDevNotifier returns a DevNotifier that keeps each code for ttl.
func NewDevNotifier(ttl time.Duration) *DevNotifier {
	return &DevNotifier{
		m:    make(map[string]devEntry),
		ttl:  ttl,
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Notify stores req.Code under req.CorrelationID, replacing any previous code.
func (n *DevNotifier) Notify(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.m[req.CorrelationID] = devEntry{code: req.Code, expiresAt: n.nowF().Add(n.ttl)}
	return &Response{OK: true}, nil
}

// LastCode returns the most recent code for correlationID if present and not expired.
func (n *DevNotifier) LastCode(correlationID string) (string, bool) {
	n.mu.RLock()
	e, ok := n.m[correlationID]
	n.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(n.nowF()) {
		n.mu.Lock()
		delete(n.m, correlationID)
		n.mu.Unlock()
		return "", false
	}
	return e.code, true
}
