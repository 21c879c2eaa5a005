// Package verification owns one-time-code challenges: issuance through a notifier, the resend cooldown,
// expiry, the attempt cap and code comparison.
package verification

import (
	"errors"
	"sync"
	"time"

	"recruit-intake/internal/platform/clock"
)

// Sentinel errors; the intake handler maps them to user-facing messages.
var (
	ErrIncorrectCode     = errors.New("incorrect code")
	ErrChallengeExpired  = errors.New("verification code expired")
	ErrTooManyAttempts   = errors.New("too many incorrect attempts")
	ErrResendCooldown    = errors.New("resend not allowed yet")
	ErrNoActiveChallenge = errors.New("no active verification challenge")
	ErrDispatch          = errors.New("could not deliver verification code")
)

// Policy configures challenge behavior.
type Policy struct {
	// Digits is the code length.
	Digits int
	// Cooldown gates resend; it does not bound code lifetime.
	Cooldown time.Duration
	// TTL bounds code lifetime.
	TTL time.Duration
	// MaxAttempts is the number of wrong codes accepted before the challenge is burned.
	MaxAttempts int
}

// DefaultPolicy is 4 digits, 30s cooldown, 10 minute lifetime and 5 attempts.
func DefaultPolicy() Policy {
	return Policy{Digits: 4, Cooldown: 30 * time.Second, TTL: 10 * time.Minute, MaxAttempts: 5}
}

// Challenge is one issued code. A session holds at most one; issuing a new one supersedes it.
type Challenge struct {
	ID        string
	Target    string
	IssuedAt  time.Time
	ExpiresAt time.Time

	mu          sync.Mutex
	codeHash    string
	attempts    int
	maxAttempts int
	verified    bool
	closed      bool
	cooldown    *Cooldown
	clk         clock.Clock
}

// CanResend reports whether the resend cooldown has elapsed.
func (c *Challenge) CanResend() bool {
	return c.cooldown.Ready()
}

// CooldownUntil returns IssuedAt plus the cooldown.
func (c *Challenge) CooldownUntil() time.Time {
	return c.cooldown.Until()
}

// CooldownRemaining returns the time left before a resend is allowed.
func (c *Challenge) CooldownRemaining() time.Duration {
	return c.cooldown.Remaining()
}

// AttemptsLeft returns how many wrong codes the challenge still accepts.
func (c *Challenge) AttemptsLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.maxAttempts - c.attempts; n > 0 {
		return n
	}
	return 0
}

// Verify checks code against the challenge. A wrong code consumes an attempt; the last allowed wrong
// code burns the challenge.
func (c *Challenge) Verify(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNoActiveChallenge
	}
	if c.verified {
		return nil
	}
	if c.attempts >= c.maxAttempts {
		return ErrTooManyAttempts
	}
	if !c.clk.Now().Before(c.ExpiresAt) {
		return ErrChallengeExpired
	}
	if !CodeEqual(code, c.codeHash) {
		c.attempts++
		if c.attempts >= c.maxAttempts {
			return ErrTooManyAttempts
		}
		return ErrIncorrectCode
	}
	c.verified = true
	return nil
}

// Close invalidates the challenge and cancels its cooldown timer.
func (c *Challenge) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cooldown.Cancel()
}
