package verification

import (
	"sync/atomic"
	"time"

	"recruit-intake/internal/platform/clock"
)

// Cooldown is a scheduled, cancellable countdown. On expiry it flips the gate that allows a resend;
// it performs no I/O.
type Cooldown struct {
	until time.Time
	clk   clock.Clock
	timer clock.Timer
	ready atomic.Bool
}

// StartCooldown arms a countdown of d on clk. onReady, if non-nil, runs once when the countdown expires.
func StartCooldown(clk clock.Clock, d time.Duration, onReady func()) *Cooldown {
	c := &Cooldown{until: clk.Now().Add(d), clk: clk}
	c.timer = clk.AfterFunc(d, func() {
		c.ready.Store(true)
		if onReady != nil {
			onReady()
		}
	})
	return c
}

// Ready reports whether the countdown has expired.
func (c *Cooldown) Ready() bool {
	return c.ready.Load() || !c.clk.Now().Before(c.until)
}

// Until returns the expiry instant.
func (c *Cooldown) Until() time.Time {
	return c.until
}

// Remaining returns the time left, zero once expired.
func (c *Cooldown) Remaining() time.Duration {
	if c.Ready() {
		return 0
	}
	return c.until.Sub(c.clk.Now())
}

// Cancel stops the countdown without firing onReady.
func (c *Cooldown) Cancel() {
	if c.timer != nil {
		c.timer.Stop()
	}
}
