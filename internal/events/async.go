package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// emitTimeout bounds a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long Dispatcher.Close waits for in-flight emits. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Dispatcher runs emits off the request path. Emits use context.Background() so a cancelled request
// does not abort them.
type Dispatcher struct {
	emitter Emitter
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher over emitter. A nil emitter makes Emit a no-op.
func NewDispatcher(emitter Emitter, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{emitter: emitter, logger: logger}
}

// Emit sends ev in a goroutine and returns immediately.
func (d *Dispatcher) Emit(ev *Event) {
	if d == nil || d.emitter == nil || ev == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := d.emitter.Emit(ctx, ev); err != nil {
			d.logger.Warn("event emit failed", zap.String("event_type", string(ev.Type)),
				zap.String("session_id", ev.SessionID), zap.Error(err))
		}
	}()
}

// Close waits up to ShutdownDrainDuration for pending emits. It reports whether all finished.
func (d *Dispatcher) Close() bool {
	if d == nil {
		return true
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(ShutdownDrainDuration):
		return false
	}
}
