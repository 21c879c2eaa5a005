package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/platform/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func TestGetPutDelete(t *testing.T) {
	clk := clock.NewFake(t0)
	st := New(time.Hour, clk, nil)
	s := domain.NewSession("s1", "job-1", "acme", t0)
	st.Put(s)
	if got := st.Get("s1"); got != s {
		t.Fatalf("Get = %v, want stored session", got)
	}
	if got := st.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
	if !st.Delete("s1") {
		t.Error("Delete should report an existing session")
	}
	if st.Delete("s1") {
		t.Error("second Delete should report false")
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}
}

func TestExpiry(t *testing.T) {
	clk := clock.NewFake(t0)
	st := New(2*time.Hour, clk, nil)
	idle := domain.NewSession("idle", "job-1", "acme", t0)
	st.Put(idle)
	clk.Advance(time.Hour)
	active := domain.NewSession("active", "job-1", "acme", clk.Now())
	st.Put(active)

	clk.Advance(time.Hour + time.Second)
	if st.Get("idle") != nil {
		t.Error("idle session should be expired")
	}
	if st.Get("active") == nil {
		t.Error("active session should still be live")
	}
	if n := st.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := New(time.Minute, clock.NewFake(t0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweep_BusySessionDoesNotBlockOthers(t *testing.T) {
	clk := clock.NewFake(t0)
	st := New(time.Hour, clk, nil)
	busy := domain.NewSession("busy", "job-1", "acme", t0)
	st.Put(busy)
	clk.Advance(2 * time.Hour)
	other := domain.NewSession("other", "job-1", "acme", clk.Now())
	st.Put(other)

	// busy is held as if by a slow notifier or database call.
	busy.Lock()
	swept := make(chan int, 1)
	go func() { swept <- st.Sweep() }()

	got := make(chan *domain.Session, 1)
	go func() {
		st.Put(domain.NewSession("late", "job-2", "acme", clk.Now()))
		got <- st.Get("other")
	}()
	select {
	case s := <-got:
		if s != other {
			t.Errorf("Get(other) = %v, want the live session", s)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("Get(other) blocked while another session was locked")
	}

	busy.Unlock()
	select {
	case n := <-swept:
		if n != 1 {
			t.Errorf("Sweep = %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Sweep did not finish after the session was released")
	}
	if st.Get("busy") != nil {
		t.Error("expired busy session should be evicted")
	}
}

func TestTouchExtendsLifetime(t *testing.T) {
	clk := clock.NewFake(t0)
	st := New(time.Hour, clk, nil)
	s := domain.NewSession("s1", "job-1", "acme", t0)
	st.Put(s)
	clk.Advance(50 * time.Minute)
	s.Touch(clk.Now())
	clk.Advance(50 * time.Minute)
	if st.Get("s1") == nil {
		t.Error("touched session should still be live")
	}
	if n := st.Sweep(); n != 0 {
		t.Errorf("Sweep = %d, want 0", n)
	}
}
