// Package events publishes intake domain events. Delivery is best-effort: a failed emit is logged and
// never fails the applicant's request.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an intake event.
type Type string

const (
	TypeSessionOpened        Type = "intake.session_opened"
	TypeCodeRequested        Type = "intake.code_requested"
	TypePhoneVerified        Type = "intake.phone_verified"
	TypeApplicationSubmitted Type = "intake.application_submitted"
	TypeSessionAbandoned     Type = "intake.session_abandoned"
)

// Event is the JSON payload written to the intake topic. Phones are carried masked.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	SessionID     string    `json:"session_id"`
	JobID         string    `json:"job_id,omitempty"`
	CompanyID     string    `json:"company_id,omitempty"`
	CandidateID   string    `json:"candidate_id,omitempty"`
	ApplicationID string    `json:"application_id,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Duplicate     bool      `json:"duplicate,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New returns an event of type t with a fresh id.
func New(t Type, sessionID string, at time.Time) *Event {
	return &Event{ID: uuid.New().String(), Type: t, SessionID: sessionID, OccurredAt: at.UTC()}
}

// Emitter sends a single event. Implementations may block briefly.
type Emitter interface {
	Emit(ctx context.Context, ev *Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, *Event) error { return nil }

// Multi fans an event out to every emitter and returns the first error.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, ev *Event) error {
	var first error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
