// Package domain holds the intake session state owned by one applicant interaction.
package domain

import (
	"sync"
	"sync/atomic"
	"time"

	"recruit-intake/internal/verification"
)

// Attachment is the resume file held in memory until finalize uploads it.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (a *Attachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Contact is the validated contact step.
type Contact struct {
	Name string
	// Phone is the raw value as entered; CanonicalPhone is the lookup key.
	Phone          string
	CanonicalPhone string
	Email          string
	Attachment     *Attachment
}

// Personal is the validated personal step.
type Personal struct {
	Region    string
	City      string
	Sex       string
	BirthDate time.Time
}

// Professional is the optional professional step.
type Professional struct {
	PrimaryRole string
	ExtraRoles  []string
}

// Session is one applicant's intake state. It is owned by a single client interaction and discarded on
// completion or abandonment. Callers serialize access with Lock/Unlock.
type Session struct {
	ID        string
	JobID     string
	CompanyID string
	Step      Step

	Contact      *Contact
	Personal     *Personal
	Professional *Professional

	// Challenge is the active verification challenge, nil when un-armed.
	Challenge *verification.Challenge
	// Verified is set once the active challenge accepted a code; cleared when leaving verification.
	Verified bool
	// nextRequestAt is the cooldown end of the last code sent to each canonical phone. It survives
	// DiscardChallenge and phone changes.
	nextRequestAt map[string]time.Time

	// Set by finalize so a retry neither re-uploads nor loses the candidate key.
	ResumeURL     string
	CandidateID   string
	ApplicationID string

	CreatedAt time.Time

	mu         sync.Mutex
	finalizing atomic.Bool
	// lastActive is unix nanos of the last state change; readable without mu.
	lastActive atomic.Int64
}

// NewSession returns a session at the contact step.
func NewSession(id, jobID, companyID string, now time.Time) *Session {
	s := &Session{
		ID:        id,
		JobID:     jobID,
		CompanyID: companyID,
		Step:      StepContactInfo,
		CreatedAt: now,
	}
	s.Touch(now)
	return s
}

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.lastActive.Store(t.UnixNano())
}

// LastActive returns the time of the last recorded activity. Safe without holding the session lock.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load()).UTC()
}

// Lock acquires the session for a state change.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// BeginFinalize marks a finalize as in flight. Returns false if one already is.
func (s *Session) BeginFinalize() bool {
	return s.finalizing.CompareAndSwap(false, true)
}

// EndFinalize clears the in-flight finalize flag.
func (s *Session) EndFinalize() {
	s.finalizing.Store(false)
}

// NextRequestAt returns when a new code may be sent to target. Zero if none was sent.
// Callers hold the session lock.
func (s *Session) NextRequestAt(target string) time.Time {
	return s.nextRequestAt[target]
}

// SetNextRequestAt records the cooldown end for target. Callers hold the session lock.
func (s *Session) SetNextRequestAt(target string, t time.Time) {
	if s.nextRequestAt == nil {
		s.nextRequestAt = make(map[string]time.Time)
	}
	s.nextRequestAt[target] = t
}

// DiscardChallenge stops the active challenge's cooldown and drops it.
func (s *Session) DiscardChallenge() {
	if s.Challenge != nil {
		s.Challenge.Close()
		s.Challenge = nil
	}
	s.Verified = false
}
