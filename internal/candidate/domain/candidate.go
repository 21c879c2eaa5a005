package domain

import "time"

// Candidate is a person who applied to at least one job. Phone holds the canonical form and is the
// natural key; a repeated application from the same phone updates the existing record.
type Candidate struct {
	ID          string
	Name        string
	Phone       string
	Email       string
	City        string
	Region      string
	Sex         string
	BirthDate   time.Time
	PrimaryRole string
	ExtraRoles  []string
	// ResumeURL is empty when no attachment was uploaded; an upsert never clears an existing URL.
	ResumeURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
