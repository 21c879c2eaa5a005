package domain

import (
	"errors"
	"time"
)

// Status is the review state of a job application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusRejected Status = "rejected"
	StatusHired    Status = "hired"
)

// ErrDuplicate is returned when the candidate already applied to the job.
var ErrDuplicate = errors.New("application already exists for candidate and job")

// JobApplication links a candidate to a job. At most one exists per (CandidateID, JobID).
type JobApplication struct {
	ID          string
	CandidateID string
	JobID       string
	CompanyID   string
	Status      Status
	CreatedAt   time.Time
}
