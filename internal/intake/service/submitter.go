package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	appdomain "recruit-intake/internal/application/domain"
	candomain "recruit-intake/internal/candidate/domain"
	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/storage"
)

// CandidateRegistry is the candidate store used by finalize.
type CandidateRegistry interface {
	Upsert(ctx context.Context, c *candomain.Candidate) (string, error)
}

// ApplicationStore is the application store used by finalize.
type ApplicationStore interface {
	Insert(ctx context.Context, a *appdomain.JobApplication) error
}

// Outcome is the result of a successful finalize.
type Outcome struct {
	CandidateID   string
	ApplicationID string
	// Duplicate is true when the candidate had already applied to the job. It is not an error.
	Duplicate bool
}

// Submitter persists a verified session: resume upload, candidate upsert, application insert.
type Submitter struct {
	blobs        storage.BlobStore
	candidates   CandidateRegistry
	applications ApplicationStore
	logger       *zap.Logger
	tracer       trace.Tracer
	nowF         func() time.Time
}

// NewSubmitter returns a Submitter. logger may be nil.
func NewSubmitter(blobs storage.BlobStore, candidates CandidateRegistry, applications ApplicationStore, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		blobs:        blobs,
		candidates:   candidates,
		applications: applications,
		logger:       logger,
		tracer:       noop.NewTracerProvider().Tracer(""),
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// SetTracer sets the tracer used for finalize spans.
func (s *Submitter) SetTracer(t trace.Tracer) {
	if t != nil {
		s.tracer = t
	}
}

// Finalize writes sess to the stores. The caller holds the session lock and the in-flight guard.
//
// Each step records its result on sess, so a retry after a persistence failure skips the upload that
// already succeeded. The candidate upsert and the conflict-safe application insert are idempotent, so
// running Finalize again after a success yields Duplicate rather than a second row.
func (s *Submitter) Finalize(ctx context.Context, sess *domain.Session) (*Outcome, error) {
	if sess.Contact == nil || sess.Personal == nil {
		return nil, ErrInvalidTransition
	}
	if !sess.Verified {
		return nil, ErrNotVerified
	}
	ctx, span := s.tracer.Start(ctx, "intake.finalize", trace.WithAttributes(
		attribute.String("intake.session_id", sess.ID),
		attribute.String("intake.job_id", sess.JobID),
	))
	defer span.End()

	now := s.nowF()
	if err := s.uploadResume(ctx, sess, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload")
		return nil, err
	}

	cand := &candomain.Candidate{
		ID:        uuid.New().String(),
		Name:      sess.Contact.Name,
		Phone:     sess.Contact.CanonicalPhone,
		Email:     sess.Contact.Email,
		City:      sess.Personal.City,
		Region:    sess.Personal.Region,
		Sex:       sess.Personal.Sex,
		BirthDate: sess.Personal.BirthDate,
		ResumeURL: sess.ResumeURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p := sess.Professional; p != nil {
		cand.PrimaryRole = p.PrimaryRole
		cand.ExtraRoles = p.ExtraRoles
	}
	candidateID, err := s.candidates.Upsert(ctx, cand)
	if err != nil {
		s.logger.Error("candidate upsert failed", zap.String("session_id", sess.ID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "candidate upsert")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	sess.CandidateID = candidateID

	app := &appdomain.JobApplication{
		ID:          uuid.New().String(),
		CandidateID: candidateID,
		JobID:       sess.JobID,
		CompanyID:   sess.CompanyID,
		Status:      appdomain.StatusPending,
		CreatedAt:   now,
	}
	out := &Outcome{CandidateID: candidateID}
	switch err := s.applications.Insert(ctx, app); {
	case errors.Is(err, appdomain.ErrDuplicate):
		out.Duplicate = true
		s.logger.Info("application already exists",
			zap.String("session_id", sess.ID), zap.String("candidate_id", candidateID), zap.String("job_id", sess.JobID))
	case err != nil:
		s.logger.Error("application insert failed", zap.String("session_id", sess.ID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "application insert")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	default:
		out.ApplicationID = app.ID
		sess.ApplicationID = app.ID
	}
	span.SetAttributes(attribute.Bool("intake.duplicate", out.Duplicate))
	return out, nil
}

func (s *Submitter) uploadResume(ctx context.Context, sess *domain.Session, now time.Time) error {
	att := sess.Contact.Attachment
	if sess.ResumeURL != "" || att == nil || len(att.Data) == 0 {
		return nil
	}
	url, err := s.blobs.Upload(ctx, storage.ObjectKey(att.FileName, now), att.Data, att.ContentType)
	if err != nil {
		s.logger.Warn("resume upload failed", zap.String("session_id", sess.ID), zap.Error(err))
		return fmt.Errorf("%w: upload resume: %w", ErrTransient, err)
	}
	sess.ResumeURL = url
	return nil
}
