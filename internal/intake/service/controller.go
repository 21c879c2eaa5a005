// Package service drives an intake session through its steps and persists it once the phone is verified.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"recruit-intake/internal/events"
	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/intake/validation"
	"recruit-intake/internal/platform/clock"
	"recruit-intake/internal/platform/phone"
	"recruit-intake/internal/verification"
)

const instrumentationName = "recruit-intake/internal/intake/service"

// Controller applies user actions to sessions. Every method locks the session for its duration, so
// actions on one session are serialized while distinct sessions proceed independently.
type Controller struct {
	verifier    *verification.Service
	submitter   *Submitter
	cities      validation.CityLookup
	countryCode string
	events      *events.Dispatcher
	clk         clock.Clock
	logger      *zap.Logger
	tracer      trace.Tracer

	codesRequested metric.Int64Counter
	verifyFailures metric.Int64Counter
	submitted      metric.Int64Counter
	abandoned      metric.Int64Counter
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the clock. It should be the clock the verification service uses.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clk = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithEvents sets the domain event dispatcher.
func WithEvents(d *events.Dispatcher) Option {
	return func(ctl *Controller) { ctl.events = d }
}

// WithCountryCode sets the country code used to canonicalize phones.
func WithCountryCode(cc string) Option {
	return func(ctl *Controller) { ctl.countryCode = cc }
}

// WithTelemetry sets the tracer and meter providers. Defaults are the otel globals.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(ctl *Controller) {
		if tp != nil {
			ctl.tracer = tp.Tracer(instrumentationName)
		}
		if mp != nil {
			ctl.initMetrics(mp.Meter(instrumentationName))
		}
	}
}

// NewController returns a Controller.
func NewController(verifier *verification.Service, submitter *Submitter, cities validation.CityLookup, opts ...Option) *Controller {
	c := &Controller{
		verifier:    verifier,
		submitter:   submitter,
		cities:      cities,
		countryCode: phone.DefaultCountryCode,
		clk:         clock.Real(),
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(instrumentationName),
	}
	c.initMetrics(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.submitter.SetTracer(c.tracer)
	return c
}

func (c *Controller) initMetrics(m metric.Meter) {
	counter := func(name, desc string) metric.Int64Counter {
		ctr, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			otel.Handle(err)
			return metricnoop.Int64Counter{}
		}
		return ctr
	}
	c.codesRequested = counter("intake.codes_requested", "Verification codes dispatched")
	c.verifyFailures = counter("intake.verify_failures", "Rejected verification attempts")
	c.submitted = counter("intake.applications_submitted", "Sessions that reached success")
	c.abandoned = counter("intake.sessions_abandoned", "Sessions closed before success")
}

// NewSession opens a session for a job.
func (c *Controller) NewSession(ctx context.Context, jobID, companyID string) (*domain.Session, error) {
	if jobID == "" {
		return nil, &validation.FieldError{Field: "job_id", Code: validation.CodeRequired, Message: "job is required"}
	}
	if companyID == "" {
		return nil, &validation.FieldError{Field: "company_id", Code: validation.CodeRequired, Message: "company is required"}
	}
	s := domain.NewSession(uuid.New().String(), jobID, companyID, c.clk.Now())
	c.logger.Info("intake session opened", zap.String("session_id", s.ID), zap.String("job_id", jobID))
	c.emit(events.TypeSessionOpened, s, nil)
	return s, nil
}

// SubmitContact validates the contact step and advances to personal_info.
func (c *Controller) SubmitContact(ctx context.Context, s *domain.Session, in validation.ContactInput) error {
	s.Lock()
	defer s.Unlock()
	next, err := c.next(s, domain.ActionSubmitContact)
	if err != nil {
		return err
	}
	contact, err := validation.ValidateContact(in, c.countryCode)
	if err != nil {
		return err
	}
	if s.Contact == nil || !sameAttachment(s.Contact.Attachment, contact.Attachment) {
		s.ResumeURL = ""
	}
	s.Contact = contact
	c.advance(s, next)
	return nil
}

// SubmitPersonal validates the personal step and advances to professional_info.
func (c *Controller) SubmitPersonal(ctx context.Context, s *domain.Session, in validation.PersonalInput) error {
	s.Lock()
	defer s.Unlock()
	next, err := c.next(s, domain.ActionSubmitPersonal)
	if err != nil {
		return err
	}
	personal, err := validation.ValidatePersonal(in, c.cities, c.clk.Now())
	if err != nil {
		return err
	}
	s.Personal = personal
	c.advance(s, next)
	return nil
}

// SubmitProfessional validates the optional professional step, advances to verification and requests a
// code. A dispatch failure leaves the session on verification without a challenge and returns an error
// wrapping ErrTransient.
func (c *Controller) SubmitProfessional(ctx context.Context, s *domain.Session, in validation.ProfessionalInput) error {
	s.Lock()
	defer s.Unlock()
	next, err := c.next(s, domain.ActionSubmitProfessional)
	if err != nil {
		return err
	}
	prof, err := validation.ValidateProfessional(in)
	if err != nil {
		return err
	}
	s.Professional = prof
	c.advance(s, next)
	return c.arm(ctx, s)
}

// SkipProfessional skips the optional step; previously entered professional data is dropped.
func (c *Controller) SkipProfessional(ctx context.Context, s *domain.Session) error {
	s.Lock()
	defer s.Unlock()
	next, err := c.next(s, domain.ActionSkipProfessional)
	if err != nil {
		return err
	}
	s.Professional = nil
	c.advance(s, next)
	return c.arm(ctx, s)
}

// Back returns to the previous step keeping entered data. Leaving verification discards the challenge.
func (c *Controller) Back(ctx context.Context, s *domain.Session) error {
	s.Lock()
	defer s.Unlock()
	return c.retreat(s, domain.ActionBack)
}

// Edit jumps from verification back to contact_info keeping entered data and discarding the challenge.
func (c *Controller) Edit(ctx context.Context, s *domain.Session) error {
	s.Lock()
	defer s.Unlock()
	return c.retreat(s, domain.ActionEdit)
}

func (c *Controller) retreat(s *domain.Session, a domain.Action) error {
	next, err := c.next(s, a)
	if err != nil {
		return err
	}
	if s.Step == domain.StepVerification {
		s.DiscardChallenge()
	}
	c.advance(s, next)
	return nil
}

// RequestCode arms an un-armed verification step, e.g. after a dispatch failure. On an armed session it
// behaves like Resend.
func (c *Controller) RequestCode(ctx context.Context, s *domain.Session) error {
	s.Lock()
	defer s.Unlock()
	if err := c.requireVerificationStep(s); err != nil {
		return err
	}
	if s.Challenge != nil {
		return c.resend(ctx, s)
	}
	return c.arm(ctx, s)
}

// Resend replaces the active challenge once its cooldown has elapsed. The previous code stops working.
func (c *Controller) Resend(ctx context.Context, s *domain.Session) error {
	s.Lock()
	defer s.Unlock()
	if err := c.requireVerificationStep(s); err != nil {
		return err
	}
	if s.Challenge == nil {
		return c.arm(ctx, s)
	}
	return c.resend(ctx, s)
}

func (c *Controller) resend(ctx context.Context, s *domain.Session) error {
	ctx, span := c.tracer.Start(ctx, "intake.resend_code", trace.WithAttributes(attribute.String("intake.session_id", s.ID)))
	defer span.End()
	ch, err := c.verifier.Resend(ctx, s.Challenge, s.ID, s.Contact.Phone)
	if err != nil {
		span.RecordError(err)
		return c.dispatchError(err)
	}
	c.armWith(ctx, s, ch)
	return nil
}

// arm issues the first challenge for the current verification step. Cooldowns are kept per phone and
// outlive discarded challenges, so neither re-entering verification nor switching numbers back and
// forth sends a phone more than one code per window.
func (c *Controller) arm(ctx context.Context, s *domain.Session) error {
	if now := c.clk.Now(); now.Before(s.NextRequestAt(s.Contact.CanonicalPhone)) {
		return ErrResendCooldown
	}
	ctx, span := c.tracer.Start(ctx, "intake.request_code", trace.WithAttributes(attribute.String("intake.session_id", s.ID)))
	defer span.End()
	ch, err := c.verifier.Request(ctx, s.ID, s.Contact.Phone)
	if err != nil {
		span.RecordError(err)
		return c.dispatchError(err)
	}
	c.armWith(ctx, s, ch)
	return nil
}

func (c *Controller) armWith(ctx context.Context, s *domain.Session, ch *verification.Challenge) {
	s.Challenge = ch
	s.Verified = false
	s.SetNextRequestAt(s.Contact.CanonicalPhone, ch.CooldownUntil())
	s.Touch(c.clk.Now())
	c.codesRequested.Add(ctx, 1)
	c.emit(events.TypeCodeRequested, s, func(ev *events.Event) { ev.Phone = phone.Mask(ch.Target) })
}

func (c *Controller) dispatchError(err error) error {
	if errors.Is(err, verification.ErrDispatch) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// Verify checks code and, on success, finalizes the session. When verification succeeds but finalize
// fails, the session stays verified and Finalize can be retried.
func (c *Controller) Verify(ctx context.Context, s *domain.Session, code string) (*Outcome, error) {
	if !s.BeginFinalize() {
		return nil, ErrFinalizeInFlight
	}
	defer s.EndFinalize()
	s.Lock()
	defer s.Unlock()
	if err := c.requireVerificationStep(s); err != nil {
		return nil, err
	}
	if !s.Verified {
		if err := c.verifier.Verify(s.Challenge, code); err != nil {
			c.verifyFailures.Add(ctx, 1)
			c.logger.Info("verification rejected", zap.String("session_id", s.ID), zap.Error(err))
			return nil, err
		}
		s.Verified = true
		c.emit(events.TypePhoneVerified, s, nil)
	}
	return c.finalize(ctx, s)
}

// Finalize retries persistence for a verified session.
func (c *Controller) Finalize(ctx context.Context, s *domain.Session) (*Outcome, error) {
	if !s.BeginFinalize() {
		return nil, ErrFinalizeInFlight
	}
	defer s.EndFinalize()
	s.Lock()
	defer s.Unlock()
	if err := c.requireVerificationStep(s); err != nil {
		return nil, err
	}
	return c.finalize(ctx, s)
}

func (c *Controller) finalize(ctx context.Context, s *domain.Session) (*Outcome, error) {
	next, err := c.next(s, domain.ActionComplete)
	if err != nil {
		return nil, err
	}
	out, err := c.submitter.Finalize(ctx, s)
	if err != nil {
		return nil, err
	}
	if s.Challenge != nil {
		s.Challenge.Close()
		s.Challenge = nil
	}
	if s.Contact.Attachment != nil {
		s.Contact.Attachment.Data = nil
	}
	c.advance(s, next)
	c.submitted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("duplicate", out.Duplicate)))
	c.logger.Info("application submitted",
		zap.String("session_id", s.ID), zap.String("candidate_id", out.CandidateID),
		zap.String("job_id", s.JobID), zap.Bool("duplicate", out.Duplicate))
	c.emit(events.TypeApplicationSubmitted, s, func(ev *events.Event) {
		ev.CandidateID = out.CandidateID
		ev.ApplicationID = out.ApplicationID
		ev.Duplicate = out.Duplicate
	})
	return out, nil
}

// Close abandons the session. Nothing is persisted; an already-sent code cannot be recalled. Closing a
// finished session is a no-op.
func (c *Controller) Close(ctx context.Context, s *domain.Session) {
	s.Lock()
	defer s.Unlock()
	if s.Step.Terminal() {
		return
	}
	next, err := domain.Next(s.Step, domain.ActionClose)
	if err != nil {
		return
	}
	s.DiscardChallenge()
	s.Contact, s.Personal, s.Professional = nil, nil, nil
	c.advance(s, next)
	c.abandoned.Add(ctx, 1)
	c.emit(events.TypeSessionAbandoned, s, nil)
}

// View is a read-only snapshot of a session for clients.
type View struct {
	ID                string
	JobID             string
	CompanyID         string
	Step              domain.Step
	HasProfessional   bool
	Armed             bool
	Verified          bool
	CanResend         bool
	CooldownRemaining time.Duration
	ApplicationID     string
}

// Snapshot returns the current view of s.
func (c *Controller) Snapshot(s *domain.Session) View {
	s.Lock()
	defer s.Unlock()
	v := View{
		ID:              s.ID,
		JobID:           s.JobID,
		CompanyID:       s.CompanyID,
		Step:            s.Step,
		HasProfessional: s.Professional != nil,
		Verified:        s.Verified,
		ApplicationID:   s.ApplicationID,
	}
	if s.Step != domain.StepVerification {
		return v
	}
	if ch := s.Challenge; ch != nil {
		v.Armed = true
		v.CanResend = ch.CanResend()
		v.CooldownRemaining = ch.CooldownRemaining()
	} else {
		var remaining time.Duration
		if s.Contact != nil {
			remaining = s.NextRequestAt(s.Contact.CanonicalPhone).Sub(c.clk.Now())
		}
		v.CanResend = remaining <= 0
		if remaining > 0 {
			v.CooldownRemaining = remaining
		}
	}
	return v
}

func (c *Controller) next(s *domain.Session, a domain.Action) (domain.Step, error) {
	if s.Step.Terminal() {
		return s.Step, ErrSessionClosed
	}
	return domain.Next(s.Step, a)
}

func (c *Controller) requireVerificationStep(s *domain.Session) error {
	if s.Step.Terminal() {
		return ErrSessionClosed
	}
	if s.Step != domain.StepVerification {
		return ErrInvalidTransition
	}
	return nil
}

func (c *Controller) advance(s *domain.Session, next domain.Step) {
	c.logger.Debug("intake step", zap.String("session_id", s.ID),
		zap.String("from", string(s.Step)), zap.String("to", string(next)))
	s.Step = next
	s.Touch(c.clk.Now())
}

func (c *Controller) emit(t events.Type, s *domain.Session, fill func(*events.Event)) {
	ev := events.New(t, s.ID, c.clk.Now())
	ev.JobID = s.JobID
	ev.CompanyID = s.CompanyID
	if fill != nil {
		fill(ev)
	}
	c.events.Emit(ev)
}

func sameAttachment(a, b *domain.Attachment) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.FileName == b.FileName && bytes.Equal(a.Data, b.Data)
}
