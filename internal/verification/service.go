package verification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recruit-intake/internal/notify"
	"recruit-intake/internal/platform/clock"
	"recruit-intake/internal/platform/phone"
)

// Service issues and checks challenges.
type Service struct {
	notifier    notify.Notifier
	policy      Policy
	clk         clock.Clock
	countryCode string
	generate    func(digits int) (string, error)
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock (tests).
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clk = c }
}

// WithCodeGenerator overrides code generation (tests, or a channel that supplies its own codes).
func WithCodeGenerator(f func(digits int) (string, error)) Option {
	return func(s *Service) { s.generate = f }
}

// WithCountryCode sets the prefix applied by phone canonicalization.
func WithCountryCode(cc string) Option {
	return func(s *Service) { s.countryCode = cc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service that dispatches through n.
func NewService(n notify.Notifier, policy Policy, opts ...Option) *Service {
	s := &Service{
		notifier:    n,
		policy:      policy,
		clk:         clock.Real(),
		countryCode: phone.DefaultCountryCode,
		generate:    GenerateCode,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy.MaxAttempts <= 0 {
		s.policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	if s.policy.Digits <= 0 {
		s.policy.Digits = DefaultPolicy().Digits
	}
	return s
}

// Policy returns the active policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// Request canonicalizes rawPhone, generates a code and dispatches it tagged with correlationID. The
// returned challenge has its cooldown running. On a dispatch failure or refusal no challenge is returned
// and the error wraps ErrDispatch; the caller may retry immediately.
func (s *Service) Request(ctx context.Context, correlationID, rawPhone string) (*Challenge, error) {
	target := phone.Canonicalize(rawPhone, s.countryCode)
	code, err := s.generate(s.policy.Digits)
	if err != nil {
		return nil, fmt.Errorf("verification: generate code: %w", err)
	}
	resp, err := s.notifier.Notify(ctx, notify.Request{
		Purpose:       notify.PurposeRequestCode,
		CorrelationID: correlationID,
		Phone:         target,
		Code:          code,
	})
	if err != nil {
		s.logger.Warn("verification dispatch failed",
			zap.String("session_id", correlationID), zap.String("phone", phone.Mask(target)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	if resp == nil || !resp.OK {
		reason := "refused"
		if resp != nil && resp.Error != "" {
			reason = resp.Error
		}
		s.logger.Warn("verification dispatch refused",
			zap.String("session_id", correlationID), zap.String("phone", phone.Mask(target)), zap.String("reason", reason))
		return nil, fmt.Errorf("%w: %s", ErrDispatch, reason)
	}

	now := s.clk.Now()
	ch := &Challenge{
		ID:          uuid.New().String(),
		Target:      target,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.policy.TTL),
		codeHash:    HashCode(code),
		maxAttempts: s.policy.MaxAttempts,
		clk:         s.clk,
	}
	ch.cooldown = StartCooldown(s.clk, s.policy.Cooldown, func() {
		s.logger.Debug("resend cooldown elapsed", zap.String("session_id", correlationID), zap.String("challenge_id", ch.ID))
	})
	s.logger.Info("verification code dispatched",
		zap.String("session_id", correlationID), zap.String("challenge_id", ch.ID), zap.String("phone", phone.Mask(target)))
	return ch, nil
}

// Resend issues a replacement for prev once its cooldown has elapsed. On success prev is invalidated;
// on a dispatch failure prev stays active. A nil prev behaves like Request.
func (s *Service) Resend(ctx context.Context, prev *Challenge, correlationID, rawPhone string) (*Challenge, error) {
	if prev != nil && !prev.CanResend() {
		return nil, ErrResendCooldown
	}
	next, err := s.Request(ctx, correlationID, rawPhone)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		prev.Close()
	}
	return next, nil
}

// Verify checks code against ch.
func (s *Service) Verify(ch *Challenge, code string) error {
	if ch == nil {
		return ErrNoActiveChallenge
	}
	return ch.Verify(code)
}
