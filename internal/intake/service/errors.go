package service

import (
	"errors"

	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/verification"
)

var (
	// ErrTransient wraps notifier and upload failures. Nothing was persisted; the caller may retry.
	ErrTransient = errors.New("temporarily unavailable, please try again")
	// ErrPersistence wraps candidate/application store failures. Finalize may be retried without
	// repeating verification.
	ErrPersistence = errors.New("could not save the application, please try again")
	// ErrFinalizeInFlight is returned when a finalize for the same session is already running.
	ErrFinalizeInFlight = errors.New("submission already in progress")
	// ErrSessionClosed is returned for any action on a completed or abandoned session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrNotVerified is returned by finalize before the phone was verified.
	ErrNotVerified = errors.New("phone number not verified")
	// ErrInvalidTransition is returned when an action is not allowed from the current step.
	ErrInvalidTransition = domain.ErrInvalidTransition
)

// ErrResendCooldown is returned when a code was sent too recently.
var ErrResendCooldown = verification.ErrResendCooldown
