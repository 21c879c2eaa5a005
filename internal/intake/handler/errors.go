package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruit-intake/internal/intake/service"
	"recruit-intake/internal/intake/validation"
	"recruit-intake/internal/verification"
)

var (
	errUnknownSession = errors.New("session not found")
	errUnauthorized   = errors.New("missing or invalid session token")
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Checked in order: ErrTransient wraps ErrDispatch, so it comes first.
var errorMappings = []errorMapping{
	{service.ErrTransient, http.StatusServiceUnavailable, "transient", "we could not reach the messaging service, please try again"},
	{service.ErrPersistence, http.StatusServiceUnavailable, "persistence", "we could not save your application, please try again"},
	{verification.ErrIncorrectCode, http.StatusBadRequest, "incorrect_code", "incorrect code"},
	{verification.ErrResendCooldown, http.StatusTooManyRequests, "resend_cooldown", "please wait before requesting a new code"},
	// A burned challenge reads like any wrong code; the cap is not disclosed to the applicant.
	{verification.ErrTooManyAttempts, http.StatusBadRequest, "incorrect_code", "incorrect code"},
	{verification.ErrChallengeExpired, http.StatusGone, "code_expired", "the code has expired, request a new one"},
	{verification.ErrNoActiveChallenge, http.StatusConflict, "no_active_challenge", "request a code first"},
	{verification.ErrDispatch, http.StatusServiceUnavailable, "transient", "we could not reach the messaging service, please try again"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition", "this action is not available at the current step"},
	{service.ErrFinalizeInFlight, http.StatusConflict, "in_flight", "your application is already being submitted"},
	{service.ErrNotVerified, http.StatusConflict, "not_verified", "verify your phone number first"},
	{service.ErrSessionClosed, http.StatusConflict, "session_closed", "this application session is closed"},
	{errUnknownSession, http.StatusNotFound, "unknown_session", "session not found or expired"},
	{errUnauthorized, http.StatusUnauthorized, "unauthorized", "missing or invalid session token"},
}

// writeError renders err as the JSON error body. Unknown errors become 500 without leaking details.
func (h *Handler) writeError(c *gin.Context, err error) {
	if fe, ok := validation.AsFieldError(err); ok {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{ErrorCode: fe.Code, Message: fe.Message, Field: fe.Field})
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				h.logger.Warn("intake request failed", zap.String("path", c.FullPath()), zap.Error(err))
			}
			if m.status == http.StatusTooManyRequests {
				if s := sessionFrom(c); s != nil {
					if secs := ceilSeconds(h.ctl.Snapshot(s).CooldownRemaining); secs > 0 {
						c.Header("Retry-After", strconv.Itoa(secs))
					}
				}
			}
			c.AbortWithStatusJSON(m.status, errorResponse{ErrorCode: m.code, Message: m.message})
			return
		}
	}
	h.logger.Error("intake request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{ErrorCode: "internal", Message: "internal error"})
}
