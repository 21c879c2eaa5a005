package handler

import (
	"math"
	"time"

	"recruit-intake/internal/intake/service"
)

type openSessionRequest struct {
	JobID     string `json:"job_id"`
	CompanyID string `json:"company_id"`
}

type openSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Step      string    `json:"step"`
}

type personalRequest struct {
	Region    string `json:"region"`
	City      string `json:"city"`
	Sex       string `json:"sex"`
	BirthDate string `json:"birth_date"`
}

type professionalRequest struct {
	PrimaryRole string   `json:"primary_role"`
	ExtraRoles  []string `json:"extra_roles"`
}

type verifyRequest struct {
	Code string `json:"code" binding:"required,numeric,min=4,max=8"`
}

type sessionResponse struct {
	SessionID                string `json:"session_id"`
	JobID                    string `json:"job_id"`
	CompanyID                string `json:"company_id"`
	Step                     string `json:"step"`
	HasProfessional          bool   `json:"has_professional"`
	Armed                    bool   `json:"armed"`
	Verified                 bool   `json:"verified"`
	CanResend                bool   `json:"can_resend"`
	CooldownRemainingSeconds int    `json:"cooldown_remaining_seconds"`
	ApplicationID            string `json:"application_id,omitempty"`
}

func toSessionResponse(v service.View) sessionResponse {
	return sessionResponse{
		SessionID:                v.ID,
		JobID:                    v.JobID,
		CompanyID:                v.CompanyID,
		Step:                     string(v.Step),
		HasProfessional:          v.HasProfessional,
		Armed:                    v.Armed,
		Verified:                 v.Verified,
		CanResend:                v.CanResend,
		CooldownRemainingSeconds: ceilSeconds(v.CooldownRemaining),
		ApplicationID:            v.ApplicationID,
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
}
