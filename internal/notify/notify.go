// Package notify dispatches one-time codes to an applicant's phone over an external messaging channel.
package notify

import (
	"context"
	"time"
)

// Purpose tags a notifier request.
type Purpose string

// PurposeRequestCode asks the channel to deliver Code to Phone.
const PurposeRequestCode Purpose = "request_code"

// defaultTimeout bounds a single outbound dispatch.
const defaultTimeout = 15 * time.Second

// Request is one dispatch to the channel.
type Request struct {
	Purpose Purpose `json:"purpose"`
	// CorrelationID ties the dispatch to an intake session.
	CorrelationID string `json:"correlation_id"`
	// Phone is the canonical phone number.
	Phone string `json:"phone"`
	Code  string `json:"code,omitempty"`
}

// Response is the channel's verdict. OK false with a nil error means the channel refused the message.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Notifier delivers codes. Implementations must honor ctx cancellation; a timeout is reported as an error.
type Notifier interface {
	Notify(ctx context.Context, req Request) (*Response, error)
}
