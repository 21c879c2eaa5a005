package events

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// NewLogEmitter returns an Emitter that records events as OTel log records. A nil provider yields Nop.
func NewLogEmitter(provider *sdklog.LoggerProvider) Emitter {
	if provider == nil {
		return Nop{}
	}
	return &logEmitter{logger: provider.Logger("recruit-intake.events")}
}

type logEmitter struct {
	logger otellog.Logger
}

func (e *logEmitter) Emit(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	var rec otellog.Record
	rec.SetTimestamp(ev.OccurredAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(string(ev.Type)))
	rec.AddAttributes(
		otellog.String("event_id", ev.ID),
		otellog.String("session_id", ev.SessionID),
	)
	for _, kv := range []struct{ k, v string }{
		{"job_id", ev.JobID},
		{"company_id", ev.CompanyID},
		{"candidate_id", ev.CandidateID},
		{"application_id", ev.ApplicationID},
		{"phone", ev.Phone},
	} {
		if kv.v != "" {
			rec.AddAttributes(otellog.String(kv.k, kv.v))
		}
	}
	if ev.Duplicate {
		rec.AddAttributes(otellog.Bool("duplicate", true))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
