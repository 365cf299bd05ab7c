package events

import (
	"context"
	"log/slog"
)

// LogSink writes envelopes to a structured logger. It is the default sink
// for single-process deployments where no outbox or broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Append implements EventSink.
func (s *LogSink) Append(_ context.Context, envelope Envelope) error {
	s.logger.Info("domain event",
		"event_id", envelope.ID,
		"event_type", envelope.Type,
		"source", envelope.Source,
		"job_id", envelope.JobID,
		"payload", string(envelope.Payload),
	)
	return nil
}
