// Package events defines the envelope and sink used for evaluation domain
// event emission. Events carry observability signals (job lifecycle, unit
// failures, template repairs) to downstream consumers; they are never load
// bearing for correctness.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the evaluation pipeline.
const (
	TypeJobStarted      = "evaluation.job_started"
	TypeJobCompleted    = "evaluation.job_completed"
	TypeJobFailed       = "evaluation.job_failed"
	TypeUnitFailed      = "evaluation.unit_failed"
	TypeTemplateRepair  = "evaluation.template_repaired"
	TypeTracesExcluded  = "evaluation.traces_excluded"
	TypeSummaryProduced = "evaluation.summary_produced"
)

// SchemaVersion is the envelope payload schema version.
const SchemaVersion = "1.0.0"

// Envelope wraps a domain event with routing and correlation metadata.
// The payload schema varies by Type and Version.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type routes the event, e.g. "evaluation.unit_failed".
	Type string `json:"type"`

	// Source names the emitting component, e.g. "orchestrator".
	Source string `json:"source"`

	// Version enables payload schema evolution.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// ProjectID scopes the event to the owning project.
	ProjectID string `json:"project_id,omitempty"`

	// JobID correlates the event with its evaluation job.
	JobID string `json:"job_id,omitempty"`

	// WorkflowID and RunID identify the Temporal execution that emitted
	// the event, when one exists.
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds an envelope of the given type with a generated id, the
// current timestamp, and the payload marshaled to JSON. A payload that
// cannot be marshaled is dropped; the envelope still carries its metadata.
func New(eventType, source, jobID string, payload any) Envelope {
	env := Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Version:   SchemaVersion,
		Timestamp: time.Now().UTC(),
		JobID:     jobID,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			env.Payload = raw
		}
	}
	return env
}

// EventSink receives envelopes with best-effort delivery. Sink failures
// must never fail the emitting operation.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event. Used in tests and when event
// emission is disabled.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a sink that discards all events.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }
