package domain

import (
	"time"
)

// ResultStatus represents the outcome of a single (trace, prompt) unit.
type ResultStatus string

const (
	// ResultStatusCompleted indicates the unit produced a usable score.
	ResultStatusCompleted ResultStatus = "completed"

	// ResultStatusFailed indicates the unit hit a recoverable error; the
	// error message and any raw response are preserved for inspection.
	ResultStatusFailed ResultStatus = "failed"
)

// String returns the string representation of the result status.
func (s ResultStatus) String() string { return string(s) }

// ScorePayload is the structured score extracted from a judge response.
// Scores holds the overall score plus any named sub-scores the model
// returned; the prompt's category label rides along for grouping.
type ScorePayload struct {
	// OverallScore is the primary numeric score. Zero when the scorer could
	// not find a usable number (raw fallback).
	OverallScore float64 `json:"overall_score"`

	// Scores contains every field the scorer extracted, keyed by name.
	// Under the raw fallback this holds a single "raw_response" entry.
	Scores map[string]any `json:"scores,omitempty"`

	// Category is the owning prompt's evaluation category label.
	Category string `json:"category,omitempty"`
}

// EvaluationResult is the immutable audit record of evaluating one trace
// with one prompt. Exactly one row exists per (job, prompt, trace) tuple;
// rows are created once and never updated.
type EvaluationResult struct {
	ID       string `json:"id" validate:"required"`
	JobID    string `json:"job_id" validate:"required"`
	PromptID string `json:"prompt_id" validate:"required"`
	TraceID  string `json:"trace_id" validate:"required"`

	Status ResultStatus `json:"status" validate:"required,oneof=completed failed"`

	Score ScorePayload `json:"score"`

	// Reasoning is the judge's free-text explanation, best-effort extracted.
	Reasoning string `json:"reasoning,omitempty"`

	// RawResponse preserves the judge output verbatim for debugging.
	RawResponse string `json:"raw_response,omitempty"`

	// LatencyMs measures wall-clock evaluation time for the unit.
	LatencyMs int64 `json:"latency_ms" validate:"min=0"`

	// Cost is the estimated spend for the unit's LLM call.
	Cost MilliCents `json:"cost_milli_cents" validate:"min=0"`

	// TokensUsed counts total tokens reported by the provider, when available.
	TokensUsed int64 `json:"tokens_used" validate:"min=0"`

	// ErrorMessage holds the failure cause for failed units.
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Validate checks the result against its structural constraints.
func (r *EvaluationResult) Validate() error { return validate.Struct(r) }

// IsCompleted reports whether the unit produced a usable score.
func (r *EvaluationResult) IsCompleted() bool { return r.Status == ResultStatusCompleted }
