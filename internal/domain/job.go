// Package domain defines the core types for the evaluation job processor:
// jobs, prompts, traces, results, and summaries, together with the status
// machines and validation rules that govern them.
//
// Evaluation Model:
//   - An EvaluationJob runs a set of EvaluationPrompts against a set of Traces.
//   - Each (trace, prompt) unit produces exactly one EvaluationResult.
//   - Completed results roll up into one EvaluationSummary per prompt.
//
// Jobs are single-shot: once a job reaches a terminal status it is never
// resumed or re-run. A new job must be created instead.
package domain

import (
	"errors"
	"time"
)

// Job-specific errors returned by job lifecycle operations.
var (
	// ErrJobNotPending indicates a start was attempted on a job that already ran.
	ErrJobNotPending = errors.New("job is not in pending status")

	// ErrJobTerminal indicates a mutation was attempted on a terminal job.
	ErrJobTerminal = errors.New("job already reached a terminal status")

	// ErrNoPrompts indicates a job has an empty prompt list.
	ErrNoPrompts = errors.New("job has no prompts")
)

// JobStatus represents the lifecycle state of an evaluation job.
type JobStatus string

const (
	// JobStatusPending is the initial state at job creation.
	JobStatusPending JobStatus = "pending"

	// JobStatusRunning indicates the orchestrator is iterating evaluation units.
	JobStatusRunning JobStatus = "running"

	// JobStatusCompleted indicates all units were attempted, even if some failed.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed indicates an orchestrator-level fault; no further units run.
	JobStatusFailed JobStatus = "failed"
)

// String returns the string representation of the job status.
func (s JobStatus) String() string { return string(s) }

// IsTerminal reports whether the status is completed or failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// SelectionMode determines how a job resolves the traces it evaluates.
type SelectionMode string

const (
	// SelectAll evaluates every trace owned by the job's agent that has
	// usable transcript content.
	SelectAll SelectionMode = "all"

	// SelectFiltered evaluates traces matching status, date-range, and
	// minimum-duration filters.
	SelectFiltered SelectionMode = "filtered"

	// SelectExplicit evaluates exactly the enumerated trace identifiers.
	SelectExplicit SelectionMode = "explicit"
)

// DateWindow is a relative date range applied against trace creation time.
type DateWindow string

// Supported relative windows for filtered selection.
const (
	WindowDay     DateWindow = "24h"
	WindowWeek    DateWindow = "7d"
	WindowMonth   DateWindow = "30d"
	WindowQuarter DateWindow = "90d"
)

// Duration returns the window length, or zero for an unknown window.
func (w DateWindow) Duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	case WindowQuarter:
		return 90 * 24 * time.Hour
	default:
		return 0
	}
}

// TraceSelection holds a job's selection mode and its parameters.
// Only the fields relevant to the mode are consulted: TraceIDs for
// SelectExplicit; Status, Window/StartDate/EndDate, and MinDurationSeconds
// for SelectFiltered. SelectAll ignores all of them.
type TraceSelection struct {
	Mode SelectionMode `json:"mode" validate:"required,oneof=all filtered explicit"`

	// TraceIDs enumerates traces for explicit selection. Identifiers that do
	// not exist or belong to another agent are silently dropped.
	TraceIDs []string `json:"trace_ids,omitempty"`

	// Status filters on an exact call-status match. When empty, filtered
	// selection falls back to the default successful-status set.
	Status string `json:"status,omitempty"`

	// Window is a relative date range. Ignored when StartDate is set.
	Window DateWindow `json:"window,omitempty"`

	// StartDate and EndDate bound trace creation time. The end date is
	// treated as inclusive by day: it is advanced by one day before the
	// exclusive comparison.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// MinDurationSeconds excludes traces shorter than this, inclusive.
	MinDurationSeconds float64 `json:"min_duration_seconds,omitempty" validate:"min=0"`
}

// EvaluationJob is one evaluation run over a set of traces against a set of
// prompts. It is created externally in pending status and mutated only by the
// orchestrator until it reaches a terminal status.
type EvaluationJob struct {
	ID        string `json:"id" validate:"required"`
	ProjectID string `json:"project_id" validate:"required"`
	AgentID   string `json:"agent_id" validate:"required"`

	// PromptIDs reference the scoring prompts to run against each trace.
	PromptIDs []string `json:"prompt_ids" validate:"required,min=1"`

	Selection TraceSelection `json:"selection" validate:"required"`

	Status JobStatus `json:"status" validate:"required,oneof=pending running completed failed"`

	// TotalTraces is the number of traces resolved by the selector,
	// recorded when the job starts running.
	TotalTraces int `json:"total_traces" validate:"min=0"`

	// CompletedUnits and FailedUnits count (trace, prompt) evaluation units.
	// Their sum never exceeds TotalTraces * len(PromptIDs) and equals it
	// once the job is terminal (zero-trace short circuit aside).
	CompletedUnits int `json:"completed_units" validate:"min=0"`
	FailedUnits    int `json:"failed_units" validate:"min=0"`

	CreatedAt   time.Time  `json:"created_at" validate:"required"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ErrorMessage holds the orchestrator-level fault for failed jobs.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Validate checks the job against its structural constraints.
func (j *EvaluationJob) Validate() error { return validate.Struct(j) }

// Start transitions the job from pending to running at the given time and
// records the resolved trace total.
func (j *EvaluationJob) Start(at time.Time, totalTraces int) error {
	if j.Status != JobStatusPending {
		return ErrJobNotPending
	}
	j.Status = JobStatusRunning
	j.StartedAt = &at
	j.TotalTraces = totalTraces
	return nil
}

// Complete transitions the job to completed. Unit failures do not prevent
// completion; job-level failure is reserved for orchestrator faults.
func (j *EvaluationJob) Complete(at time.Time) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	j.Status = JobStatusCompleted
	j.CompletedAt = &at
	return nil
}

// Fail transitions the job to failed with the given orchestrator-level error.
func (j *EvaluationJob) Fail(at time.Time, msg string) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	j.Status = JobStatusFailed
	j.CompletedAt = &at
	j.ErrorMessage = msg
	return nil
}

// UnitBudget returns the maximum number of evaluation units this job can
// produce: resolved traces times prompts.
func (j *EvaluationJob) UnitBudget() int {
	return j.TotalTraces * len(j.PromptIDs)
}

// CheckCounters verifies the progress invariant: attempted units never
// exceed the unit budget.
func (j *EvaluationJob) CheckCounters() bool {
	return j.CompletedUnits+j.FailedUnits <= j.UnitBudget()
}
