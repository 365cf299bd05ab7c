// Package store defines the repository contracts the job processor runs
// against. The processor treats persistence as abstract: read-one/read-many
// by id or filter, plus writes for job status, result rows, and summary
// rows. The memstore subpackage backs tests and direct invocation; the
// postgres subpackage backs deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/navchetna/whispey-sub001/internal/domain"
)

// Not-found sentinels shared by all implementations.
var (
	ErrJobNotFound   = errors.New("evaluation job not found")
	ErrAgentNotFound = errors.New("agent not found")
)

// TraceFilter narrows a trace listing. Zero-valued fields do not filter.
type TraceFilter struct {
	// Status matches the call status exactly when set.
	Status string

	// CreatedAfter / CreatedBefore bound trace creation time, inclusive /
	// exclusive respectively.
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	// MinDurationSeconds excludes shorter traces, inclusive.
	MinDurationSeconds float64
}

// JobStore reads and mutates evaluation job records.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*domain.EvaluationJob, error)

	// UpdateJob persists the job's status, counters, timestamps, and error
	// message by id.
	UpdateJob(ctx context.Context, job *domain.EvaluationJob) error
}

// PromptStore reads evaluation prompt snapshots, per-prompt API keys
// already decrypted.
type PromptStore interface {
	// GetPrompts resolves prompt ids in order. Unknown ids are an error:
	// a job cannot run against a rubric that does not exist.
	GetPrompts(ctx context.Context, ids []string) ([]*domain.EvaluationPrompt, error)
}

// TraceStore provides read access to traces and their transcripts, plus the
// agent-ownership lookup the selector's integrity guard needs.
type TraceStore interface {
	// ListTraces returns the agent's traces matching the filter, ordered by
	// creation time ascending, transcripts included.
	ListTraces(ctx context.Context, agentID string, filter TraceFilter) ([]*domain.Trace, error)

	// GetTracesByIDs resolves the given ids, restricted to the agent.
	// Unknown and foreign ids are silently absent from the result.
	GetTracesByIDs(ctx context.Context, agentID string, ids []string) ([]*domain.Trace, error)

	// AgentBelongsToProject reports whether the agent is owned by the project.
	AgentBelongsToProject(ctx context.Context, agentID, projectID string) (bool, error)
}

// ResultStore writes and reads immutable evaluation result rows.
type ResultStore interface {
	// CreateResult inserts one result row. Rows are never updated.
	CreateResult(ctx context.Context, result *domain.EvaluationResult) error

	// ListCompletedResults returns the completed results for a job+prompt pair.
	ListCompletedResults(ctx context.Context, jobID, promptID string) ([]*domain.EvaluationResult, error)
}

// SummaryStore writes derived summary rows.
type SummaryStore interface {
	CreateSummary(ctx context.Context, summary *domain.EvaluationSummary) error
}

// Store aggregates every repository the orchestrator needs.
type Store interface {
	JobStore
	PromptStore
	TraceStore
	ResultStore
	SummaryStore
}
