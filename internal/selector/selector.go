// Package selector resolves which traces an evaluation job must score.
// Three strategies exist: evaluate everything, evaluate a filtered subset,
// or evaluate an explicitly enumerated list. Whichever strategy runs, only
// traces with usable transcript content survive; the rest are excluded and
// logged, never failed.
package selector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/store"
)

// Selector resolves a job's trace set. Selection is read-only and
// idempotent: identical parameters against an unchanged trace store yield
// an identical ordered set.
type Selector struct {
	traces store.TraceStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a selector over the given trace store.
func New(traces store.TraceStore, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{traces: traces, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for relative date windows. Tests use
// this to pin "now".
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// Select returns the ordered traces the job must evaluate, each with its
// transcript attached.
//
// If the job's agent does not belong to the job's project, Select returns
// an empty set rather than an error: the mismatch is a data-integrity
// guard, and the job completes with zero traces instead of failing.
func (s *Selector) Select(ctx context.Context, job *domain.EvaluationJob) ([]*domain.Trace, error) {
	ok, err := s.traces.AgentBelongsToProject(ctx, job.AgentID, job.ProjectID)
	if err != nil {
		if errors.Is(err, store.ErrAgentNotFound) {
			s.logger.Warn("job agent not found, selecting zero traces",
				"job_id", job.ID, "agent_id", job.AgentID)
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		s.logger.Warn("job agent does not belong to job project, selecting zero traces",
			"job_id", job.ID, "agent_id", job.AgentID, "project_id", job.ProjectID)
		return nil, nil
	}

	var candidates []*domain.Trace
	switch job.Selection.Mode {
	case domain.SelectExplicit:
		candidates, err = s.selectExplicit(ctx, job)
	case domain.SelectFiltered:
		candidates, err = s.selectFiltered(ctx, job)
	case domain.SelectAll:
		candidates, err = s.traces.ListTraces(ctx, job.AgentID, store.TraceFilter{})
	default:
		candidates, err = nil, errors.New("unknown selection mode: "+string(job.Selection.Mode))
	}
	if err != nil {
		return nil, err
	}

	return s.filterUsable(job, candidates), nil
}

// selectExplicit resolves the enumerated trace ids, restricted to the
// job's agent. Ids that do not exist or belong to another agent are
// silently dropped; the caller observes a shorter result set.
func (s *Selector) selectExplicit(ctx context.Context, job *domain.EvaluationJob) ([]*domain.Trace, error) {
	traces, err := s.traces.GetTracesByIDs(ctx, job.AgentID, job.Selection.TraceIDs)
	if err != nil {
		return nil, err
	}

	if dropped := len(job.Selection.TraceIDs) - len(traces); dropped > 0 {
		s.logger.Info("explicit selection dropped unknown or foreign trace ids",
			"job_id", job.ID, "requested", len(job.Selection.TraceIDs), "dropped", dropped)
	}
	return traces, nil
}

// selectFiltered applies status, date-range, and minimum-duration filters.
// Date and duration push down into the store filter; the default
// successful-status set applies in memory because it is a membership test,
// not an exact match.
func (s *Selector) selectFiltered(ctx context.Context, job *domain.EvaluationJob) ([]*domain.Trace, error) {
	sel := job.Selection
	filter := store.TraceFilter{
		Status:             sel.Status,
		MinDurationSeconds: sel.MinDurationSeconds,
	}

	switch {
	case sel.StartDate != nil:
		filter.CreatedAfter = sel.StartDate
		if sel.EndDate != nil {
			// End date is inclusive by day: advance one day, compare exclusive.
			end := sel.EndDate.AddDate(0, 0, 1)
			filter.CreatedBefore = &end
		}
	case sel.Window != "":
		if d := sel.Window.Duration(); d > 0 {
			after := s.now().Add(-d)
			filter.CreatedAfter = &after
		}
	}

	traces, err := s.traces.ListTraces(ctx, job.AgentID, filter)
	if err != nil {
		return nil, err
	}

	if sel.Status == "" {
		kept := traces[:0]
		for _, trace := range traces {
			if domain.IsSuccessfulStatus(trace.Status) {
				kept = append(kept, trace)
			}
		}
		traces = kept
	}
	return traces, nil
}

// filterUsable drops traces without usable transcript content, logging
// each exclusion.
func (s *Selector) filterUsable(job *domain.EvaluationJob, candidates []*domain.Trace) []*domain.Trace {
	usable := make([]*domain.Trace, 0, len(candidates))
	for _, trace := range candidates {
		if !trace.HasUsableTranscript() {
			s.logger.Info("excluding trace without usable transcript content",
				"job_id", job.ID, "trace_id", trace.ID)
			continue
		}
		usable = append(usable, trace)
	}
	return usable
}
