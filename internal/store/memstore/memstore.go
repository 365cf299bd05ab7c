// Package memstore is an in-memory Store implementation used by tests and
// the direct-invocation CLI path. All methods are safe for concurrent use.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/store"
)

// Store holds all records in memory behind one RWMutex.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.EvaluationJob
	prompts   map[string]*domain.EvaluationPrompt
	traces    map[string]*domain.Trace
	agents    map[string]string // agentID -> projectID
	results   []*domain.EvaluationResult
	summaries []*domain.EvaluationSummary
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*domain.EvaluationJob),
		prompts: make(map[string]*domain.EvaluationPrompt),
		traces:  make(map[string]*domain.Trace),
		agents:  make(map[string]string),
	}
}

// Seed helpers used by tests and fixtures.

// PutJob stores a job record.
func (s *Store) PutJob(job *domain.EvaluationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
}

// PutPrompt stores a prompt record.
func (s *Store) PutPrompt(prompt *domain.EvaluationPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *prompt
	s.prompts[prompt.ID] = &cp
}

// PutTrace stores a trace record.
func (s *Store) PutTrace(trace *domain.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *trace
	s.traces[trace.ID] = &cp
}

// PutAgent registers an agent under a project.
func (s *Store) PutAgent(agentID, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agentID] = projectID
}

// GetJob implements store.JobStore.
func (s *Store) GetJob(_ context.Context, id string) (*domain.EvaluationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
	}
	cp := *job
	return &cp, nil
}

// UpdateJob implements store.JobStore.
func (s *Store) UpdateJob(_ context.Context, job *domain.EvaluationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("%w: %s", store.ErrJobNotFound, job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// GetPrompts implements store.PromptStore.
func (s *Store) GetPrompts(_ context.Context, ids []string) ([]*domain.EvaluationPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompts := make([]*domain.EvaluationPrompt, 0, len(ids))
	for _, id := range ids {
		prompt, ok := s.prompts[id]
		if !ok {
			return nil, fmt.Errorf("prompt not found: %s", id)
		}
		cp := *prompt
		prompts = append(prompts, &cp)
	}
	return prompts, nil
}

// ListTraces implements store.TraceStore.
func (s *Store) ListTraces(_ context.Context, agentID string, filter store.TraceFilter) ([]*domain.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var traces []*domain.Trace
	for _, trace := range s.traces {
		if trace.AgentID != agentID {
			continue
		}
		if filter.Status != "" && trace.Status != filter.Status {
			continue
		}
		if filter.CreatedAfter != nil && trace.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && !trace.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		if filter.MinDurationSeconds > 0 && trace.DurationSeconds < filter.MinDurationSeconds {
			continue
		}
		cp := *trace
		traces = append(traces, &cp)
	}

	sort.Slice(traces, func(i, j int) bool {
		if traces[i].CreatedAt.Equal(traces[j].CreatedAt) {
			return traces[i].ID < traces[j].ID
		}
		return traces[i].CreatedAt.Before(traces[j].CreatedAt)
	})
	return traces, nil
}

// GetTracesByIDs implements store.TraceStore.
func (s *Store) GetTracesByIDs(_ context.Context, agentID string, ids []string) ([]*domain.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	traces := make([]*domain.Trace, 0, len(ids))
	for _, id := range ids {
		trace, ok := s.traces[id]
		if !ok || trace.AgentID != agentID {
			continue
		}
		cp := *trace
		traces = append(traces, &cp)
	}
	return traces, nil
}

// AgentBelongsToProject implements store.TraceStore.
func (s *Store) AgentBelongsToProject(_ context.Context, agentID, projectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.agents[agentID]
	if !ok {
		return false, fmt.Errorf("%w: %s", store.ErrAgentNotFound, agentID)
	}
	return owner == projectID, nil
}

// CreateResult implements store.ResultStore.
func (s *Store) CreateResult(_ context.Context, result *domain.EvaluationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.results {
		if existing.JobID == result.JobID &&
			existing.PromptID == result.PromptID &&
			existing.TraceID == result.TraceID {
			return fmt.Errorf("result already exists for job %s prompt %s trace %s",
				result.JobID, result.PromptID, result.TraceID)
		}
	}

	cp := *result
	s.results = append(s.results, &cp)
	return nil
}

// ListCompletedResults implements store.ResultStore.
func (s *Store) ListCompletedResults(_ context.Context, jobID, promptID string) ([]*domain.EvaluationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*domain.EvaluationResult
	for _, result := range s.results {
		if result.JobID == jobID && result.PromptID == promptID && result.IsCompleted() {
			cp := *result
			results = append(results, &cp)
		}
	}
	return results, nil
}

// CreateSummary implements store.SummaryStore.
func (s *Store) CreateSummary(_ context.Context, summary *domain.EvaluationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *summary
	s.summaries = append(s.summaries, &cp)
	return nil
}

// Results returns a copy of all result rows, for assertions in tests.
func (s *Store) Results() []*domain.EvaluationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.EvaluationResult, 0, len(s.results))
	for _, r := range s.results {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// Summaries returns a copy of all summary rows, for assertions in tests.
func (s *Store) Summaries() []*domain.EvaluationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.EvaluationSummary, 0, len(s.summaries))
	for _, sm := range s.summaries {
		cp := *sm
		out = append(out, &cp)
	}
	return out
}
