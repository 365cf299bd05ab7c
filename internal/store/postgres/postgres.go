// Package postgres implements the store contracts on PostgreSQL via pgx
// connection pooling. Transcripts, score payloads, and distributions are
// stored as JSONB; everything else is plain columns.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/store"
)

// Store implements store.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// GetJob implements store.JobStore.
func (s *Store) GetJob(ctx context.Context, id string) (*domain.EvaluationJob, error) {
	const q = `
		SELECT id, project_id, agent_id, prompt_ids, selection, status,
		       total_traces, completed_units, failed_units,
		       created_at, started_at, completed_at, error_message
		FROM evaluation_jobs
		WHERE id = $1`

	var (
		job          domain.EvaluationJob
		selectionRaw []byte
		errorMessage *string
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&job.ID, &job.ProjectID, &job.AgentID, &job.PromptIDs, &selectionRaw,
		&job.Status, &job.TotalTraces, &job.CompletedUnits, &job.FailedUnits,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &errorMessage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if err := json.Unmarshal(selectionRaw, &job.Selection); err != nil {
		return nil, fmt.Errorf("decode selection for job %s: %w", id, err)
	}
	if errorMessage != nil {
		job.ErrorMessage = *errorMessage
	}
	return &job, nil
}

// UpdateJob implements store.JobStore.
func (s *Store) UpdateJob(ctx context.Context, job *domain.EvaluationJob) error {
	const q = `
		UPDATE evaluation_jobs
		SET status = $2, total_traces = $3, completed_units = $4,
		    failed_units = $5, started_at = $6, completed_at = $7,
		    error_message = NULLIF($8, '')
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q,
		job.ID, job.Status, job.TotalTraces, job.CompletedUnits,
		job.FailedUnits, job.StartedAt, job.CompletedAt, job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrJobNotFound
	}
	return nil
}

// GetPrompts implements store.PromptStore.
func (s *Store) GetPrompts(ctx context.Context, ids []string) ([]*domain.EvaluationPrompt, error) {
	const q = `
		SELECT id, name, score_type, template, provider, model,
		       api_base, api_key, temperature, max_tokens, category
		FROM evaluation_prompts
		WHERE id = ANY($1)`

	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("get prompts: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.EvaluationPrompt, len(ids))
	for rows.Next() {
		var (
			p       domain.EvaluationPrompt
			apiBase *string
			apiKey  *string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.ScoreType, &p.Template, &p.Provider, &p.Model,
			&apiBase, &apiKey, &p.Temperature, &p.MaxTokens, &p.Category,
		); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		if apiBase != nil {
			p.APIBase = *apiBase
		}
		if apiKey != nil {
			p.APIKey = *apiKey
		}
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get prompts: %w", err)
	}

	// Resolve in request order; a missing id fails the lookup.
	prompts := make([]*domain.EvaluationPrompt, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("prompt %s not found", id)
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// ListTraces implements store.TraceStore.
func (s *Store) ListTraces(ctx context.Context, agentID string, filter store.TraceFilter) ([]*domain.Trace, error) {
	q := `
		SELECT id, agent_id, caller_id, transcript, duration_seconds, status, created_at
		FROM traces
		WHERE agent_id = $1`
	args := []any{agentID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		q += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if filter.MinDurationSeconds > 0 {
		args = append(args, filter.MinDurationSeconds)
		q += fmt.Sprintf(" AND duration_seconds >= $%d", len(args))
	}
	q += " ORDER BY created_at ASC, id ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()
	return scanTraces(rows)
}

// GetTracesByIDs implements store.TraceStore.
func (s *Store) GetTracesByIDs(ctx context.Context, agentID string, ids []string) ([]*domain.Trace, error) {
	const q = `
		SELECT id, agent_id, caller_id, transcript, duration_seconds, status, created_at
		FROM traces
		WHERE agent_id = $1 AND id = ANY($2)`

	rows, err := s.pool.Query(ctx, q, agentID, ids)
	if err != nil {
		return nil, fmt.Errorf("get traces by ids: %w", err)
	}
	defer rows.Close()

	traces, err := scanTraces(rows)
	if err != nil {
		return nil, err
	}

	// Preserve request order; absent ids are dropped, not errors.
	byID := make(map[string]*domain.Trace, len(traces))
	for _, t := range traces {
		byID[t.ID] = t
	}
	ordered := make([]*domain.Trace, 0, len(traces))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func scanTraces(rows pgx.Rows) ([]*domain.Trace, error) {
	var traces []*domain.Trace
	for rows.Next() {
		var (
			t             domain.Trace
			callerID      *string
			transcriptRaw []byte
		)
		if err := rows.Scan(
			&t.ID, &t.AgentID, &callerID, &transcriptRaw,
			&t.DurationSeconds, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		if callerID != nil {
			t.CallerID = *callerID
		}
		if len(transcriptRaw) > 0 {
			if err := json.Unmarshal(transcriptRaw, &t.Transcript); err != nil {
				return nil, fmt.Errorf("decode transcript for trace %s: %w", t.ID, err)
			}
		}
		traces = append(traces, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan traces: %w", err)
	}
	return traces, nil
}

// AgentBelongsToProject implements store.TraceStore.
func (s *Store) AgentBelongsToProject(ctx context.Context, agentID, projectID string) (bool, error) {
	const q = `SELECT project_id FROM agents WHERE id = $1`

	var owner string
	err := s.pool.QueryRow(ctx, q, agentID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, store.ErrAgentNotFound
	}
	if err != nil {
		return false, fmt.Errorf("lookup agent %s: %w", agentID, err)
	}
	return owner == projectID, nil
}

// CreateResult implements store.ResultStore. The unique index on
// (job_id, prompt_id, trace_id) enforces one row per unit.
func (s *Store) CreateResult(ctx context.Context, result *domain.EvaluationResult) error {
	const q = `
		INSERT INTO evaluation_results (
			id, job_id, prompt_id, trace_id, status, score, reasoning,
			raw_response, latency_ms, cost_milli_cents, tokens_used,
			error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13)`

	score, err := json.Marshal(result.Score)
	if err != nil {
		return fmt.Errorf("encode score payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, q,
		result.ID, result.JobID, result.PromptID, result.TraceID,
		result.Status, score, result.Reasoning, result.RawResponse,
		result.LatencyMs, int64(result.Cost), result.TokensUsed,
		result.ErrorMessage, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListCompletedResults implements store.ResultStore.
func (s *Store) ListCompletedResults(ctx context.Context, jobID, promptID string) ([]*domain.EvaluationResult, error) {
	const q = `
		SELECT id, job_id, prompt_id, trace_id, status, score, reasoning,
		       raw_response, latency_ms, cost_milli_cents, tokens_used, created_at
		FROM evaluation_results
		WHERE job_id = $1 AND prompt_id = $2 AND status = 'completed'
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, q, jobID, promptID)
	if err != nil {
		return nil, fmt.Errorf("list completed results: %w", err)
	}
	defer rows.Close()

	var results []*domain.EvaluationResult
	for rows.Next() {
		var (
			r        domain.EvaluationResult
			scoreRaw []byte
			cost     int64
		)
		if err := rows.Scan(
			&r.ID, &r.JobID, &r.PromptID, &r.TraceID, &r.Status, &scoreRaw,
			&r.Reasoning, &r.RawResponse, &r.LatencyMs, &cost, &r.TokensUsed,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(scoreRaw, &r.Score); err != nil {
			return nil, fmt.Errorf("decode score for result %s: %w", r.ID, err)
		}
		r.Cost = domain.MilliCents(cost)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list completed results: %w", err)
	}
	return results, nil
}

// CreateSummary implements store.SummaryStore.
func (s *Store) CreateSummary(ctx context.Context, summary *domain.EvaluationSummary) error {
	const q = `
		INSERT INTO evaluation_summaries (
			id, job_id, prompt_id, category, average_score, min_score,
			max_score, result_count, distribution, pass_rate, created_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)`

	distribution, err := json.Marshal(summary.Distribution)
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	_, err = s.pool.Exec(ctx, q,
		summary.ID, summary.JobID, summary.PromptID, summary.Category,
		summary.AverageScore, summary.MinScore, summary.MaxScore,
		summary.Count, distribution, summary.PassRate, summary.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}
