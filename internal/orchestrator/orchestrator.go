// Package orchestrator drives an evaluation job from pending to a terminal
// status: it resolves the trace set, evaluates every (trace, prompt) unit
// through the LLM gateway, persists one result row per unit, and triggers
// summary aggregation.
//
// Failure handling is two-tier. Unit-level faults (provider errors, bad
// judge output) produce a failed result row and never stop the job; the job
// still completes. Job-level faults (missing job, prompt load failure,
// selection failure, cancellation) mark the job failed.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/navchetna/whispey-sub001/internal/aggregation"
	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/llm"
	"github.com/navchetna/whispey-sub001/internal/scorer"
	"github.com/navchetna/whispey-sub001/internal/selector"
	"github.com/navchetna/whispey-sub001/internal/store"
	"github.com/navchetna/whispey-sub001/internal/template"
	"github.com/navchetna/whispey-sub001/pkg/activity"
	"github.com/navchetna/whispey-sub001/pkg/events"
)

// progressEvery is the number of processed units between progress persists.
const progressEvery = 5

// eventSource identifies this component in emitted event envelopes.
const eventSource = "orchestrator"

// Metrics records job and unit outcomes. Satisfied by metrics.Collector.
type Metrics interface {
	JobFinished(status string)
	UnitEvaluated(status, provider string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) JobFinished(string)                    {}
func (noopMetrics) UnitEvaluated(string, string, float64) {}

// Config collects the orchestrator's dependencies.
type Config struct {
	Store    store.Store
	Gateway  llm.Gateway
	Selector *selector.Selector

	// Concurrency bounds parallel unit evaluation. Zero or one runs units
	// sequentially in deterministic trace-major order.
	Concurrency int

	// Sink receives lifecycle and diagnostic events. Nil disables emission.
	Sink events.EventSink

	// Metrics receives job and unit outcome observations. Nil disables.
	Metrics Metrics

	Logger *slog.Logger
}

// Orchestrator executes evaluation jobs.
type Orchestrator struct {
	store       store.Store
	gateway     llm.Gateway
	selector    *selector.Selector
	templates   *template.Engine
	aggregator  *aggregation.Aggregator
	sink        events.EventSink
	metrics     Metrics
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// New creates an orchestrator from its dependencies.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sel := cfg.Selector
	if sel == nil {
		sel = selector.New(cfg.Store, logger)
	}
	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	return &Orchestrator{
		store:       cfg.Store,
		gateway:     cfg.Gateway,
		selector:    sel,
		templates:   template.NewEngine(logger),
		aggregator:  aggregation.New(cfg.Store, cfg.Store, logger).WithSink(cfg.Sink),
		sink:        cfg.Sink,
		metrics:     m,
		logger:      logger,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
}

// WithClock overrides the clock used for job timestamps. Tests use this to
// pin time.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.aggregator.WithClock(now)
	o.selector.WithClock(now)
	return o
}

// Run executes the job with the given id to a terminal status.
//
// A job that cannot be loaded returns an error, since there is no row to
// record the fault on. Every other job-level fault is recorded on the job
// itself and Run returns nil; unit-level faults produce failed result rows
// and never fail the job.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status != domain.JobStatusPending {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrJobNotPending)
	}
	if err := job.Validate(); err != nil {
		return o.failJob(ctx, job, fmt.Sprintf("invalid job: %v", err))
	}

	prompts, err := o.store.GetPrompts(ctx, job.PromptIDs)
	if err != nil {
		return o.failJob(ctx, job, fmt.Sprintf("load prompts: %v", err))
	}
	if len(prompts) == 0 {
		return o.failJob(ctx, job, domain.ErrNoPrompts.Error())
	}
	for _, p := range prompts {
		if err := p.Validate(); err != nil {
			return o.failJob(ctx, job, fmt.Sprintf("invalid prompt %s: %v", p.ID, err))
		}
	}

	traces, err := o.selector.Select(ctx, job)
	if err != nil {
		return o.failJob(ctx, job, fmt.Sprintf("select traces: %v", err))
	}
	if job.Selection.Mode == domain.SelectExplicit && len(traces) < len(job.Selection.TraceIDs) {
		o.emit(ctx, events.TypeTracesExcluded, job, map[string]any{
			"requested": len(job.Selection.TraceIDs),
			"selected":  len(traces),
		})
	}

	// No traces is a successful empty run, not a failure. The job goes
	// straight to completed without ever reporting running.
	if len(traces) == 0 {
		o.logger.Info("no traces matched selection, completing job empty", "job_id", job.ID)
		job.TotalTraces = 0
		if err := job.Complete(o.now()); err != nil {
			return fmt.Errorf("complete empty job %s: %w", job.ID, err)
		}
		if err := o.store.UpdateJob(ctx, job); err != nil {
			return fmt.Errorf("persist empty job %s: %w", job.ID, err)
		}
		o.emit(ctx, events.TypeJobCompleted, job, map[string]any{"total_traces": 0})
		o.metrics.JobFinished(domain.JobStatusCompleted.String())
		return nil
	}

	if err := job.Start(o.now(), len(traces)); err != nil {
		return fmt.Errorf("start job %s: %w", job.ID, err)
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("persist running job %s: %w", job.ID, err)
	}
	o.logger.Info("job started",
		"job_id", job.ID,
		"traces", len(traces),
		"prompts", len(prompts),
		"units", job.UnitBudget(),
	)
	o.emit(ctx, events.TypeJobStarted, job, map[string]any{
		"total_traces": len(traces),
		"prompts":      len(prompts),
	})

	if err := o.runUnits(ctx, job, prompts, traces); err != nil {
		return o.failJob(ctx, job, fmt.Sprintf("evaluation interrupted: %v", err))
	}

	if err := job.Complete(o.now()); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("persist completed job %s: %w", job.ID, err)
	}
	o.logger.Info("job completed",
		"job_id", job.ID,
		"completed_units", job.CompletedUnits,
		"failed_units", job.FailedUnits,
	)
	o.emit(ctx, events.TypeJobCompleted, job, map[string]any{
		"completed_units": job.CompletedUnits,
		"failed_units":    job.FailedUnits,
	})
	o.metrics.JobFinished(domain.JobStatusCompleted.String())

	if err := o.aggregator.Summarize(ctx, job.ID, prompts); err != nil {
		// Summaries are derived data; losing them does not undo the run.
		o.logger.Error("summary aggregation failed", "job_id", job.ID, "error", err)
	}
	return nil
}

// unit is one (trace, prompt) evaluation.
type unit struct {
	trace  *domain.Trace
	prompt *domain.EvaluationPrompt
}

func (o *Orchestrator) runUnits(ctx context.Context, job *domain.EvaluationJob, prompts []*domain.EvaluationPrompt, traces []*domain.Trace) error {
	units := make([]unit, 0, len(traces)*len(prompts))
	for _, trace := range traces {
		for _, prompt := range prompts {
			units = append(units, unit{trace: trace, prompt: prompt})
		}
	}

	if o.concurrency > 1 {
		return o.runPool(ctx, job, units)
	}

	var processed int
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.recordUnit(ctx, job, u.prompt.Provider, o.evaluateUnit(ctx, job, u))
		processed++
		if processed%progressEvery == 0 {
			o.persistProgress(ctx, job, processed, len(units))
		}
	}
	return ctx.Err()
}

// runPool evaluates units on a bounded worker pool. Each unit is consumed
// by exactly one worker, so the one-row-per-unit guarantee holds; counter
// updates and progress persists are serialized under a mutex.
func (o *Orchestrator) runPool(ctx context.Context, job *domain.EvaluationJob, units []unit) error {
	unitCh := make(chan unit)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	for range o.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range unitCh {
				if ctx.Err() != nil {
					continue
				}
				result := o.evaluateUnit(ctx, job, u)

				mu.Lock()
				o.recordUnit(ctx, job, u.prompt.Provider, result)
				processed++
				if processed%progressEvery == 0 {
					o.persistProgress(ctx, job, processed, len(units))
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, u := range units {
		select {
		case unitCh <- u:
		case <-ctx.Done():
			break feed
		}
	}
	close(unitCh)
	wg.Wait()

	return ctx.Err()
}

// recordUnit persists the result row and advances the job counters. A
// persistence failure counts the unit as failed; the row is lost but the
// job keeps going.
func (o *Orchestrator) recordUnit(ctx context.Context, job *domain.EvaluationJob, provider string, result *domain.EvaluationResult) {
	o.metrics.UnitEvaluated(result.Status.String(), provider, float64(result.LatencyMs)/1000)
	if err := o.store.CreateResult(ctx, result); err != nil {
		o.logger.Error("failed to persist result",
			"job_id", job.ID,
			"prompt_id", result.PromptID,
			"trace_id", result.TraceID,
			"error", err,
		)
		job.FailedUnits++
		return
	}
	if result.IsCompleted() {
		job.CompletedUnits++
	} else {
		job.FailedUnits++
	}
}

func (o *Orchestrator) persistProgress(ctx context.Context, job *domain.EvaluationJob, processed, total int) {
	if !job.CheckCounters() {
		o.logger.Error("unit counters exceed budget",
			"job_id", job.ID,
			"completed", job.CompletedUnits,
			"failed", job.FailedUnits,
			"budget", job.UnitBudget(),
		)
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.logger.Error("failed to persist progress", "job_id", job.ID, "error", err)
	}
	activity.RecordHeartbeat(ctx, processed, total)
}

// evaluateUnit runs one (trace, prompt) evaluation end to end. It always
// returns a result row; errors are folded into a failed row rather than
// propagated.
func (o *Orchestrator) evaluateUnit(ctx context.Context, job *domain.EvaluationJob, u unit) *domain.EvaluationResult {
	result := &domain.EvaluationResult{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		PromptID:  u.prompt.ID,
		TraceID:   u.trace.ID,
		CreatedAt: o.now(),
	}

	rendered, repaired := o.templates.Render(u.prompt.Template, map[string]any{
		template.TranscriptVar: u.trace.FlattenTranscript(),
		"trace_id":             u.trace.ID,
		"caller_id":            u.trace.CallerID,
		"duration":             u.trace.DurationSeconds,
	})
	if repaired {
		o.emit(ctx, events.TypeTemplateRepair, job, map[string]any{
			"prompt_id": u.prompt.ID,
		})
	}

	started := time.Now()
	resp, err := o.gateway.Evaluate(ctx, u.prompt, rendered)
	if err != nil {
		result.Status = domain.ResultStatusFailed
		result.ErrorMessage = err.Error()
		result.LatencyMs = time.Since(started).Milliseconds()
		o.logger.Warn("evaluation unit failed",
			"job_id", job.ID,
			"prompt_id", u.prompt.ID,
			"trace_id", u.trace.ID,
			"error", err,
		)
		o.emit(ctx, events.TypeUnitFailed, job, map[string]any{
			"prompt_id": u.prompt.ID,
			"trace_id":  u.trace.ID,
			"error":     err.Error(),
		})
		return result
	}

	outcome := scorer.Parse(resp.Text)

	result.Status = domain.ResultStatusCompleted
	result.Score = domain.ScorePayload{
		OverallScore: outcome.OverallScore,
		Scores:       outcome.Scores,
		Category:     u.prompt.Category,
	}
	result.Reasoning = outcome.Reasoning
	result.RawResponse = resp.Text
	result.LatencyMs = resp.LatencyMs
	result.Cost = o.gateway.EstimateCost(u.prompt, resp.Usage)
	result.TokensUsed = resp.Usage.TotalTokens
	return result
}

// failJob marks the job failed and persists it. The job-level fault is
// recorded on the row, so Run itself succeeds unless persistence fails.
func (o *Orchestrator) failJob(ctx context.Context, job *domain.EvaluationJob, msg string) error {
	o.logger.Error("job failed", "job_id", job.ID, "error", msg)
	if err := job.Fail(o.now(), msg); err != nil {
		return fmt.Errorf("fail job %s: %w", job.ID, err)
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("persist failed job %s: %w", job.ID, err)
	}
	o.emit(ctx, events.TypeJobFailed, job, map[string]any{"error": msg})
	o.metrics.JobFinished(domain.JobStatusFailed.String())
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, eventType string, job *domain.EvaluationJob, payload map[string]any) {
	if o.sink == nil {
		return
	}
	env := events.New(eventType, eventSource, job.ID, payload)
	env.ProjectID = job.ProjectID
	if err := o.sink.Append(ctx, env); err != nil {
		o.logger.Warn("event emission failed", "event_type", eventType, "error", err)
	}
}
