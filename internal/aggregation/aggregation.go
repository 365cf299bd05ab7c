// Package aggregation computes per-prompt summary statistics once a job's
// evaluation units have finished. Summaries are derived entirely from
// completed result rows; failed units contribute nothing.
package aggregation

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/store"
	"github.com/navchetna/whispey-sub001/pkg/events"
)

// Aggregator builds and persists evaluation summaries.
type Aggregator struct {
	results   store.ResultStore
	summaries store.SummaryStore
	sink      events.EventSink
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an aggregator over the given stores.
func New(results store.ResultStore, summaries store.SummaryStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{results: results, summaries: summaries, logger: logger, now: time.Now}
}

// WithClock overrides the clock used to stamp summaries. Tests use this to
// pin creation time.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// WithSink enables summary event emission.
func (a *Aggregator) WithSink(sink events.EventSink) *Aggregator {
	a.sink = sink
	return a
}

// Summarize computes and persists one summary per prompt that has at least
// one completed result for the job. Prompts whose units all failed are
// skipped without error. Summarize is best-effort per prompt: a persistence
// failure on one prompt is logged and does not block the others.
func (a *Aggregator) Summarize(ctx context.Context, jobID string, prompts []*domain.EvaluationPrompt) error {
	for _, prompt := range prompts {
		summary, err := a.summarizePrompt(ctx, jobID, prompt)
		if err != nil {
			return err
		}
		if summary == nil {
			a.logger.Info("no completed results for prompt, skipping summary",
				"job_id", jobID, "prompt_id", prompt.ID)
			continue
		}
		if err := a.summaries.CreateSummary(ctx, summary); err != nil {
			a.logger.Error("failed to persist summary",
				"job_id", jobID, "prompt_id", prompt.ID, "error", err)
			continue
		}
		if a.sink != nil {
			env := events.New(events.TypeSummaryProduced, "aggregation", jobID, map[string]any{
				"prompt_id":     prompt.ID,
				"result_count":  summary.Count,
				"average_score": summary.AverageScore,
				"pass_rate":     summary.PassRate,
			})
			if err := a.sink.Append(ctx, env); err != nil {
				a.logger.Warn("summary event emission failed", "job_id", jobID, "error", err)
			}
		}
	}
	return nil
}

// summarizePrompt returns nil when the prompt has no completed results.
func (a *Aggregator) summarizePrompt(ctx context.Context, jobID string, prompt *domain.EvaluationPrompt) (*domain.EvaluationSummary, error) {
	results, err := a.results.ListCompletedResults(ctx, jobID, prompt.ID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	scores := make([]float64, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Score.OverallScore)
	}

	return &domain.EvaluationSummary{
		ID:           uuid.NewString(),
		JobID:        jobID,
		PromptID:     prompt.ID,
		Category:     prompt.Category,
		AverageScore: mean(scores),
		MinScore:     minOf(scores),
		MaxScore:     maxOf(scores),
		Count:        len(scores),
		Distribution: distribution(scores),
		PassRate:     passRate(scores),
		CreatedAt:    a.now(),
	}, nil
}

func mean(scores []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func minOf(scores []float64) float64 {
	m := scores[0]
	for _, s := range scores[1:] {
		if s < m {
			m = s
		}
	}
	return m
}

func maxOf(scores []float64) float64 {
	m := scores[0]
	for _, s := range scores[1:] {
		if s > m {
			m = s
		}
	}
	return m
}

// distribution buckets each score by its integer floor, keyed by the
// bucket's decimal representation.
func distribution(scores []float64) map[string]int {
	buckets := make(map[string]int)
	for _, s := range scores {
		key := strconv.Itoa(int(math.Floor(s)))
		buckets[key]++
	}
	return buckets
}

// passRate is the fraction of scores strictly above domain.PassThreshold.
func passRate(scores []float64) float64 {
	var passed int
	for _, s := range scores {
		if s > domain.PassThreshold {
			passed++
		}
	}
	return float64(passed) / float64(len(scores))
}
