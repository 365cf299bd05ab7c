package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
	"github.com/navchetna/whispey-sub001/internal/store"
	"github.com/navchetna/whispey-sub001/internal/store/memstore"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// routingGateway keys its behavior on the trace id rendered into the
// prompt via {{trace_id}}: canned response text per trace, forced errors
// for traces in failTraces, a generic score for everything else.
type routingGateway struct {
	mu         sync.Mutex
	responses  map[string]string
	failTraces map[string]error
	calls      int
}

func (g *routingGateway) Evaluate(_ context.Context, _ *domain.EvaluationPrompt, rendered string) (*transport.Response, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	for traceID, err := range g.failTraces {
		if strings.Contains(rendered, traceID) {
			return nil, err
		}
	}
	for traceID, text := range g.responses {
		if strings.Contains(rendered, traceID) {
			return &transport.Response{
				Text:      text,
				Usage:     transport.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
				LatencyMs: 42,
			}, nil
		}
	}
	return &transport.Response{Text: `{"score": 5}`, LatencyMs: 42}, nil
}

func (g *routingGateway) EstimateCost(_ *domain.EvaluationPrompt, usage transport.TokenUsage) domain.MilliCents {
	return domain.MilliCents(usage.TotalTokens)
}

func (g *routingGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func usableTranscript() []domain.TranscriptTurn {
	return []domain.TranscriptTurn{
		{TurnID: 1, UserText: "hello"},
		{TurnID: 2, AgentText: "hi there"},
	}
}

func seedJob(st *memstore.Store, traceCount int) *domain.EvaluationJob {
	st.PutAgent("agent-1", "proj-1")
	st.PutPrompt(&domain.EvaluationPrompt{
		ID:        "p-1",
		Name:      "helpfulness",
		ScoreType: domain.ScoreTypeFloat,
		Template:  "Rate this call ({{trace_id}}):\n{{transcript}}",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		Category:  "quality",
	})
	for i := 0; i < traceCount; i++ {
		st.PutTrace(&domain.Trace{
			ID:      "t-" + string(rune('1'+i)),
			AgentID: "agent-1", Status: "completed",
			DurationSeconds: 60, Transcript: usableTranscript(),
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		})
	}
	job := &domain.EvaluationJob{
		ID: "job-1", ProjectID: "proj-1", AgentID: "agent-1",
		PromptIDs: []string{"p-1"},
		Selection: domain.TraceSelection{Mode: domain.SelectAll},
		Status:    domain.JobStatusPending,
		CreatedAt: fixedNow,
	}
	st.PutJob(job)
	return job
}

func newOrchestrator(st store.Store, gw *routingGateway, concurrency int) *Orchestrator {
	return New(Config{
		Store:       st,
		Gateway:     gw,
		Concurrency: concurrency,
	}).WithClock(func() time.Time { return fixedNow })
}

func TestRun_MixedOutcomes(t *testing.T) {
	st := memstore.New()
	seedJob(st, 3)

	gw := &routingGateway{
		responses: map[string]string{
			"t-1": `{"score": 4.5, "reasoning": "solid answer"}`,
			"t-3": `{"score": 2.0, "reasoning": "missed the question"}`,
		},
		failTraces: map[string]error{
			"t-2": errors.New("provider unavailable"),
		},
	}

	require.NoError(t, newOrchestrator(st, gw, 1).Run(context.Background(), "job-1"))

	job, err := st.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalTraces)
	assert.Equal(t, 2, job.CompletedUnits)
	assert.Equal(t, 1, job.FailedUnits)
	assert.True(t, job.CheckCounters())
	require.NotNil(t, job.StartedAt)
	require.NotNil(t, job.CompletedAt)

	results := st.Results()
	require.Len(t, results, 3)

	byTrace := make(map[string]*domain.EvaluationResult, len(results))
	for _, r := range results {
		byTrace[r.TraceID] = r
	}
	assert.Equal(t, 4.5, byTrace["t-1"].Score.OverallScore)
	assert.Equal(t, "solid answer", byTrace["t-1"].Reasoning)
	assert.Equal(t, domain.MilliCents(120), byTrace["t-1"].Cost)
	assert.Equal(t, int64(120), byTrace["t-1"].TokensUsed)

	assert.Equal(t, domain.ResultStatusFailed, byTrace["t-2"].Status)
	assert.Equal(t, "provider unavailable", byTrace["t-2"].ErrorMessage)
	assert.Empty(t, byTrace["t-2"].RawResponse)

	// One prompt with two completed results yields one summary.
	summaries := st.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].Count)
	assert.InDelta(t, 3.25, summaries[0].AverageScore, 1e-9)
	assert.InDelta(t, 0.5, summaries[0].PassRate, 1e-9)
}

func TestRun_ZeroTracesShortCircuits(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 0)

	gw := &routingGateway{}
	require.NoError(t, newOrchestrator(st, gw, 1).Run(context.Background(), job.ID))

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 0, got.TotalTraces)
	assert.Nil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	assert.Zero(t, gw.callCount())
	assert.Empty(t, st.Results())
	assert.Empty(t, st.Summaries())
}

func TestRun_MissingJobReturnsError(t *testing.T) {
	st := memstore.New()
	gw := &routingGateway{}

	err := newOrchestrator(st, gw, 1).Run(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestRun_UnknownPromptFailsJob(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 1)
	job.PromptIDs = []string{"p-missing"}
	st.PutJob(job)

	gw := &routingGateway{}
	require.NoError(t, newOrchestrator(st, gw, 1).Run(context.Background(), job.ID))

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "load prompts")
	assert.Zero(t, gw.callCount())
}

func TestRun_MalformedJobFailsValidation(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 1)
	job.AgentID = ""
	st.PutJob(job)

	gw := &routingGateway{}
	require.NoError(t, newOrchestrator(st, gw, 1).Run(context.Background(), job.ID))

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "invalid job")
	assert.Zero(t, gw.callCount())
}

func TestRun_MalformedPromptFailsJob(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 1)
	// Overwrite the seeded prompt with one missing its judge model.
	st.PutPrompt(&domain.EvaluationPrompt{
		ID:        "p-1",
		Name:      "helpfulness",
		ScoreType: domain.ScoreTypeFloat,
		Template:  "Rate {{transcript}}",
		Provider:  "openai",
	})

	gw := &routingGateway{}
	require.NoError(t, newOrchestrator(st, gw, 1).Run(context.Background(), job.ID))

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "invalid prompt p-1")
	assert.Zero(t, gw.callCount())
}

func TestRun_AgentProjectMismatchCompletesEmpty(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 2)
	job.ProjectID = "proj-other"
	st.PutJob(job)

	gw := &routingGateway{}
	require.NoError(t, newOrchestrator(st, gw, 1).Run(context.Background(), job.ID))

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 0, got.TotalTraces)
	assert.Empty(t, st.Results())
}

func TestRun_NonPendingJobRejected(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 1)
	job.Status = domain.JobStatusCompleted
	now := fixedNow
	job.CompletedAt = &now
	st.PutJob(job)

	gw := &routingGateway{}
	err := newOrchestrator(st, gw, 1).Run(context.Background(), job.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotPending)
}

func TestRun_ConcurrentPoolExactlyOnce(t *testing.T) {
	st := memstore.New()
	seedJob(st, 8)

	gw := &routingGateway{}

	require.NoError(t, newOrchestrator(st, gw, 4).Run(context.Background(), "job-1"))

	job, err := st.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 8, job.CompletedUnits)
	assert.Equal(t, 0, job.FailedUnits)

	results := st.Results()
	require.Len(t, results, 8)
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		key := r.PromptID + "/" + r.TraceID
		assert.False(t, seen[key], "duplicate result for %s", key)
		seen[key] = true
	}
}

func TestRun_CancelledContextFailsJob(t *testing.T) {
	st := memstore.New()
	job := seedJob(st, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &routingGateway{}
	require.NoError(t, newOrchestrator(st, gw, 1).Run(ctx, job.ID))

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "evaluation interrupted")
}
