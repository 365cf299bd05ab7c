package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/store/memstore"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func seedResults(t *testing.T, st *memstore.Store, jobID, promptID string, scores []float64) {
	t.Helper()
	for i, score := range scores {
		err := st.CreateResult(context.Background(), &domain.EvaluationResult{
			ID:        promptID + "-r-" + string(rune('a'+i)),
			JobID:     jobID,
			PromptID:  promptID,
			TraceID:   promptID + "-t-" + string(rune('a'+i)),
			Status:    domain.ResultStatusCompleted,
			Score:     domain.ScorePayload{OverallScore: score},
			CreatedAt: fixedNow,
		})
		require.NoError(t, err)
	}
}

func TestAggregator_Summarize(t *testing.T) {
	st := memstore.New()
	seedResults(t, st, "job-1", "p-1", []float64{2, 4, 4, 8})

	// A failed unit for the same prompt must not influence the summary.
	require.NoError(t, st.CreateResult(context.Background(), &domain.EvaluationResult{
		ID: "r-failed", JobID: "job-1", PromptID: "p-1", TraceID: "t-failed",
		Status: domain.ResultStatusFailed, ErrorMessage: "provider timeout",
		CreatedAt: fixedNow,
	}))

	agg := New(st, st, nil).WithClock(func() time.Time { return fixedNow })
	prompts := []*domain.EvaluationPrompt{
		{ID: "p-1", Name: "helpfulness", Category: "quality"},
	}
	require.NoError(t, agg.Summarize(context.Background(), "job-1", prompts))

	summaries := st.Summaries()
	require.Len(t, summaries, 1)

	got := summaries[0]
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "p-1", got.PromptID)
	assert.Equal(t, "quality", got.Category)
	assert.InDelta(t, 4.5, got.AverageScore, 1e-9)
	assert.Equal(t, 2.0, got.MinScore)
	assert.Equal(t, 8.0, got.MaxScore)
	assert.Equal(t, 4, got.Count)
	assert.Equal(t, map[string]int{"2": 1, "4": 2, "8": 1}, got.Distribution)
	// Strictly above the 3.0 threshold: 4, 4, and 8 pass, 2 does not.
	assert.InDelta(t, 0.75, got.PassRate, 1e-9)
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestAggregator_FractionalScoresFloorIntoBuckets(t *testing.T) {
	st := memstore.New()
	seedResults(t, st, "job-1", "p-1", []float64{4.7, 4.1, 3.0})

	agg := New(st, st, nil).WithClock(func() time.Time { return fixedNow })
	require.NoError(t, agg.Summarize(context.Background(), "job-1",
		[]*domain.EvaluationPrompt{{ID: "p-1", Name: "accuracy"}}))

	summaries := st.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, map[string]int{"4": 2, "3": 1}, summaries[0].Distribution)
	// Exactly 3.0 does not pass; the threshold is strict.
	assert.InDelta(t, 2.0/3.0, summaries[0].PassRate, 1e-9)
}

func TestAggregator_NoCompletedResultsProducesNoRow(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.CreateResult(context.Background(), &domain.EvaluationResult{
		ID: "r-1", JobID: "job-1", PromptID: "p-1", TraceID: "t-1",
		Status: domain.ResultStatusFailed, ErrorMessage: "bad key",
		CreatedAt: fixedNow,
	}))

	agg := New(st, st, nil)
	require.NoError(t, agg.Summarize(context.Background(), "job-1",
		[]*domain.EvaluationPrompt{{ID: "p-1", Name: "tone"}}))

	assert.Empty(t, st.Summaries())
}

func TestAggregator_SummarizesEachPromptIndependently(t *testing.T) {
	st := memstore.New()
	seedResults(t, st, "job-1", "p-1", []float64{5})
	seedResults(t, st, "job-1", "p-2", []float64{1, 2})

	agg := New(st, st, nil).WithClock(func() time.Time { return fixedNow })
	require.NoError(t, agg.Summarize(context.Background(), "job-1",
		[]*domain.EvaluationPrompt{{ID: "p-1"}, {ID: "p-2"}, {ID: "p-3"}}))

	summaries := st.Summaries()
	require.Len(t, summaries, 2)

	byPrompt := make(map[string]*domain.EvaluationSummary, len(summaries))
	for _, s := range summaries {
		byPrompt[s.PromptID] = s
	}
	assert.Equal(t, 1.0, byPrompt["p-1"].PassRate)
	assert.Equal(t, 0.0, byPrompt["p-2"].PassRate)
	assert.NotContains(t, byPrompt, "p-3")
}
