package selector

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

func usableTranscript() []domain.TranscriptTurn {
	return []domain.TranscriptTurn{
		{TurnID: 1, UserText: "hello"},
		{TurnID: 2, AgentText: "hi, how can I help?"},
	}
}

func seedStore(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	st.PutAgent("agent-1", "proj-1")
	st.PutAgent("agent-2", "proj-2")

	st.PutTrace(&domain.Trace{
		ID: "t-old", AgentID: "agent-1", Status: "completed",
		DurationSeconds: 120, Transcript: usableTranscript(),
		CreatedAt: fixedNow.AddDate(0, 0, -40),
	})
	st.PutTrace(&domain.Trace{
		ID: "t-recent", AgentID: "agent-1", Status: "completed",
		DurationSeconds: 45, Transcript: usableTranscript(),
		CreatedAt: fixedNow.Add(-2 * time.Hour),
	})
	st.PutTrace(&domain.Trace{
		ID: "t-failed", AgentID: "agent-1", Status: "failed",
		DurationSeconds: 200, Transcript: usableTranscript(),
		CreatedAt: fixedNow.Add(-3 * time.Hour),
	})
	st.PutTrace(&domain.Trace{
		ID: "t-empty", AgentID: "agent-1", Status: "completed",
		DurationSeconds: 30, Transcript: nil,
		CreatedAt: fixedNow.Add(-1 * time.Hour),
	})
	st.PutTrace(&domain.Trace{
		ID: "t-foreign", AgentID: "agent-2", Status: "completed",
		DurationSeconds: 60, Transcript: usableTranscript(),
		CreatedAt: fixedNow.Add(-1 * time.Hour),
	})
	return st
}

func newJob(selection domain.TraceSelection) *domain.EvaluationJob {
	return &domain.EvaluationJob{
		ID:        "job-1",
		ProjectID: "proj-1",
		AgentID:   "agent-1",
		PromptIDs: []string{"p-1"},
		Selection: selection,
		Status:    domain.JobStatusPending,
		CreatedAt: fixedNow,
	}
}

func newSelector(t *testing.T, st *memstore.Store) *Selector {
	t.Helper()
	return New(st, nil).WithClock(func() time.Time { return fixedNow })
}

func traceIDs(traces []*domain.Trace) []string {
	ids := make([]string, 0, len(traces))
	for _, tr := range traces {
		ids = append(ids, tr.ID)
	}
	return ids
}

func TestSelector_AllMode(t *testing.T) {
	sel := newSelector(t, seedStore(t))

	traces, err := sel.Select(context.Background(), newJob(domain.TraceSelection{Mode: domain.SelectAll}))
	require.NoError(t, err)

	// Everything owned by agent-1 minus the unusable-transcript trace,
	// ordered by creation time. Status is not filtered in all mode.
	assert.Equal(t, []string{"t-old", "t-failed", "t-recent"}, traceIDs(traces))
}

func TestSelector_ExplicitMode(t *testing.T) {
	sel := newSelector(t, seedStore(t))

	traces, err := sel.Select(context.Background(), newJob(domain.TraceSelection{
		Mode:     domain.SelectExplicit,
		TraceIDs: []string{"t-recent", "t-missing", "t-foreign", "t-old"},
	}))
	require.NoError(t, err)

	// Unknown and foreign ids are silently dropped; requested order sticks.
	assert.Equal(t, []string{"t-recent", "t-old"}, traceIDs(traces))
}

func TestSelector_FilteredMode(t *testing.T) {
	tests := []struct {
		name      string
		selection domain.TraceSelection
		want      []string
	}{
		{
			name:      "default_successful_status_set",
			selection: domain.TraceSelection{Mode: domain.SelectFiltered},
			want:      []string{"t-old", "t-recent"},
		},
		{
			name:      "explicit_status_match",
			selection: domain.TraceSelection{Mode: domain.SelectFiltered, Status: "failed"},
			want:      []string{"t-failed"},
		},
		{
			name:      "relative_window_last_24h",
			selection: domain.TraceSelection{Mode: domain.SelectFiltered, Window: domain.WindowDay},
			want:      []string{"t-recent"},
		},
		{
			name:      "relative_window_last_90d",
			selection: domain.TraceSelection{Mode: domain.SelectFiltered, Window: domain.WindowQuarter},
			want:      []string{"t-old", "t-recent"},
		},
		{
			name: "min_duration_inclusive",
			selection: domain.TraceSelection{
				Mode:               domain.SelectFiltered,
				MinDurationSeconds: 45,
			},
			want: []string{"t-old", "t-recent"},
		},
		{
			name: "min_duration_excludes_shorter",
			selection: domain.TraceSelection{
				Mode:               domain.SelectFiltered,
				MinDurationSeconds: 46,
			},
			want: []string{"t-old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := newSelector(t, seedStore(t))
			traces, err := sel.Select(context.Background(), newJob(tt.selection))
			require.NoError(t, err)
			assert.Equal(t, tt.want, traceIDs(traces))
		})
	}
}

func TestSelector_ExplicitDateRange_EndDateInclusiveByDay(t *testing.T) {
	st := memstore.New()
	st.PutAgent("agent-1", "proj-1")

	endDate := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	st.PutTrace(&domain.Trace{
		ID: "t-on-end-date", AgentID: "agent-1", Status: "completed",
		DurationSeconds: 60, Transcript: usableTranscript(),
		CreatedAt: endDate, // exactly at the date-only end boundary
	})
	st.PutTrace(&domain.Trace{
		ID: "t-next-day", AgentID: "agent-1", Status: "completed",
		DurationSeconds: 60, Transcript: usableTranscript(),
		CreatedAt: endDate.AddDate(0, 0, 1),
	})

	start := endDate.AddDate(0, 0, -7)
	sel := newSelector(t, st)
	traces, err := sel.Select(context.Background(), newJob(domain.TraceSelection{
		Mode:      domain.SelectFiltered,
		StartDate: &start,
		EndDate:   &endDate,
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"t-on-end-date"}, traceIDs(traces))
}

func TestSelector_AgentProjectMismatchReturnsEmpty(t *testing.T) {
	sel := newSelector(t, seedStore(t))

	job := newJob(domain.TraceSelection{Mode: domain.SelectAll})
	job.ProjectID = "proj-2" // agent-1 belongs to proj-1

	traces, err := sel.Select(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestSelector_Idempotent(t *testing.T) {
	st := seedStore(t)
	sel := newSelector(t, st)
	job := newJob(domain.TraceSelection{Mode: domain.SelectFiltered, Window: domain.WindowQuarter})

	first, err := sel.Select(context.Background(), job)
	require.NoError(t, err)
	second, err := sel.Select(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, traceIDs(first), traceIDs(second))
}
