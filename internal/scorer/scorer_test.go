package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_StructuredJSON(t *testing.T) {
	t.Run("fenced_block", func(t *testing.T) {
		raw := "Here is my evaluation:\n```json\n{\"score\": 8.5, \"reasoning\": \"ok\"}\n```\nDone."
		outcome := Parse(raw)

		assert.Equal(t, StrategyStructuredJSON, outcome.Strategy)
		assert.InDelta(t, 8.5, outcome.OverallScore, 1e-9)
		assert.Equal(t, "ok", outcome.Reasoning)
		assert.InDelta(t, 8.5, outcome.Scores["score"].(float64), 1e-9)
	})

	t.Run("bare_object", func(t *testing.T) {
		raw := `The result is {"score": 4, "clarity": 3, "reasoning": "clear but slow"} overall.`
		outcome := Parse(raw)

		assert.Equal(t, StrategyStructuredJSON, outcome.Strategy)
		assert.InDelta(t, 4, outcome.OverallScore, 1e-9)
		assert.Equal(t, "clear but slow", outcome.Reasoning)
		assert.InDelta(t, 3, outcome.Scores["clarity"].(float64), 1e-9)
	})

	t.Run("braces_inside_strings_do_not_break_balance", func(t *testing.T) {
		raw := `{"score": 2, "reasoning": "agent said {oops} twice"}`
		outcome := Parse(raw)
		assert.Equal(t, StrategyStructuredJSON, outcome.Strategy)
		assert.InDelta(t, 2, outcome.OverallScore, 1e-9)
	})

	t.Run("alternate_overall_field_names", func(t *testing.T) {
		tests := []struct {
			name string
			raw  string
			want float64
		}{
			{name: "overall_score", raw: `{"overall_score": 7}`, want: 7},
			{name: "quality_score", raw: `{"quality_score": 6}`, want: 6},
			{name: "rating", raw: `{"rating": 5}`, want: 5},
			{name: "evaluation_score", raw: `{"evaluation_score": 9}`, want: 9},
			{name: "score_wins_over_rating", raw: `{"rating": 5, "score": 2}`, want: 2},
			{name: "numeric_string_coerced", raw: `{"score": "4.5"}`, want: 4.5},
			{name: "boolean_coerced", raw: `{"score": true}`, want: 1},
			{name: "no_known_field_yields_zero", raw: `{"sentiment": "positive"}`, want: 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				outcome := Parse(tt.raw)
				require.Equal(t, StrategyStructuredJSON, outcome.Strategy)
				assert.InDelta(t, tt.want, outcome.OverallScore, 1e-9)
			})
		}
	})
}

func TestParse_RegexFallback(t *testing.T) {
	outcome := Parse("The score: 4 out of 5")

	assert.Equal(t, StrategyRegexScore, outcome.Strategy)
	assert.InDelta(t, 4, outcome.OverallScore, 1e-9)
	assert.InDelta(t, 4, outcome.Scores["score"].(float64), 1e-9)
}

func TestParse_RawFallback(t *testing.T) {
	t.Run("gibberish", func(t *testing.T) {
		raw := "no structure here whatsoever"
		outcome := Parse(raw)

		assert.Equal(t, StrategyRawFallback, outcome.Strategy)
		assert.Zero(t, outcome.OverallScore)
		assert.Equal(t, raw, outcome.Scores[RawResponseKey])
	})

	t.Run("unclosed_brace", func(t *testing.T) {
		outcome := Parse(`{"oops": `)
		assert.Equal(t, StrategyRawFallback, outcome.Strategy)
	})

	t.Run("empty_input", func(t *testing.T) {
		outcome := Parse("")
		assert.Equal(t, StrategyRawFallback, outcome.Strategy)
		assert.Empty(t, outcome.Reasoning)
	})
}

func TestExtractReasoning(t *testing.T) {
	t.Run("reasoning_prefix_line", func(t *testing.T) {
		outcome := Parse("score: 3\nReasoning: the agent resolved the issue quickly")
		assert.Equal(t, "the agent resolved the issue quickly", outcome.Reasoning)
	})

	t.Run("explanation_prefix_line", func(t *testing.T) {
		outcome := Parse("rating stuff\nExplanation: customer left satisfied")
		assert.Equal(t, "customer left satisfied", outcome.Reasoning)
	})

	t.Run("analysis_prefix_line", func(t *testing.T) {
		outcome := Parse("Analysis: long silences throughout the call")
		assert.Equal(t, "long silences throughout the call", outcome.Reasoning)
	})

	t.Run("first_sentence_fallback", func(t *testing.T) {
		outcome := Parse("The call went well overall. More text follows here.")
		assert.Equal(t, "The call went well overall.", outcome.Reasoning)
	})

	t.Run("long_text_truncated", func(t *testing.T) {
		raw := strings.Repeat("x", 500)
		outcome := Parse(raw)
		assert.Len(t, outcome.Reasoning, 200)
	})
}
