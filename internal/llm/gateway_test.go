package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navchetna/whispey-sub001/internal/domain"
	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

func newChatServer(t *testing.T, hits *atomic.Int64, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]int{
				"prompt_tokens":     100,
				"completion_tokens": 20,
				"total_tokens":      120,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGateway_Evaluate(t *testing.T) {
	var hits atomic.Int64
	server := newChatServer(t, &hits, `{"score": 4, "reasoning": "solid handling"}`)
	defer server.Close()

	gw := NewGateway(Config{})

	prompt := &domain.EvaluationPrompt{
		ID:        "p1",
		ScoreType: domain.ScoreTypeInteger,
		Template:  "Rate {{transcript}}",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIBase:   server.URL,
		APIKey:    "sk-test",
	}

	resp, err := gw.Evaluate(context.Background(), prompt, "Rate this conversation.")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, `{"score": 4, "reasoning": "solid handling"}`, resp.Text)
	assert.Equal(t, int64(120), resp.Usage.TotalTokens)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestGateway_Evaluate_ConfigErrorSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	server := newChatServer(t, &hits, "unused")
	defer server.Close()

	gw := NewGateway(Config{})

	prompt := &domain.EvaluationPrompt{
		ID:        "p1",
		ScoreType: domain.ScoreTypeInteger,
		Template:  "Rate {{transcript}}",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIBase:   server.URL,
		APIKey:    "not-an-openai-key",
	}

	_, err := gw.Evaluate(context.Background(), prompt, "Rate this conversation.")
	require.Error(t, err)
	assert.True(t, llmerrors.IsConfiguration(err))
	assert.Zero(t, hits.Load(), "configuration errors must not reach the network")
}

func TestGateway_Evaluate_FallbackAPIKey(t *testing.T) {
	var hits atomic.Int64
	server := newChatServer(t, &hits, "ok")
	defer server.Close()

	gw := NewGateway(Config{APIKeys: map[string]string{"openai": "sk-env-key"}})

	prompt := &domain.EvaluationPrompt{
		ID:        "p1",
		ScoreType: domain.ScoreTypeInteger,
		Template:  "Rate {{transcript}}",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIBase:   server.URL,
	}

	_, err := gw.Evaluate(context.Background(), prompt, "Rate this conversation.")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestGateway_Evaluate_TemperatureResolution(t *testing.T) {
	var gotTemperature atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Temperature float64 `json:"temperature"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotTemperature.Store(body.Temperature)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	gw := NewGateway(Config{})
	prompt := &domain.EvaluationPrompt{
		ID:        "p1",
		ScoreType: domain.ScoreTypeInteger,
		Template:  "Rate {{transcript}}",
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIBase:   server.URL,
		APIKey:    "sk-test",
	}

	t.Run("unset_falls_back_to_default", func(t *testing.T) {
		_, err := gw.Evaluate(context.Background(), prompt, "Rate this conversation.")
		require.NoError(t, err)
		assert.InDelta(t, DefaultTemperature, gotTemperature.Load().(float64), 1e-9)
	})

	t.Run("explicit_zero_is_preserved", func(t *testing.T) {
		zero := 0.0
		prompt.Temperature = &zero
		_, err := gw.Evaluate(context.Background(), prompt, "Rate this conversation.")
		require.NoError(t, err)
		assert.InDelta(t, 0.0, gotTemperature.Load().(float64), 1e-9)
	})
}

func TestPricingTable_EstimateCost(t *testing.T) {
	table := NewPricingTable()

	usage := transport.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000}

	t.Run("known_model", func(t *testing.T) {
		cost := table.EstimateCost("openai", "gpt-4o-mini", usage)
		assert.Equal(t, domain.MilliCents(75), cost)
	})

	t.Run("unknown_model_uses_provider_default", func(t *testing.T) {
		cost := table.EstimateCost("openai", "gpt-99", usage)
		assert.Equal(t, domain.MilliCents(200), cost)
	})

	t.Run("unknown_provider_estimates_zero", func(t *testing.T) {
		cost := table.EstimateCost("fireworks", "llama-v3", usage)
		assert.True(t, cost.IsZero())
	})

	t.Run("override", func(t *testing.T) {
		table.Set("fireworks", "llama-v3", 10, 20)
		cost := table.EstimateCost("fireworks", "llama-v3", usage)
		assert.Equal(t, domain.MilliCents(30), cost)
	})
}
