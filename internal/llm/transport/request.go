// Package transport defines the normalized request/response shapes for LLM
// gateway calls and the middleware pipeline they flow through. Provider
// families differ in wire format; everything above this package sees one
// call contract: rendered prompt in, text plus token usage out.
package transport

import (
	"net/http"
	"time"
)

// Request is a normalized LLM call. Provider adapters translate it into the
// vendor's wire format.
type Request struct {
	// Provider selects the adapter family ("openai", "google", "groq", or a
	// custom provider id that requires BaseURL).
	Provider string `json:"provider"`

	// Model is the vendor model identifier.
	Model string `json:"model"`

	// BaseURL overrides the provider's default endpoint when set.
	BaseURL string `json:"base_url,omitempty"`

	// APIKey authenticates the call. Sensitive, never serialized.
	APIKey string `json:"-"`

	// SystemPrompt carries evaluator instructions. Providers without a
	// system role merge it into the first user turn.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// UserPrompt is the fully rendered scoring prompt.
	UserPrompt string `json:"user_prompt"`

	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`

	// Timeout bounds the call; zero means the client default applies.
	Timeout time.Duration `json:"timeout,omitempty"`

	// TraceID correlates the call with the evaluation unit that issued it.
	TraceID string `json:"trace_id,omitempty"`
}

// TokenUsage holds normalized token counts for a call. Counts default to
// zero when the provider does not report usage.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is the normalized result of an LLM call.
type Response struct {
	// Text is the model's response content.
	Text string `json:"text"`

	// Usage holds token counts, zero-valued when unreported.
	Usage TokenUsage `json:"usage"`

	// LatencyMs is the wall-clock duration of the HTTP round-trip.
	LatencyMs int64 `json:"latency_ms"`

	// FromCache indicates the response was served by the cache middleware.
	FromCache bool `json:"from_cache,omitempty"`

	// Headers and RawBody preserve the provider response for debugging.
	Headers http.Header `json:"-"`
	RawBody []byte      `json:"-"`
}
