// Package providers implements per-vendor adapters that translate the
// normalized gateway request into each provider family's wire format and
// re-normalize the response. Three families are supported, plus custom
// OpenAI-compatible endpoints:
//
//   - openai: standard chat/completions with bearer-token auth.
//   - google: generateContent with content parts, no system role, API key
//     passed as a query parameter.
//   - groq: chat/completions-shaped fast-inference endpoint with its own
//     key-prefix rule and a known-model allow-list.
//
// Unlisted provider ids are treated as custom OpenAI-compatible endpoints
// and require an explicit base URL.
package providers

import (
	"log/slog"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

// Canonical provider family identifiers.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderGroq   = "groq"
)

// Factory builds provider adapters per request. It implements
// transport.Router; adapters are cheap stateless structs, so constructing
// one per call keeps per-prompt credentials out of shared state.
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates an adapter factory. A nil logger falls back to the
// default slog logger.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Pick selects the adapter for the request's provider id. Unknown ids fall
// through to the custom adapter, which requires an explicit base URL.
func (f *Factory) Pick(req *transport.Request) (transport.ProviderAdapter, error) {
	if req.APIKey == "" {
		return nil, llmerrors.WrapConfigError(req.Provider, llmerrors.ErrMissingAPIKey,
			"no API key configured for model %q", req.Model)
	}

	switch req.Provider {
	case ProviderOpenAI:
		return &OpenAIAdapter{}, nil
	case ProviderGoogle:
		return &GoogleAdapter{}, nil
	case ProviderGroq:
		return &GroqAdapter{logger: f.logger}, nil
	default:
		if req.BaseURL == "" {
			return nil, llmerrors.WrapConfigError(req.Provider, llmerrors.ErrMissingBaseURL,
				"unlisted provider requires an explicit API base URL")
		}
		return &CustomAdapter{provider: req.Provider}, nil
	}
}
