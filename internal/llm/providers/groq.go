package providers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqKeyPrefix      = "gsk_"
)

// groqKnownModels is the allow-list of model identifiers the fast-inference
// endpoint is known to serve. Unknown models only produce a warning; the
// vendor rotates models faster than this list is updated.
var groqKnownModels = map[string]struct{}{
	"llama-3.1-8b-instant":     {},
	"llama-3.3-70b-versatile":  {},
	"meta-llama/llama-4-scout": {},
	"mixtral-8x7b-32768":       {},
	"gemma2-9b-it":             {},
}

// GroqAdapter implements the fast-inference provider family. The call shape
// is OpenAI-compatible; only the key-prefix rule and model allow-list differ.
type GroqAdapter struct {
	logger *slog.Logger
}

// Name returns the provider name.
func (a *GroqAdapter) Name() string { return ProviderGroq }

// Build constructs a Groq chat/completions request with its distinct
// key-prefix validation.
func (a *GroqAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if !strings.HasPrefix(req.APIKey, groqKeyPrefix) {
		return nil, llmerrors.WrapConfigError(ProviderGroq, llmerrors.ErrInvalidKeyFormat,
			"API key must start with %q", groqKeyPrefix)
	}

	if _, known := groqKnownModels[req.Model]; !known {
		logger := a.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("model not in groq allow-list, proceeding anyway",
			"model", req.Model)
	}

	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = groqDefaultBaseURL
	}

	return buildChatRequest(ctx, baseURL, req)
}

// Parse extracts the normalized response from a Groq reply.
func (a *GroqAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	return parseChatResponse(ProviderGroq, httpResp)
}
