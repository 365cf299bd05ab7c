package providers

import (
	"context"
	"net/http"
	"strings"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAIKeyPrefix      = "sk-"
)

// OpenAIAdapter implements the OpenAI-compatible provider family: standard
// chat/completions with system and user messages and bearer-token auth.
type OpenAIAdapter struct{}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string { return ProviderOpenAI }

// Build constructs an OpenAI chat/completions request. Keys that do not
// carry the vendor's "sk-" prefix fail fast with a configuration error so
// no network round-trip is wasted.
func (a *OpenAIAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if !strings.HasPrefix(req.APIKey, openAIKeyPrefix) {
		return nil, llmerrors.WrapConfigError(ProviderOpenAI, llmerrors.ErrInvalidKeyFormat,
			"API key must start with %q", openAIKeyPrefix)
	}

	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	return buildChatRequest(ctx, baseURL, req)
}

// Parse extracts the normalized response from an OpenAI reply.
func (a *OpenAIAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	return parseChatResponse(ProviderOpenAI, httpResp)
}
