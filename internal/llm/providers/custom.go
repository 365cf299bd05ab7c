package providers

import (
	"context"
	"net/http"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

// CustomAdapter handles unlisted providers that expose an OpenAI-compatible
// endpoint at a caller-supplied base URL. No key-format rule applies; the
// base URL requirement is enforced by the factory before the adapter exists.
type CustomAdapter struct {
	provider string
}

// Name returns the configured provider id.
func (a *CustomAdapter) Name() string { return a.provider }

// Build constructs a chat/completions request against the explicit base URL.
func (a *CustomAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if req.BaseURL == "" {
		return nil, llmerrors.WrapConfigError(a.provider, llmerrors.ErrMissingBaseURL,
			"unlisted provider requires an explicit API base URL")
	}
	return buildChatRequest(ctx, req.BaseURL, req)
}

// Parse extracts the normalized response.
func (a *CustomAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	return parseChatResponse(a.provider, httpResp)
}
