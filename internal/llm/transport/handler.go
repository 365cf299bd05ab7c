package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
)

// Router selects a provider adapter for a request. Adapters are constructed
// per call because credentials and base URLs vary per prompt.
type Router interface {
	Pick(req *Request) (ProviderAdapter, error)
}

// ProviderAdapter abstracts provider-specific HTTP communication. Each
// family implements request translation and response normalization; adding
// a vendor never touches the orchestrator.
type ProviderAdapter interface {
	// Build constructs the provider-specific HTTP request. Configuration
	// faults (bad key format, missing base URL) are returned here, before
	// any network round-trip.
	Build(ctx context.Context, req *Request) (*http.Request, error)

	// Parse extracts the normalized Response from the provider's HTTP
	// response, mapping error statuses to typed provider errors.
	Parse(httpResp *http.Response) (*Response, error)

	// Name returns the canonical provider identifier.
	Name() string
}

// Handler processes LLM requests through a composable middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs the actual HTTP
// round-trip against the provider chosen by the router.
func NewHTTPHandler(client *http.Client, router Router) Handler {
	return &httpHandler{client: client, router: router}
}

type httpHandler struct {
	client *http.Client
	router Router
}

// Handle implements Handler by translating the request through the provider
// adapter, issuing it, and normalizing the response.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := h.router.Pick(req)
	if err != nil {
		return nil, err
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := adapter.Build(reqCtx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("HTTP request to %s failed: %w", adapter.Name(), err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp, err := adapter.Parse(httpResp)
	if err != nil {
		return nil, err
	}

	resp.LatencyMs = latency.Milliseconds()

	if resp.Text == "" {
		return nil, fmt.Errorf("%s: %w", adapter.Name(), llmerrors.ErrEmptyResponse)
	}

	return resp, nil
}
