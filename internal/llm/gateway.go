// Package llm provides the provider gateway: one call contract over LLM
// vendors whose request and response shapes differ. Prompt configuration
// selects the provider family; adapters translate the normalized request and
// re-normalize the response into text plus token usage.
package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/llm/cache"
	"github.com/navchetna/whispey-sub001/internal/llm/providers"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

// Defaults applied when a prompt leaves its generation settings unset.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.3
	DefaultHTTPTimeout = 60 * time.Second
)

// evaluatorSystemPrompt frames every call as a scoring task. The rendered
// rubric rides in the user message.
const evaluatorSystemPrompt = "You are an expert conversation evaluator. " +
	"Evaluate the conversation according to the instructions and respond with " +
	"a JSON object containing your scores and a \"reasoning\" field."

// Gateway issues normalized evaluation calls to LLM providers.
type Gateway interface {
	// Evaluate sends the rendered scoring prompt to the prompt's configured
	// provider and returns the normalized response.
	Evaluate(ctx context.Context, prompt *domain.EvaluationPrompt, renderedPrompt string) (*transport.Response, error)

	// EstimateCost estimates the spend for a call from its token usage.
	EstimateCost(prompt *domain.EvaluationPrompt, usage transport.TokenUsage) domain.MilliCents
}

// Config holds gateway construction options.
type Config struct {
	// HTTPTimeout bounds each provider round-trip.
	HTTPTimeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// APIKeys supplies fallback keys per provider id, used when a prompt
	// carries no key of its own.
	APIKeys map[string]string

	// Cache enables the Redis response cache.
	Cache cache.Config

	Logger  *slog.Logger
	Metrics Metrics
}

type gateway struct {
	handler transport.Handler
	pricing *PricingTable
	apiKeys map[string]string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway builds the gateway with its middleware pipeline: logging and
// metrics outermost, then the optional response cache, then the core HTTP
// handler. Transport-level retries are deliberately absent: a failed unit
// stays failed until a new job is created.
func NewGateway(cfg Config) Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			Timeout: timeout,
		}
	}

	core := transport.NewHTTPHandler(httpClient, providers.NewFactory(logger))

	var middlewares []transport.Middleware
	middlewares = append(middlewares, NewLoggingMiddleware(logger, cfg.Metrics))
	if cfg.Cache.Enabled {
		middlewares = append(middlewares, cache.NewMiddleware(cfg.Cache, nil, logger))
	}

	return &gateway{
		handler: transport.Chain(core, middlewares...),
		pricing: NewPricingTable(),
		apiKeys: cfg.APIKeys,
		timeout: timeout,
		logger:  logger,
	}
}

// Evaluate implements Gateway.
func (g *gateway) Evaluate(
	ctx context.Context, prompt *domain.EvaluationPrompt, renderedPrompt string,
) (*transport.Response, error) {
	apiKey := prompt.APIKey
	if apiKey == "" {
		apiKey = g.apiKeys[prompt.Provider]
	}

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	temperature := DefaultTemperature
	if prompt.Temperature != nil {
		temperature = *prompt.Temperature
	}

	req := &transport.Request{
		Provider:     prompt.Provider,
		Model:        prompt.Model,
		BaseURL:      prompt.APIBase,
		APIKey:       apiKey,
		SystemPrompt: evaluatorSystemPrompt,
		UserPrompt:   renderedPrompt,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		Timeout:      g.timeout,
	}

	return g.handler.Handle(ctx, req)
}

// EstimateCost implements Gateway.
func (g *gateway) EstimateCost(prompt *domain.EvaluationPrompt, usage transport.TokenUsage) domain.MilliCents {
	return g.pricing.EstimateCost(prompt.Provider, prompt.Model, usage)
}
