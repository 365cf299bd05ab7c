package llm

import (
	"context"
	"log/slog"
	"time"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

// Metrics provides observability data collection for gateway operations.
// The orchestrator and gateway report through this interface; the metrics
// package supplies a Prometheus-backed implementation.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
}

// NoOpMetrics satisfies Metrics without collecting anything. Used in tests
// and when metrics are disabled.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a no-op metrics collector.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (n *NoOpMetrics) IncrementCounter(_ string, _ map[string]string, _ float64) {}

func (n *NoOpMetrics) RecordHistogram(_ string, _ map[string]string, _ float64) {}

// NewLoggingMiddleware wraps gateway calls with structured request/response
// logging and metrics. Prompts are never logged; only their length is.
func NewLoggingMiddleware(logger *slog.Logger, metrics Metrics) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			tags := map[string]string{
				"provider": req.Provider,
				"model":    req.Model,
			}

			logger.Debug("llm call starting",
				"provider", req.Provider,
				"model", req.Model,
				"trace_id", req.TraceID,
				"prompt_chars", len(req.UserPrompt))

			metrics.IncrementCounter("llm_requests_total", tags, 1)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			duration := time.Since(start)

			metrics.RecordHistogram("llm_request_duration_ms", tags, float64(duration.Milliseconds()))

			if err != nil {
				metrics.IncrementCounter("llm_request_errors_total", tags, 1)
				logger.Error("llm call failed",
					"provider", req.Provider,
					"model", req.Model,
					"trace_id", req.TraceID,
					"duration_ms", duration.Milliseconds(),
					"configuration_error", llmerrors.IsConfiguration(err),
					"error", err)
				return nil, err
			}

			logger.Debug("llm call completed",
				"provider", req.Provider,
				"model", req.Model,
				"trace_id", req.TraceID,
				"duration_ms", duration.Milliseconds(),
				"total_tokens", resp.Usage.TotalTokens,
				"from_cache", resp.FromCache)

			return resp, nil
		})
	}
}
