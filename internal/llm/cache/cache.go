// Package cache provides an optional Redis-backed response cache for the
// LLM gateway. Identical (provider, model, prompt) calls within the TTL are
// served from Redis instead of the vendor, which matters when re-running
// rubric batches during prompt development.
//
// The cache is success-only and degrades gracefully: any Redis failure is
// logged and treated as a miss, never surfaced to the evaluation unit.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

// DefaultTTL is the cache entry lifetime when none is configured.
const DefaultTTL = 6 * time.Hour

const keyPrefix = "evalcache:"

// Config controls the response cache.
type Config struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Addr     string        `json:"addr" yaml:"addr"`
	Password string        `json:"-" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// cachedResponse is the serialized form stored in Redis. Headers and the
// raw body are deliberately not cached.
type cachedResponse struct {
	Text  string               `json:"text"`
	Usage transport.TokenUsage `json:"usage"`
}

// NewMiddleware creates the cache middleware backed by the given Redis
// client. A nil client creates one from the config.
func NewMiddleware(cfg Config, client redis.UniversalClient, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	c := &responseCache{client: client, ttl: cfg.TTL, logger: logger}

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			key := cacheKey(req)

			if resp, ok := c.lookup(ctx, key); ok {
				return resp, nil
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			c.store(ctx, key, resp)
			return resp, nil
		})
	}
}

type responseCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func (c *responseCache) lookup(ctx context.Context, key string) (*transport.Response, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("response cache lookup failed, treating as miss", "error", err)
		}
		return nil, false
	}

	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.Warn("response cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	return &transport.Response{
		Text:      cached.Text,
		Usage:     cached.Usage,
		FromCache: true,
	}, true
}

func (c *responseCache) store(ctx context.Context, key string, resp *transport.Response) {
	raw, err := json.Marshal(cachedResponse{Text: resp.Text, Usage: resp.Usage})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("response cache store failed", "error", err)
	}
}

// cacheKey derives a deterministic key from the fields that influence the
// vendor response. The API key is excluded: responses do not depend on it.
func cacheKey(req *transport.Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%.3f|%d|%s|%s",
		req.Provider, req.Model, req.BaseURL,
		req.Temperature, req.MaxTokens,
		req.SystemPrompt, req.UserPrompt)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
