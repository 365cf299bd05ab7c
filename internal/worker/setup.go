package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/navchetna/whispey-sub001/internal/config"
	"github.com/navchetna/whispey-sub001/internal/llm"
	"github.com/navchetna/whispey-sub001/internal/metrics"
	"github.com/navchetna/whispey-sub001/internal/orchestrator"
	"github.com/navchetna/whispey-sub001/internal/store"
	"github.com/navchetna/whispey-sub001/internal/store/postgres"
	"github.com/navchetna/whispey-sub001/pkg/events"
)

// Deps holds the constructed evaluation pipeline for a worker process.
type Deps struct {
	Store        store.Store
	Gateway      llm.Gateway
	Orchestrator *orchestrator.Orchestrator
	Collector    *metrics.Collector
	Sink         events.EventSink

	closeStore func()
}

// Close releases held resources.
func (d *Deps) Close() {
	if d.closeStore != nil {
		d.closeStore()
	}
}

// Initialize builds the pipeline from configuration: Postgres store, LLM
// gateway with caching and metrics, and the orchestrator on top.
func Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	st, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	collector := metrics.NewCollector()
	sink := events.NewLogSink(logger)

	gateway := llm.NewGateway(llm.Config{
		HTTPTimeout: cfg.Worker.HTTPTimeout,
		APIKeys:     cfg.APIKeys(),
		Cache:       cfg.CacheConfig(),
		Logger:      logger,
		Metrics:     collector,
	})

	orch := orchestrator.New(orchestrator.Config{
		Store:       st,
		Gateway:     gateway,
		Concurrency: cfg.Worker.Concurrency,
		Sink:        sink,
		Metrics:     collector,
		Logger:      logger,
	})

	return &Deps{
		Store:        st,
		Gateway:      gateway,
		Orchestrator: orch,
		Collector:    collector,
		Sink:         sink,
		closeStore:   st.Close,
	}, nil
}
