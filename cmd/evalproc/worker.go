package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/navchetna/whispey-sub001/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker consuming the evaluation task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		deps, err := worker.Initialize(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		if cfg.Metrics.Enabled {
			go serveMetrics(deps)
		}

		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("connect temporal: %w", err)
		}
		defer c.Close()

		w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
		worker.RegisterAll(w, deps.Orchestrator, deps.Sink)

		logger.Info("worker starting",
			"task_queue", cfg.Temporal.TaskQueue,
			"namespace", cfg.Temporal.Namespace,
		)
		return w.Run(sdkworker.InterruptCh())
	},
}

func serveMetrics(deps *worker.Deps) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", deps.Collector.Handler())
	logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
	if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
		logger.Error("metrics endpoint failed", "error", err)
	}
}
