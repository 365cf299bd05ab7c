package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/navchetna/whispey-sub001/internal/worker"
)

var runJobID string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single evaluation job directly, without Temporal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runJobID == "" {
			return fmt.Errorf("--job is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, err := worker.Initialize(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		logger.Info("executing job", "job_id", runJobID)
		if err := deps.Orchestrator.Run(ctx, runJobID); err != nil {
			return fmt.Errorf("run job %s: %w", runJobID, err)
		}

		job, err := deps.Store.GetJob(ctx, runJobID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "job %s finished: status=%s total=%d completed=%d failed=%d\n",
			job.ID, job.Status, job.TotalTraces, job.CompletedUnits, job.FailedUnits)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runJobID, "job", "", "Evaluation job id to execute")
	_ = runCmd.MarkFlagRequired("job")
}
