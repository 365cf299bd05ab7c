package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/navchetna/whispey-sub001/internal/worker"
)

var statusJobID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of an evaluation job",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := worker.Initialize(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		job, err := deps.Store.GetJob(cmd.Context(), statusJobID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "job:       %s\n", job.ID)
		fmt.Fprintf(out, "status:    %s\n", job.Status)
		fmt.Fprintf(out, "traces:    %d\n", job.TotalTraces)
		fmt.Fprintf(out, "completed: %d\n", job.CompletedUnits)
		fmt.Fprintf(out, "failed:    %d\n", job.FailedUnits)
		if job.StartedAt != nil {
			fmt.Fprintf(out, "started:   %s\n", job.StartedAt.Format("2006-01-02 15:04:05 MST"))
		}
		if job.CompletedAt != nil {
			fmt.Fprintf(out, "finished:  %s\n", job.CompletedAt.Format("2006-01-02 15:04:05 MST"))
		}
		if job.ErrorMessage != "" {
			fmt.Fprintf(out, "error:     %s\n", job.ErrorMessage)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusJobID, "job", "", "Evaluation job id")
	_ = statusCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(statusCmd)
}
