package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/navchetna/whispey-sub001/internal/workflow"
)

var (
	submitJobID string
	submitWait  bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Start an evaluation job workflow on the Temporal task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("connect temporal: %w", err)
		}
		defer c.Close()

		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "evaluation-job-" + submitJobID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflow.EvaluationJobWorkflow, workflow.EvaluationJobInput{JobID: submitJobID})
		if err != nil {
			return fmt.Errorf("start workflow: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "started workflow %s run %s\n", run.GetID(), run.GetRunID())
		if !submitWait {
			return nil
		}
		if err := run.Get(ctx, nil); err != nil {
			return fmt.Errorf("workflow failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "workflow completed")
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitJobID, "job", "", "Evaluation job id to submit")
	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "Block until the workflow finishes")
	_ = submitCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(submitCmd)
}
