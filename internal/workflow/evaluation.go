// Package workflow defines the Temporal workflow wrapping evaluation job
// execution. The workflow is deliberately thin: the orchestrator owns the
// job state machine, and unit failures are absorbed into result rows, so
// the single activity runs with retries disabled. A failure within a job
// never replays already-evaluated units.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RunEvaluationJobActivity is the registered name of the job execution
// activity.
const RunEvaluationJobActivity = "RunEvaluationJob"

// EvaluationJobInput carries the workflow parameters.
type EvaluationJobInput struct {
	JobID string `json:"job_id"`
}

// EvaluationJobWorkflow executes one evaluation job to a terminal status.
func EvaluationJobWorkflow(ctx workflow.Context, input EvaluationJobInput) error {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "evaluation-job.v", workflow.DefaultVersion, currentVersion)

	if input.JobID == "" {
		return temporal.NewNonRetryableApplicationError(
			"evaluation job workflow requires a job id",
			"Validation",
			nil,
		)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			// The orchestrator persists progress as it goes; replaying the
			// activity would re-evaluate finished units. One attempt only.
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	return workflow.ExecuteActivity(ctx, RunEvaluationJobActivity, input.JobID).Get(ctx, nil)
}
