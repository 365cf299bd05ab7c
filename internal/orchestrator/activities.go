package orchestrator

import (
	"context"

	"github.com/navchetna/whispey-sub001/pkg/activity"
	"github.com/navchetna/whispey-sub001/pkg/events"
)

// Activities exposes job execution as a Temporal activity.
type Activities struct {
	activity.BaseActivities
	orchestrator *Orchestrator
}

// NewActivities creates the activity set around an orchestrator.
func NewActivities(base activity.BaseActivities, orch *Orchestrator) *Activities {
	return &Activities{BaseActivities: base, orchestrator: orch}
}

// RunEvaluationJob executes the job with the given id. Registered under
// the name "RunEvaluationJob"; retries are disabled at the workflow level
// because the orchestrator persists progress as it runs.
//
// Faults the orchestrator records on the job row also get their events
// emitted there. A Run error means no row captured the fault, so the
// failure event is emitted here, carrying the workflow linkage only this
// layer knows.
func (a *Activities) RunEvaluationJob(ctx context.Context, jobID string) error {
	wfCtx := a.GetWorkflowContext(ctx)
	activity.SafeLog(ctx, "running evaluation job",
		"job_id", jobID,
		"workflow_id", wfCtx.WorkflowID,
		"run_id", wfCtx.RunID,
	)

	if err := a.orchestrator.Run(ctx, jobID); err != nil {
		activity.SafeLogError(ctx, "evaluation job execution failed",
			"job_id", jobID, "error", err)

		env := events.New(events.TypeJobFailed, "activity", jobID, map[string]any{
			"error": err.Error(),
		})
		env.WorkflowID = wfCtx.WorkflowID
		env.RunID = wfCtx.RunID
		a.EmitEventSafe(ctx, env, "job failure event")
		return err
	}
	return nil
}
