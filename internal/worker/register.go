// Package worker wires the evaluation pipeline into a Temporal worker:
// dependency construction from configuration plus workflow and activity
// registration.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/navchetna/whispey-sub001/internal/orchestrator"
	"github.com/navchetna/whispey-sub001/internal/workflow"
	"github.com/navchetna/whispey-sub001/pkg/activity"
	"github.com/navchetna/whispey-sub001/pkg/events"
)

// RegisterAll registers the evaluation workflow and its activities with
// the Temporal worker. Call once during startup before the worker runs.
func RegisterAll(w sdkworker.Worker, orch *orchestrator.Orchestrator, sink events.EventSink) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	base := activity.NewBaseActivities(sink)
	activities := orchestrator.NewActivities(base, orch)

	w.RegisterWorkflow(workflow.EvaluationJobWorkflow)
	w.RegisterActivity(activities.RunEvaluationJob)
}
