package workflow

import (
	"go.temporal.io/sdk/worker"
)

// Register wires the workflow and its activities onto a Temporal worker.
func Register(w worker.Worker, a *Activities) {
	w.RegisterWorkflow(ChurnETL)
	w.RegisterActivity(a.StartRun)
	w.RegisterActivity(a.ExtractTransform)
	w.RegisterActivity(a.Load)
	w.RegisterActivity(a.Validate)
	w.RegisterActivity(a.SyncWarehouse)
	w.RegisterActivity(a.CompleteRun)
	w.RegisterActivity(a.FailRun)
	w.RegisterActivity(a.Cleanup)
}
