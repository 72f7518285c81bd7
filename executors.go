package batch_export

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hankgalt/batch-export/pkg/domain"
)

func DefaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		ScheduleToStartTimeout: time.Minute,
		StartToCloseTimeout:    time.Hour,
		HeartbeatTimeout:       time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
}

// ExecuteRunExportJobActivity runs the export job activity. A retried attempt
// starts a new execution from the first record.
func ExecuteRunExportJobActivity(ctx workflow.Context, req *ExportRequest) (*domain.JobExecution, error) {
	// setup activity options
	ao := DefaultActivityOptions()
	ao.RetryPolicy.NonRetryableErrorTypes = []string{
		ERR_MISSING_EXPORT_JOB,
		ERR_UNKNOWN_JOB,
		domain.ERR_INVALID_PARAMETERS,
		domain.ERR_SKIP_LIMIT_EXCEEDED,
		domain.ERR_COMMIT_FAILED,
		domain.ERR_SOURCE_READ_FAILED,
		domain.ERR_MISSING_SOURCE_CONFIG,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var resp domain.JobExecution
	err := workflow.ExecuteActivity(ctx, RunExportJobActivityName, req).Get(ctx, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
