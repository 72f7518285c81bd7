package batch_export

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/hankgalt/batch-export/pkg/domain"
)

// ExportCustomersWorkflow validates the job parameters and runs the export job once.
func ExportCustomersWorkflow(ctx workflow.Context, req *ExportRequest) (*domain.JobExecution, error) {
	l := workflow.GetLogger(ctx)

	wkflname := workflow.GetInfo(ctx).WorkflowType.Name
	l.Debug(
		"ExportCustomersWorkflow workflow started",
		"job", req.JobName,
		"parameters", req.Parameters,
		"workflow", wkflname,
	)

	// validate before scheduling any activity
	if err := NewExportParametersValidator().Validate(domain.NewJobParameters(req.Parameters)); err != nil {
		l.Error(
			"ExportCustomersWorkflow - invalid parameters",
			"workflow", wkflname,
			"error", err.Error(),
		)
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), domain.ERR_INVALID_PARAMETERS, err)
	}

	exec, err := ExecuteRunExportJobActivity(ctx, req)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) {
			l.Error(
				"ExportCustomersWorkflow - temporal application error",
				"workflow", wkflname,
				"error", err.Error(),
				"type", appErr.Type(),
			)
			var failed domain.JobExecution
			if appErr.HasDetails() && appErr.Details(&failed) == nil {
				l.Error(
					"ExportCustomersWorkflow - job execution failed",
					"workflow", wkflname,
					"execution-id", failed.ID,
					"write-count", failed.WriteCount,
					"skip-count", failed.SkipCount,
					"cause", failed.Cause,
				)
			}
		} else {
			l.Error(
				"ExportCustomersWorkflow - temporal error",
				"workflow", wkflname,
				"error", err.Error(),
				"type", fmt.Sprintf("%T", err),
			)
		}
		return nil, err
	}

	l.Debug(
		"ExportCustomersWorkflow workflow completed",
		"workflow", wkflname,
		"execution-id", exec.ID,
		"status", exec.Status,
		"write-count", exec.WriteCount,
	)
	return exec, nil
}
