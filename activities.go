package batch_export

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/hankgalt/batch-export/pkg/domain"
)

// Error messages used throughout the activities
const (
	ERR_MISSING_EXPORT_JOB = "error missing export job"
	ERR_UNKNOWN_JOB        = "error unknown job"
	ERR_JOB_FAILED         = "error job execution failed"
)

// Standard Go errors for internal use
var (
	ErrMissingExportJob = errors.New(ERR_MISSING_EXPORT_JOB)
	ErrUnknownJob       = errors.New(ERR_UNKNOWN_JOB)
)

// Temporal application errors for workflow activities
var (
	ErrorMissingExportJob = temporal.NewApplicationErrorWithCause(ERR_MISSING_EXPORT_JOB, ERR_MISSING_EXPORT_JOB, ErrMissingExportJob)
	ErrorUnknownJob       = temporal.NewApplicationErrorWithCause(ERR_UNKNOWN_JOB, ERR_UNKNOWN_JOB, ErrUnknownJob)
)

// RunExportJobActivity launches the export job found in the activity context and
// heartbeats the write count after every committed chunk.
func RunExportJobActivity(ctx context.Context, req *ExportRequest) (*domain.JobExecution, error) {
	l := activity.GetLogger(ctx)
	l.Debug("RunExportJobActivity - started", "job", req.JobName, "parameters", req.Parameters)

	// retrieve export job from context
	job, ok := ctx.Value(ExportJobContextKey).(*ExportJob)
	if !ok || job == nil {
		l.Error(ERR_MISSING_EXPORT_JOB)
		return nil, ErrorMissingExportJob
	}
	if req.JobName != "" && req.JobName != job.Name {
		l.Error(ERR_UNKNOWN_JOB, "job", req.JobName)
		return nil, ErrorUnknownJob
	}

	exec, err := job.Launch(ctx, req.Parameters, func(ctx context.Context, exec *domain.JobExecution) {
		activity.RecordHeartbeat(ctx, exec.WriteCount)
	})
	if err != nil {
		l.Error(
			"RunExportJobActivity - job failed",
			"execution-id", exec.ID,
			"write-count", exec.WriteCount,
			"skip-count", exec.SkipCount,
			"error", err.Error(),
		)
		return exec, applicationError(exec, err)
	}

	l.Debug(
		"RunExportJobActivity - done",
		"execution-id", exec.ID,
		"read-count", exec.ReadCount,
		"write-count", exec.WriteCount,
		"skip-count", exec.SkipCount,
	)
	return exec, nil
}

// applicationError types a failed execution for the workflow retry policy.
// The execution travels as the error details.
func applicationError(exec *domain.JobExecution, err error) error {
	errType := ERR_JOB_FAILED
	switch {
	case errors.Is(err, domain.ErrInvalidParameters):
		errType = domain.ERR_INVALID_PARAMETERS
	case errors.Is(err, domain.ErrSkipLimitExceeded):
		errType = domain.ERR_SKIP_LIMIT_EXCEEDED
	case errors.Is(err, domain.ErrCommitFailed):
		errType = domain.ERR_COMMIT_FAILED
	case errors.Is(err, domain.ErrSourceReadFailed):
		errType = domain.ERR_SOURCE_READ_FAILED
	case errors.Is(err, domain.ErrJobInterrupted):
		errType = domain.ERR_JOB_INTERRUPTED
	case errors.Is(err, domain.ErrMissingSourceConfig):
		errType = domain.ERR_MISSING_SOURCE_CONFIG
	}
	return temporal.NewApplicationErrorWithCause(err.Error(), errType, err, exec)
}
