package batch_export

import (
	"context"
	"errors"
	"time"

	"github.com/comfforts/logger"
	"github.com/google/uuid"

	"github.com/hankgalt/batch-export/internal/sinks"
	"github.com/hankgalt/batch-export/pkg/domain"
	"github.com/hankgalt/batch-export/pkg/engine"
	"github.com/hankgalt/batch-export/pkg/processors"
)

const (
	ExportCustomerJobName  = "exportCustomerJob"
	ExportCustomerStepName = "step1"
)

// JobParametersValidator checks job parameters before anything is read or written.
type JobParametersValidator interface {
	Validate(params domain.JobParameters) error
}

// DefaultJobParametersValidator requires each of RequiredKeys to be present and non-empty.
// Unknown keys are ignored.
type DefaultJobParametersValidator struct {
	RequiredKeys domain.Set[string]
}

// Validate returns an InvalidParameters error naming the first missing key.
func (v DefaultJobParametersValidator) Validate(params domain.JobParameters) error {
	for _, key := range v.RequiredKeys.Sorted() {
		val, ok := params.GetString(key)
		if !ok {
			return domain.InvalidParametersError(key, "is required")
		}
		if val == "" {
			return domain.InvalidParametersError(key, "must not be empty")
		}
	}
	return nil
}

// NewExportParametersValidator requires outputFile.
func NewExportParametersValidator() DefaultJobParametersValidator {
	return DefaultJobParametersValidator{RequiredKeys: domain.NewSet(domain.ParamOutputFile)}
}

// SinkResolver builds the sink config for a validated parameter set.
type SinkResolver func(params domain.JobParameters) (domain.SinkConfig[domain.Customer], error)

// ChunkListener is called with the execution progress after every committed chunk.
type ChunkListener func(ctx context.Context, exec *domain.JobExecution)

// ExportJob exports customers from Source to the file named by the outputFile parameter.
type ExportJob struct {
	Name       string
	Source     domain.SourceConfig[domain.Customer]
	Processor  domain.Processor[domain.Customer]
	Validator  JobParametersValidator
	Sinks      SinkResolver
	Repository domain.JobRepository // optional
	Options    engine.Options
	Hooks      engine.Hooks[domain.Customer]
}

// NewExportJob builds the customer export job with the email validator and default sinks.
func NewExportJob(source domain.SourceConfig[domain.Customer], repo domain.JobRepository, opts engine.Options) *ExportJob {
	return &ExportJob{
		Name:       ExportCustomerJobName,
		Source:     source,
		Processor:  processors.EmailValidator{},
		Validator:  NewExportParametersValidator(),
		Sinks:      sinks.SinkConfigFor,
		Repository: repo,
		Options:    opts,
	}
}

// Launch runs the job once to completion. The returned execution is always non-nil and
// terminal; the error is non-nil exactly when the execution FAILED.
// Invalid parameters fail before the source, the sink or the repository are touched.
func (j *ExportJob) Launch(ctx context.Context, params map[string]string, listeners ...ChunkListener) (*domain.JobExecution, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	p := domain.NewJobParameters(params)
	exec := &domain.JobExecution{
		ID:         uuid.NewString(),
		JobName:    j.Name,
		Parameters: p.ToMap(),
		Status:     domain.BatchStatusStarting,
		CreatedAt:  time.Now().UTC(),
	}

	validator := j.Validator
	if validator == nil {
		validator = NewExportParametersValidator()
	}
	if err := validator.Validate(p); err != nil {
		l.Error("job parameters invalid", "job", j.Name, "execution-id", exec.ID, "error", err.Error())
		return j.finish(exec, err), err
	}
	if j.Source == nil {
		return j.finish(exec, domain.ErrMissingSourceConfig), domain.ErrMissingSourceConfig
	}

	exec.Status = domain.BatchStatusRunning
	exec.StartedAt = time.Now().UTC()
	if j.Repository != nil {
		if err := j.Repository.CreateJobExecution(ctx, exec); err != nil {
			l.Error("error creating job execution", "job", j.Name, "execution-id", exec.ID, "error", err.Error())
			return j.finish(exec, err), err
		}
	}
	l.Info(
		"job execution started",
		"job", j.Name,
		"step", ExportCustomerStepName,
		"execution-id", exec.ID,
		"parameters", exec.Parameters,
	)

	err = j.run(ctx, p, exec, listeners)
	j.finish(exec, err)
	j.persist(ctx, exec)

	if err != nil {
		l.Error(
			"job execution failed",
			"job", j.Name,
			"execution-id", exec.ID,
			"read-count", exec.ReadCount,
			"write-count", exec.WriteCount,
			"skip-count", exec.SkipCount,
			"error", err.Error(),
		)
		return exec, err
	}
	l.Info(
		"job execution completed",
		"job", j.Name,
		"execution-id", exec.ID,
		"read-count", exec.ReadCount,
		"write-count", exec.WriteCount,
		"skip-count", exec.SkipCount,
		"commit-count", exec.CommitCount,
	)
	return exec, nil
}

// run builds the sink and the source, then drives the engine.
func (j *ExportJob) run(ctx context.Context, p domain.JobParameters, exec *domain.JobExecution, listeners []ChunkListener) error {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	resolve := j.Sinks
	if resolve == nil {
		resolve = sinks.SinkConfigFor
	}
	sinkCfg, err := resolve(p)
	if err != nil {
		return err
	}
	sink, err := sinkCfg.BuildSink(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(ctx); err != nil {
			l.Warn("error closing sink", "sink", sink.Name(), "execution-id", exec.ID, "error", err.Error())
		}
	}()

	source, err := j.Source.BuildSource(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := source.Close(ctx); err != nil {
			l.Warn("error closing source", "source", source.Name(), "execution-id", exec.ID, "error", err.Error())
		}
	}()

	hooks := j.Hooks
	onCommitted := hooks.OnChunkCommitted
	hooks.OnChunkCommitted = func(ctx context.Context, chunk *domain.BatchProcess[domain.Customer], st engine.ExecutionState) {
		applyState(exec, &st)
		j.persist(ctx, exec)
		for _, fn := range listeners {
			fn(ctx, exec)
		}
		if onCommitted != nil {
			onCommitted(ctx, chunk, st)
		}
	}

	eng := engine.NewChunkEngine(source, j.Processor, sink, j.Options, hooks)
	st, err := eng.Run(ctx)
	applyState(exec, st)
	return err
}

// finish marks the execution terminal.
func (j *ExportJob) finish(exec *domain.JobExecution, err error) *domain.JobExecution {
	exec.EndedAt = time.Now().UTC()
	if err != nil {
		exec.Status = domain.BatchStatusFailed
		exec.Cause = err.Error()
		return exec
	}
	exec.Status = domain.BatchStatusCompleted
	return exec
}

// persist stores the execution progress. Failures are logged, the run goes on.
func (j *ExportJob) persist(ctx context.Context, exec *domain.JobExecution) {
	if j.Repository == nil {
		return
	}
	if err := j.Repository.UpdateJobExecution(context.WithoutCancel(ctx), exec); err != nil {
		l, lErr := logger.LoggerFromContext(ctx)
		if lErr != nil {
			l = logger.GetSlogLogger()
		}
		l.Warn("error updating job execution", "execution-id", exec.ID, "status", exec.Status, "error", err.Error())
	}
}

func applyState(exec *domain.JobExecution, st *engine.ExecutionState) {
	if st == nil {
		return
	}
	exec.ReadCount = st.ReadCount
	exec.WriteCount = st.WriteCount
	exec.SkipCount = st.SkipCount
	exec.RetryCount = st.RetryCount
	exec.CommitCount = st.CommitCount
}

// IsInvalidParameters reports whether a launch failed parameter validation.
func IsInvalidParameters(err error) bool {
	return errors.Is(err, domain.ErrInvalidParameters)
}
