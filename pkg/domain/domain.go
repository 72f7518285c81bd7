package domain

import (
	"context"
	"time"
)

type BatchResult struct {
	Result any
	Error  string
}

// BatchRecord[T any] is a single record moving through the pipeline,
// tagged with its position in the source read order.
type BatchRecord[T any] struct {
	Data        T
	Position    uint64
	BatchResult BatchResult
}

// BatchProcess[T any] is the neutral "batch process" unit.
// A source fills one per pull; the engine commits one per chunk.
type BatchProcess[T any] struct {
	BatchId     string
	Records     []*BatchRecord[T]
	StartOffset uint64 // position of the first record read for this batch
	NextOffset  uint64 // position the next pull starts at
	Error       string
	Done        bool // source cursor exhausted
}

// Len returns the number of records in the batch.
func (b *BatchProcess[T]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// Data returns the record payloads in arrival order.
func (b *BatchProcess[T]) Data() []T {
	out := make([]T, 0, b.Len())
	if b == nil {
		return out
	}
	for _, rec := range b.Records {
		out = append(out, rec.Data)
	}
	return out
}

// SourceConfig[T any] is a config that *knows how to build* a Source for a specific T.
type SourceConfig[T any] interface {
	BuildSource(ctx context.Context) (Source[T], error)
	Name() string
}

// Source[T any] is a lazy, finite, forward-only source of T, e.g., a database cursor.
// Next pulls up to n records. Done is set once the cursor is exhausted.
// On a failed pull, records read before the failure are returned with the error.
type Source[T any] interface {
	Next(ctx context.Context, n uint) (*BatchProcess[T], error)
	Name() string
	Close(context.Context) error
}

// Processor[T any] validates or transforms a single record.
type Processor[T any] interface {
	Process(ctx context.Context, rec T) (T, error)
}

// ProcessorFunc[T any] adapts a function to the Processor interface.
type ProcessorFunc[T any] func(ctx context.Context, rec T) (T, error)

// Process calls f(ctx, rec).
func (f ProcessorFunc[T]) Process(ctx context.Context, rec T) (T, error) {
	return f(ctx, rec)
}

// SinkConfig[T any] is a config that *knows how to build* a Sink for a specific T.
type SinkConfig[T any] interface {
	BuildSink(ctx context.Context) (Sink[T], error)
	Name() string
}

// Sink[T any] is a sink that commits a batch of T to a destination, e.g., a file.
// Write is all-or-nothing per batch: on error none of the batch is durable.
type Sink[T any] interface {
	Write(ctx context.Context, b *BatchProcess[T]) (*BatchProcess[T], error)
	Name() string
	Close(context.Context) error
}

// HasId is implemented by records that can identify themselves in diagnostics.
type HasId interface {
	GetId() string
}

// FieldExtractor is implemented by records that render as an ordered list of fields.
type FieldExtractor interface {
	Fields() []string
}

type BatchStatus string

const (
	BatchStatusStarting  BatchStatus = "STARTING"
	BatchStatusRunning   BatchStatus = "RUNNING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// IsTerminal reports whether the status is final.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// JobExecution is one invocation of a job and its terminal outcome.
type JobExecution struct {
	ID          string            `json:"id"`
	JobName     string            `json:"job_name"`
	Parameters  map[string]string `json:"parameters"`
	Status      BatchStatus       `json:"status"`
	Cause       string            `json:"cause,omitempty"`
	ReadCount   uint64            `json:"read_count"`
	WriteCount  uint64            `json:"write_count"`
	SkipCount   uint64            `json:"skip_count"`
	RetryCount  uint64            `json:"retry_count"`
	CommitCount uint64            `json:"commit_count"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitzero"`
	EndedAt     time.Time         `json:"ended_at,omitzero"`
}

// JobRepository persists job executions and the parameters they ran with.
type JobRepository interface {
	CreateJobExecution(ctx context.Context, exec *JobExecution) error
	UpdateJobExecution(ctx context.Context, exec *JobExecution) error
	GetJobExecution(ctx context.Context, id string) (*JobExecution, error)
}
