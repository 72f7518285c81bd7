// Package engine implements the chunk-oriented processing loop: records are
// pulled from a source, pushed through a processor and committed to a sink
// in fixed-size chunks, with bounded item retry and skip policies.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comfforts/logger"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	DefaultChunkSize  = uint(10)
	DefaultSkipLimit  = uint(10)
	DefaultRetryLimit = uint(3)
)

// Phase is the chunk engine state.
type Phase string

const (
	PhaseReading    Phase = "READING"
	PhaseProcessing Phase = "PROCESSING"
	PhaseCommitting Phase = "COMMITTING"
	PhaseDone       Phase = "DONE"
	PhaseAborted    Phase = "ABORTED"
)

// Options configures commit interval and fault tolerance.
// A zero ChunkSize falls back to the default. Zero SkipLimit and RetryLimit are
// taken as is: no skips tolerated, no retries. Start from DefaultOptions for the defaults.
type Options struct {
	ChunkSize    uint          // accepted records per commit
	SkipLimit    uint          // skips tolerated; one more aborts the run
	RetryLimit   uint          // additional process attempts per item, and additional pulls per read
	RetryBackoff time.Duration // pause between retries, none by default
}

// DefaultOptions returns chunk size 10, skip limit 10 and retry limit 3.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  DefaultChunkSize,
		SkipLimit:  DefaultSkipLimit,
		RetryLimit: DefaultRetryLimit,
	}
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	return o
}

// Hooks are optional callbacks invoked from the engine loop.
type Hooks[T any] struct {
	OnSkip           func(ctx context.Context, rec *domain.BatchRecord[T], err error)
	OnRetry          func(ctx context.Context, rec *domain.BatchRecord[T], attempt uint, err error)
	OnChunkCommitted func(ctx context.Context, chunk *domain.BatchProcess[T], state ExecutionState)
}

// ExecutionState tracks one engine run. It is created by Run and owned by it.
type ExecutionState struct {
	Phase          Phase
	Status         domain.BatchStatus
	ChunkIndex     uint64 // index of the chunk being filled
	ReadCount      uint64
	WriteCount     uint64
	SkipCount      uint64
	RetryCount     uint64 // retries across all items and reads
	ItemRetryCount uint   // retries of the current item
	CommitCount    uint64
	LastRecordID   string
	Cause          error
}

// ChunkEngine coordinates a source, a processor and a sink.
type ChunkEngine[T any] struct {
	source    domain.Source[T]
	processor domain.Processor[T]
	sink      domain.Sink[T]
	opts      Options
	hooks     Hooks[T]
}

// NewChunkEngine builds an engine. A nil processor passes records through unchanged.
func NewChunkEngine[T any](
	source domain.Source[T],
	processor domain.Processor[T],
	sink domain.Sink[T],
	opts Options,
	hooks Hooks[T],
) *ChunkEngine[T] {
	if processor == nil {
		processor = domain.ProcessorFunc[T](func(_ context.Context, rec T) (T, error) { return rec, nil })
	}
	return &ChunkEngine[T]{
		source:    source,
		processor: processor,
		sink:      sink,
		opts:      opts.withDefaults(),
		hooks:     hooks,
	}
}

// Options returns the effective options.
func (e *ChunkEngine[T]) Options() Options {
	return e.opts
}

// Run drives the source to exhaustion, or until the run aborts.
// On abort the returned error is a *domain.AbortError and the in-flight chunk is discarded.
func (e *ChunkEngine[T]) Run(ctx context.Context) (*ExecutionState, error) {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	st := &ExecutionState{
		Phase:  PhaseReading,
		Status: domain.BatchStatusRunning,
	}
	l.Debug(
		"chunk engine started",
		"source", e.source.Name(),
		"sink", e.sink.Name(),
		"chunk-size", e.opts.ChunkSize,
		"skip-limit", e.opts.SkipLimit,
		"retry-limit", e.opts.RetryLimit,
	)

	chunk := &domain.BatchProcess[T]{}
	var pulled *domain.BatchProcess[T]
	exhausted := false

	for {
		switch st.Phase {
		case PhaseReading:
			if err := ctx.Err(); err != nil {
				return st, e.fail(ctx, st, domain.ErrJobInterrupted, err)
			}

			bp, err := e.read(ctx, st, e.opts.ChunkSize-uint(chunk.Len()))
			if err != nil {
				var abortErr *domain.AbortError
				if errors.As(err, &abortErr) {
					return st, err
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return st, e.fail(ctx, st, domain.ErrJobInterrupted, ctxErr)
				}
				return st, e.fail(ctx, st, domain.ErrSourceReadFailed, err)
			}
			exhausted = bp.Done || bp.Len() == 0

			if bp.Len() == 0 {
				if chunk.Len() > 0 {
					st.Phase = PhaseCommitting
				} else {
					st.Phase = PhaseDone
				}
				continue
			}
			pulled = bp
			st.Phase = PhaseProcessing

		case PhaseProcessing:
			for _, rec := range pulled.Records {
				if err := ctx.Err(); err != nil {
					return st, e.fail(ctx, st, domain.ErrJobInterrupted, err)
				}
				st.LastRecordID = recordID(rec.Data)

				out, accepted, err := e.process(ctx, st, rec)
				if err != nil {
					return st, err
				}
				if accepted {
					chunk.Records = append(chunk.Records, &domain.BatchRecord[T]{
						Data:     out,
						Position: rec.Position,
					})
				}
			}
			pulled = nil

			switch {
			case uint(chunk.Len()) < e.opts.ChunkSize && !exhausted:
				st.Phase = PhaseReading
			case chunk.Len() > 0:
				st.Phase = PhaseCommitting
			default:
				st.Phase = PhaseDone
			}

		case PhaseCommitting:
			if err := e.commit(ctx, st, chunk); err != nil {
				return st, err
			}
			chunk = &domain.BatchProcess[T]{}
			if exhausted {
				st.Phase = PhaseDone
			} else {
				st.Phase = PhaseReading
			}

		case PhaseDone:
			st.Status = domain.BatchStatusCompleted
			l.Info(
				"chunk engine completed",
				"source", e.source.Name(),
				"sink", e.sink.Name(),
				"read-count", st.ReadCount,
				"write-count", st.WriteCount,
				"skip-count", st.SkipCount,
				"commit-count", st.CommitCount,
			)
			return st, nil

		default:
			return st, e.fail(ctx, st, domain.ErrJobInterrupted, fmt.Errorf("unexpected engine phase %q", st.Phase))
		}
	}
}

// read pulls up to n records, retrying failed pulls up to the retry limit.
// Records returned alongside a failed pull are kept; later pulls only ask for the remainder.
func (e *ChunkEngine[T]) read(ctx context.Context, st *ExecutionState, n uint) (*domain.BatchProcess[T], error) {
	out := &domain.BatchProcess[T]{
		StartOffset: st.ReadCount,
		NextOffset:  st.ReadCount,
	}

	var attempt uint
	for {
		bp, err := e.source.Next(ctx, n-uint(out.Len()))
		if bp != nil {
			for _, rec := range bp.Records {
				rec.Position = st.ReadCount
				st.ReadCount++
				out.Records = append(out.Records, rec)
			}
			out.Done = bp.Done
		}
		out.NextOffset = st.ReadCount

		if err == nil {
			return out, nil
		}
		if errors.Is(err, domain.ErrRecordUnreadable) {
			// the cursor moved past the bad row, count it and skip it
			rec := &domain.BatchRecord[T]{Position: st.ReadCount}
			st.ReadCount++
			out.NextOffset = st.ReadCount
			if sErr := e.skip(ctx, st, rec, err); sErr != nil {
				return out, sErr
			}
			if out.Done || uint(out.Len()) >= n {
				return out, nil
			}
			continue
		}
		if attempt >= e.opts.RetryLimit {
			return out, fmt.Errorf("read from %s failed after %d attempts: %w", e.source.Name(), attempt+1, err)
		}
		attempt++
		st.RetryCount++

		l, lErr := logger.LoggerFromContext(ctx)
		if lErr != nil {
			l = logger.GetSlogLogger()
		}
		l.Warn(
			"chunk engine: source read failed, retrying",
			"source", e.source.Name(),
			"attempt", attempt,
			"read-count", st.ReadCount,
			"error", err.Error(),
		)

		if bErr := e.backoff(ctx); bErr != nil {
			return out, bErr
		}
		if uint(out.Len()) >= n || out.Done {
			return out, nil
		}
	}
}

// process runs one record through the processor. It returns accepted=false for a skipped
// record, and a non-nil error only when the run must abort.
func (e *ChunkEngine[T]) process(ctx context.Context, st *ExecutionState, rec *domain.BatchRecord[T]) (T, bool, error) {
	st.ItemRetryCount = 0
	for {
		out, err := e.processor.Process(ctx, rec.Data)
		if err == nil {
			return out, true, nil
		}

		if domain.IsRejected(err) {
			return out, false, e.skip(ctx, st, rec, err)
		}

		if st.ItemRetryCount >= e.opts.RetryLimit {
			err = fmt.Errorf("process retries exhausted after %d attempts: %w", st.ItemRetryCount+1, err)
			return out, false, e.skip(ctx, st, rec, err)
		}

		st.ItemRetryCount++
		st.RetryCount++
		if e.hooks.OnRetry != nil {
			e.hooks.OnRetry(ctx, rec, st.ItemRetryCount, err)
		}

		if bErr := e.backoff(ctx); bErr != nil {
			return out, false, e.fail(ctx, st, domain.ErrJobInterrupted, bErr)
		}
	}
}

// skip counts a skipped record and aborts once the count exceeds the skip limit.
func (e *ChunkEngine[T]) skip(ctx context.Context, st *ExecutionState, rec *domain.BatchRecord[T], err error) error {
	st.SkipCount++
	if e.hooks.OnSkip != nil {
		e.hooks.OnSkip(ctx, rec, err)
	}

	l, lErr := logger.LoggerFromContext(ctx)
	if lErr != nil {
		l = logger.GetSlogLogger()
	}
	l.Debug(
		"chunk engine: record skipped",
		"position", rec.Position,
		"record-id", st.LastRecordID,
		"skip-count", st.SkipCount,
		"error", err.Error(),
	)

	if st.SkipCount > uint64(e.opts.SkipLimit) {
		return e.fail(ctx, st, domain.ErrSkipLimitExceeded, err)
	}
	return nil
}

// commit writes the chunk to the sink. Commit failures are fatal and not retried.
func (e *ChunkEngine[T]) commit(ctx context.Context, st *ExecutionState, chunk *domain.BatchProcess[T]) error {
	chunk.BatchId = fmt.Sprintf("chunk-%d", st.ChunkIndex)
	chunk.StartOffset = chunk.Records[0].Position
	chunk.NextOffset = chunk.Records[chunk.Len()-1].Position + 1

	if _, err := e.sink.Write(ctx, chunk); err != nil {
		return e.fail(ctx, st, domain.ErrCommitFailed, err)
	}

	st.CommitCount++
	st.WriteCount += uint64(chunk.Len())
	if e.hooks.OnChunkCommitted != nil {
		e.hooks.OnChunkCommitted(ctx, chunk, *st)
	}

	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}
	l.Debug(
		"chunk engine: chunk committed",
		"batch-id", chunk.BatchId,
		"records", chunk.Len(),
		"write-count", st.WriteCount,
		"skip-count", st.SkipCount,
	)

	st.ChunkIndex++
	return nil
}

func (e *ChunkEngine[T]) fail(ctx context.Context, st *ExecutionState, kind, err error) error {
	abortErr := &domain.AbortError{
		Kind:         kind,
		ChunkIndex:   st.ChunkIndex,
		SkipCount:    st.SkipCount,
		LastRecordID: st.LastRecordID,
		Err:          err,
	}
	st.Phase = PhaseAborted
	st.Status = domain.BatchStatusFailed
	st.Cause = abortErr

	l, lErr := logger.LoggerFromContext(ctx)
	if lErr != nil {
		l = logger.GetSlogLogger()
	}
	l.Error(
		"chunk engine aborted",
		"source", e.source.Name(),
		"sink", e.sink.Name(),
		"error", abortErr.Error(),
	)
	return abortErr
}

func (e *ChunkEngine[T]) backoff(ctx context.Context) error {
	if e.opts.RetryBackoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.opts.RetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func recordID(rec any) string {
	if r, ok := rec.(domain.HasId); ok {
		return r.GetId()
	}
	return ""
}
