package sinks

import (
	"context"
	"sync/atomic"

	"github.com/comfforts/logger"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	NoopSink = "noop-sink"
)

// No operation sink for dry runs and testing. Counts what it would have written.
type noopSink[T any] struct {
	written *atomic.Uint64
}

// Name returns the name of the noop sink.
func (s *noopSink[T]) Name() string { return NoopSink }

// Write discards the chunk and echoes each record as its result.
func (s *noopSink[T]) Write(ctx context.Context, b *domain.BatchProcess[T]) (*domain.BatchProcess[T], error) {
	if err := ctx.Err(); err != nil {
		return b, err
	}

	for _, rec := range b.Records {
		rec.BatchResult.Result = rec.Data // echo the record as result
	}
	if s.written != nil {
		s.written.Add(uint64(b.Len()))
	}

	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}
	l.Debug("noop sink: chunk discarded", "batch-id", b.BatchId, "records", b.Len())
	return b, nil
}

// Close closes the noop sink.
func (s *noopSink[T]) Close(ctx context.Context) error {
	return nil
}

// No operation sink config for dry runs and testing.
// Written, when set, accumulates the number of discarded records.
type NoopSinkConfig[T any] struct {
	Written *atomic.Uint64
}

// Name of the sink.
func (c NoopSinkConfig[T]) Name() string { return NoopSink }

// BuildSink returns a noop sink.
func (c NoopSinkConfig[T]) BuildSink(ctx context.Context) (domain.Sink[T], error) {
	return &noopSink[T]{written: c.Written}, nil
}
