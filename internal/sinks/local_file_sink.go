package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/comfforts/logger"

	"github.com/hankgalt/batch-export/pkg/domain"
)

// Error constants and variables
const (
	ERR_LOCAL_FILE_SINK_NIL           = "local file sink is nil"
	ERR_LOCAL_FILE_SINK_PATH_REQUIRED = "local file sink: output path is required"
	ERR_LOCAL_FILE_SINK_CLOSED        = "local file sink: closed"
)

var (
	ErrLocalFileSinkNil          = errors.New(ERR_LOCAL_FILE_SINK_NIL)
	ErrLocalFileSinkPathRequired = errors.New(ERR_LOCAL_FILE_SINK_PATH_REQUIRED)
	ErrLocalFileSinkClosed       = errors.New(ERR_LOCAL_FILE_SINK_CLOSED)
)

const LocalFileSink = "local-file-sink"

// outputFile is the file capability the sink needs.
type outputFile interface {
	io.WriterAt
	io.Closer
	Sync() error
	Truncate(size int64) error
}

// Local delimited file sink. Each Write appends one chunk and syncs it,
// or leaves the file exactly as it was before the chunk.
type localFileSink[T domain.FieldExtractor] struct {
	mu     sync.Mutex
	path   string
	file   outputFile
	size   int64 // committed bytes
	agg    DelimitedLineAggregator
	closed bool
}

// Name returns the name of the local file sink.
func (s *localFileSink[T]) Name() string { return LocalFileSink }

// Write appends the chunk to the output file.
func (s *localFileSink[T]) Write(ctx context.Context, b *domain.BatchProcess[T]) (*domain.BatchProcess[T], error) {
	if s == nil {
		return b, ErrLocalFileSinkNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return b, ErrLocalFileSinkClosed
	}
	if b.Len() == 0 {
		return b, nil // nothing to write
	}
	if err := ctx.Err(); err != nil {
		return b, err
	}

	buf := renderChunk(s.agg, b)
	if _, err := s.file.WriteAt(buf, s.size); err != nil {
		return b, s.rollback(ctx, b, fmt.Errorf("local file sink: write %s: %w", s.path, err))
	}
	if err := s.file.Sync(); err != nil {
		return b, s.rollback(ctx, b, fmt.Errorf("local file sink: sync %s: %w", s.path, err))
	}
	s.size += int64(len(buf))

	for _, rec := range b.Records {
		rec.BatchResult.Result = rec.Position
	}
	return b, nil
}

// rollback truncates the file back to the last committed size.
func (s *localFileSink[T]) rollback(ctx context.Context, b *domain.BatchProcess[T], cause error) error {
	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	b.Error = cause.Error()
	if err := s.file.Truncate(s.size); err != nil {
		l.Error(
			"local file sink: rollback failed",
			"path", s.path,
			"batch-id", b.BatchId,
			"size", s.size,
			"error", err.Error(),
		)
		return errors.Join(cause, err)
	}
	if err := s.file.Sync(); err != nil {
		return errors.Join(cause, err)
	}
	l.Warn(
		"local file sink: chunk rolled back",
		"path", s.path,
		"batch-id", b.BatchId,
		"size", s.size,
		"error", cause.Error(),
	)
	return cause
}

// Close closes the output file.
func (s *localFileSink[T]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Local file sink config.
type LocalFileSinkConfig[T domain.FieldExtractor] struct {
	Path      string // e.g., "out/customers.csv"
	Delimiter string // defaults to ","
}

// Name of the sink.
func (c LocalFileSinkConfig[T]) Name() string { return LocalFileSink }

// BuildSink creates the output file, truncating an existing one, along with missing parent dirs.
func (c LocalFileSinkConfig[T]) BuildSink(ctx context.Context) (domain.Sink[T], error) {
	if c.Path == "" {
		return nil, ErrLocalFileSinkPathRequired
	}

	if dir := filepath.Dir(c.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("local file sink: create dir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("local file sink: open %s: %w", c.Path, err)
	}

	return &localFileSink[T]{
		path: c.Path,
		file: f,
		agg:  DelimitedLineAggregator{Delimiter: c.Delimiter},
	}, nil
}
