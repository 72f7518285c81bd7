package sinks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/comfforts/logger"

	"github.com/hankgalt/batch-export/pkg/domain"
)

// Error constants and variables
const (
	ERR_CLOUD_FILE_SINK_NIL             = "cloud file sink is nil"
	ERR_CLOUD_FILE_SINK_INVALID_URL     = "cloud file sink: output must be of the form gs://bucket/object"
	ERR_CLOUD_FILE_SINK_CLIENT_REQUIRED = "cloud file sink: storage client is not initialized"
	ERR_CLOUD_FILE_SINK_CLOSED          = "cloud file sink: closed"
)

var (
	ErrCloudFileSinkNil            = errors.New(ERR_CLOUD_FILE_SINK_NIL)
	ErrCloudFileSinkInvalidURL     = errors.New(ERR_CLOUD_FILE_SINK_INVALID_URL)
	ErrCloudFileSinkClientRequired = errors.New(ERR_CLOUD_FILE_SINK_CLIENT_REQUIRED)
	ErrCloudFileSinkClosed         = errors.New(ERR_CLOUD_FILE_SINK_CLOSED)
)

const (
	CloudFileSink = "cloud-file-sink"
	GCSScheme     = "gs://"
)

const contentType = "text/csv"

// Cloud (GCS) delimited file sink. Each chunk is uploaded as a part object and
// composed onto the target object, so a chunk lands whole or not at all.
type cloudFileSink[T domain.FieldExtractor] struct {
	mu         sync.Mutex
	client     *storage.Client
	bucket     string
	object     string
	generation int64 // target generation after the last commit
	agg        DelimitedLineAggregator
	ownsClient bool
	closed     bool
}

// Name returns the name of the cloud file sink.
func (s *cloudFileSink[T]) Name() string { return CloudFileSink }

// Write appends the chunk to the target object.
func (s *cloudFileSink[T]) Write(ctx context.Context, b *domain.BatchProcess[T]) (*domain.BatchProcess[T], error) {
	if s == nil {
		return b, ErrCloudFileSinkNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return b, ErrCloudFileSinkClosed
	}
	if b.Len() == 0 {
		return b, nil // nothing to write
	}

	l, err := logger.LoggerFromContext(ctx)
	if err != nil {
		l = logger.GetSlogLogger()
	}

	bkt := s.client.Bucket(s.bucket)
	target := bkt.Object(s.object)
	part := bkt.Object(fmt.Sprintf("%s.%s.part", s.object, b.BatchId))

	w := part.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(renderChunk(s.agg, b)); err != nil {
		_ = w.Close()
		b.Error = err.Error()
		return b, fmt.Errorf("cloud file sink: upload part %s: %w", b.BatchId, err)
	}
	if err := w.Close(); err != nil {
		b.Error = err.Error()
		return b, fmt.Errorf("cloud file sink: upload part %s: %w", b.BatchId, err)
	}

	composer := target.If(storage.Conditions{GenerationMatch: s.generation}).ComposerFrom(target, part)
	composer.ContentType = contentType
	attrs, err := composer.Run(ctx)

	if delErr := part.Delete(ctx); delErr != nil {
		l.Warn(
			"cloud file sink: error deleting part object",
			"bucket", s.bucket,
			"object", s.object,
			"batch-id", b.BatchId,
			"error", delErr.Error(),
		)
	}

	if err != nil {
		b.Error = err.Error()
		return b, fmt.Errorf("cloud file sink: compose %s: %w", b.BatchId, err)
	}
	s.generation = attrs.Generation

	for _, rec := range b.Records {
		rec.BatchResult.Result = rec.Position
	}
	l.Debug(
		"cloud file sink: chunk composed",
		"bucket", s.bucket,
		"object", s.object,
		"batch-id", b.BatchId,
		"size", attrs.Size,
	)
	return b, nil
}

// Close closes the storage client if the sink created it.
func (s *cloudFileSink[T]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// Cloud file sink config.
type CloudFileSinkConfig[T domain.FieldExtractor] struct {
	Bucket    string
	Object    string
	Delimiter string          // defaults to ","
	Client    *storage.Client // optional, a new client is created when nil
}

// ParseCloudURL splits a gs://bucket/object URL.
func ParseCloudURL(url string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(url, GCSScheme)
	if !ok {
		return "", "", ErrCloudFileSinkInvalidURL
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", ErrCloudFileSinkInvalidURL
	}
	return bucket, object, nil
}

// Name of the sink.
func (c CloudFileSinkConfig[T]) Name() string { return CloudFileSink }

// BuildSink writes an empty target object, replacing any existing one.
// Ensure GCP credentials are available in the environment.
func (c CloudFileSinkConfig[T]) BuildSink(ctx context.Context) (domain.Sink[T], error) {
	if c.Bucket == "" || c.Object == "" {
		return nil, ErrCloudFileSinkInvalidURL
	}

	client, owns := c.Client, false
	if client == nil {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloud file sink: error creating storage client: %w", err)
		}
		owns = true
	}

	w := client.Bucket(c.Bucket).Object(c.Object).NewWriter(ctx)
	w.ContentType = contentType
	if err := w.Close(); err != nil {
		if owns {
			_ = client.Close()
		}
		return nil, fmt.Errorf("cloud file sink: create %s%s/%s: %w", GCSScheme, c.Bucket, c.Object, err)
	}

	return &cloudFileSink[T]{
		client:     client,
		bucket:     c.Bucket,
		object:     c.Object,
		generation: w.Attrs().Generation,
		agg:        DelimitedLineAggregator{Delimiter: c.Delimiter},
		ownsClient: owns,
	}, nil
}
