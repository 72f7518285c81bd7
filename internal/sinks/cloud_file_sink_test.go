package sinks_test

import (
	"context"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/comfforts/logger"
	"github.com/stretchr/testify/require"

	"github.com/hankgalt/batch-export/internal/sinks"
	"github.com/hankgalt/batch-export/pkg/domain"
	"github.com/hankgalt/batch-export/pkg/utils"
)

// Set BUCKET and GCP credentials in the environment before running this test.
func TestCloudFileSink(t *testing.T) {
	envCfg, err := utils.BuildCloudFileConfig()
	if err != nil {
		t.Skip("BUCKET not set, skipping cloud file sink test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithLogger(ctx, logger.GetSlogLogger())

	client, err := storage.NewClient(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, client.Close())
	}()

	bucket, object, err := sinks.ParseCloudURL(envCfg.URL())
	require.NoError(t, err)

	cfg := sinks.CloudFileSinkConfig[domain.Customer]{Bucket: bucket, Object: object, Client: client}
	sink, err := cfg.BuildSink(ctx)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, client.Bucket(bucket).Object(object).Delete(context.Background()))
	}()

	first := chunkOf(domain.Customer{ID: 7, Name: "Ann", Email: "a@x.com"})
	_, err = sink.Write(ctx, first)
	require.NoError(t, err)

	second := chunkOf(domain.Customer{ID: 8, Name: "Bob", Email: "b@x.com"})
	second.BatchId = "chunk-1"
	_, err = sink.Write(ctx, second)
	require.NoError(t, err)
	require.NoError(t, sink.Close(ctx))

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "7,Ann,a@x.com\n8,Bob,b@x.com\n", string(data))
}
