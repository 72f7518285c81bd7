package batch_export_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/comfforts/logger"
	"github.com/stretchr/testify/require"

	be "github.com/hankgalt/batch-export"
	sqllite "github.com/hankgalt/batch-export/internal/clients/sql_lite"
	"github.com/hankgalt/batch-export/internal/sources"
	"github.com/hankgalt/batch-export/pkg/domain"
	"github.com/hankgalt/batch-export/pkg/engine"
)

// countingSourceConfig wraps a source config and counts builds.
type countingSourceConfig struct {
	domain.SourceConfig[domain.Customer]
	builds int
}

func (c *countingSourceConfig) BuildSource(ctx context.Context) (domain.Source[domain.Customer], error) {
	c.builds++
	return c.SourceConfig.BuildSource(ctx)
}

// failingSinkConfig builds a sink whose Write fails on the given commit.
type failingSinkConfig struct {
	failOn int
}

func (c failingSinkConfig) Name() string { return "failing-sink" }

func (c failingSinkConfig) BuildSink(ctx context.Context) (domain.Sink[domain.Customer], error) {
	return &failingSink{failOn: c.failOn}, nil
}

type failingSink struct {
	calls  int
	failOn int
}

func (s *failingSink) Name() string { return "failing-sink" }
func (s *failingSink) Close(ctx context.Context) error { return nil }

func (s *failingSink) Write(ctx context.Context, b *domain.BatchProcess[domain.Customer]) (*domain.BatchProcess[domain.Customer], error) {
	s.calls++
	if s.calls == s.failOn {
		return b, errors.New("no space left on device")
	}
	return b, nil
}

type testEnv struct {
	ctx     context.Context
	dir     string
	source  *countingSourceConfig
	repo    *sqllite.SQLLiteDBClient
	outFile string
}

// newTestEnv seeds a customers database with n rows. Rows at the given
// zero-based positions get a NULL email.
func newTestEnv(t *testing.T, n int, nullEmailAt ...int) *testEnv {
	t.Helper()
	ctx := logger.WithLogger(context.Background(), logger.GetSlogLogger())
	dir := t.TempDir()

	dbFile := filepath.Join(dir, "customers.db")
	client, err := sqllite.NewSQLLiteDBClient(dbFile)
	require.NoError(t, err)
	_, err = client.ExecuteSchema(ctx, sqllite.CustomerSchema)
	require.NoError(t, err)

	nulls := domain.NewSet(nullEmailAt...)
	for i := range n {
		c := domain.Customer{ID: int64(i + 1), Name: fmt.Sprintf("customer-%d", i+1), Email: fmt.Sprintf("c%d@x.com", i+1)}
		if nulls.Has(i) {
			c.Email = ""
		}
		_, err := client.InsertCustomer(ctx, c)
		require.NoError(t, err)
	}
	require.NoError(t, client.Close(ctx))

	repo, err := sqllite.NewSQLLiteDBClient(filepath.Join(dir, "jobs.db"))
	require.NoError(t, err)
	_, err = repo.ExecuteSchema(ctx, sqllite.JobExecutionSchema)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close(context.Background()))
	})

	return &testEnv{
		ctx:     ctx,
		dir:     dir,
		source:  &countingSourceConfig{SourceConfig: sources.SQLLiteSourceConfig{DBFile: dbFile}},
		repo:    repo,
		outFile: filepath.Join(dir, "out", "customers.csv"),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(data) == 0 {
		return []string{}
	}
	require.True(t, strings.HasSuffix(string(data), "\n"))
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestExportJob_InvalidParameters(t *testing.T) {
	env := newTestEnv(t, 5)
	job := be.NewExportJob(env.source, env.repo, engine.DefaultOptions())

	for _, params := range []map[string]string{
		nil,
		{},
		{"outputFile": ""},
		{"output": env.outFile},
	} {
		exec, err := job.Launch(env.ctx, params)
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrInvalidParameters)
		require.True(t, be.IsInvalidParameters(err))
		require.Equal(t, domain.BatchStatusFailed, exec.Status)
		require.Contains(t, exec.Cause, "outputFile")
		require.False(t, exec.EndedAt.IsZero())

		// nothing was read, written or recorded
		require.Equal(t, 0, env.source.builds)
		_, err = env.repo.GetJobExecution(env.ctx, exec.ID)
		require.ErrorIs(t, err, domain.ErrExecutionNotFound)
	}

	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotEqual(t, "out", e.Name())
	}
}

func TestExportJob_Completed(t *testing.T) {
	env := newTestEnv(t, 12, 2, 7)
	job := be.NewExportJob(env.source, env.repo, engine.DefaultOptions())

	progress := []uint64{}
	exec, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile, "unknown": "ignored"}, func(ctx context.Context, exec *domain.JobExecution) {
		progress = append(progress, exec.WriteCount)
	})
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusCompleted, exec.Status)
	require.Empty(t, exec.Cause)
	require.Equal(t, be.ExportCustomerJobName, exec.JobName)
	require.Equal(t, uint64(12), exec.ReadCount)
	require.Equal(t, uint64(10), exec.WriteCount)
	require.Equal(t, uint64(2), exec.SkipCount)
	require.Equal(t, uint64(1), exec.CommitCount)
	require.Equal(t, []uint64{10}, progress)

	lines := readLines(t, env.outFile)
	require.Len(t, lines, 10)
	require.Equal(t, "1,customer-1,c1@x.com", lines[0])
	require.Equal(t, "4,customer-4,c4@x.com", lines[2])
	require.Equal(t, "12,customer-12,c12@x.com", lines[9])

	stored, err := env.repo.GetJobExecution(env.ctx, exec.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusCompleted, stored.Status)
	require.Equal(t, uint64(10), stored.WriteCount)
	require.Equal(t, uint64(2), stored.SkipCount)
	require.Equal(t, map[string]string{"outputFile": env.outFile, "unknown": "ignored"}, stored.Parameters)
}

func TestExportJob_UnreadableRowSkipped(t *testing.T) {
	env := newTestEnv(t, 0)
	dbFile := filepath.Join(env.dir, "crm.db")
	client, err := sqllite.NewSQLLiteDBClient(dbFile)
	require.NoError(t, err)
	_, err = client.ExecuteSchema(env.ctx, `
	CREATE TABLE cust (id INTEGER, name TEXT, email TEXT);
	INSERT INTO cust (id, name, email) VALUES
		(1, 'one', 'c1@x.com'),
		(2, 'two', 'c2@x.com'),
		('bad', 'three', 'c3@x.com'),
		(4, 'four', 'c4@x.com'),
		(5, 'five', 'c5@x.com');
	`)
	require.NoError(t, err)
	require.NoError(t, client.Close(env.ctx))

	src := sources.SQLLiteSourceConfig{DBFile: dbFile, Query: "SELECT id, name, email FROM cust"}
	job := be.NewExportJob(src, env.repo, engine.DefaultOptions())
	exec, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile})
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusCompleted, exec.Status)
	require.Equal(t, uint64(5), exec.ReadCount)
	require.Equal(t, uint64(4), exec.WriteCount)
	require.Equal(t, uint64(1), exec.SkipCount)
	require.Equal(t, uint64(0), exec.RetryCount)
	require.Equal(t, []string{"1,one,c1@x.com", "2,two,c2@x.com", "4,four,c4@x.com", "5,five,c5@x.com"}, readLines(t, env.outFile))

	// zero skips tolerated fails the same export
	opts := engine.DefaultOptions()
	opts.SkipLimit = 0
	exec, err = be.NewExportJob(src, env.repo, opts).Launch(env.ctx, map[string]string{"outputFile": env.outFile})
	require.ErrorIs(t, err, domain.ErrSkipLimitExceeded)
	require.ErrorIs(t, err, domain.ErrRecordUnreadable)
	require.Equal(t, domain.BatchStatusFailed, exec.Status)
	require.Equal(t, uint64(1), exec.SkipCount)
}

func TestExportJob_ChunkedOutput(t *testing.T) {
	env := newTestEnv(t, 25)
	job := be.NewExportJob(env.source, nil, engine.DefaultOptions())

	progress := []uint64{}
	exec, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile}, func(ctx context.Context, exec *domain.JobExecution) {
		progress = append(progress, exec.WriteCount)
	})
	require.NoError(t, err)
	require.Equal(t, uint64(3), exec.CommitCount)
	require.Equal(t, []uint64{10, 20, 25}, progress)
	require.Len(t, readLines(t, env.outFile), 25)
}

func TestExportJob_OverwritesOutput(t *testing.T) {
	env := newTestEnv(t, 3)
	require.NoError(t, os.MkdirAll(filepath.Dir(env.outFile), 0o755))
	require.NoError(t, os.WriteFile(env.outFile, []byte("stale,row,here\n"), 0o644))

	job := be.NewExportJob(env.source, nil, engine.DefaultOptions())
	_, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile})
	require.NoError(t, err)
	require.Equal(t, []string{"1,customer-1,c1@x.com", "2,customer-2,c2@x.com", "3,customer-3,c3@x.com"}, readLines(t, env.outFile))
}

func TestExportJob_SkipLimitExceeded(t *testing.T) {
	env := newTestEnv(t, 11, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	job := be.NewExportJob(env.source, env.repo, engine.DefaultOptions())

	exec, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile})
	require.ErrorIs(t, err, domain.ErrSkipLimitExceeded)
	require.Equal(t, domain.BatchStatusFailed, exec.Status)
	require.Contains(t, exec.Cause, domain.ERR_SKIP_LIMIT_EXCEEDED)
	require.Contains(t, exec.Cause, "last record 11")
	require.Equal(t, uint64(11), exec.SkipCount)
	require.Empty(t, readLines(t, env.outFile))

	stored, err := env.repo.GetJobExecution(env.ctx, exec.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusFailed, stored.Status)
	require.Equal(t, exec.Cause, stored.Cause)
}

func TestExportJob_CommitFailed(t *testing.T) {
	env := newTestEnv(t, 25)
	job := be.NewExportJob(env.source, env.repo, engine.DefaultOptions())
	job.Sinks = func(params domain.JobParameters) (domain.SinkConfig[domain.Customer], error) {
		return failingSinkConfig{failOn: 2}, nil
	}

	exec, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile})
	require.ErrorIs(t, err, domain.ErrCommitFailed)
	require.Equal(t, domain.BatchStatusFailed, exec.Status)
	require.Equal(t, uint64(10), exec.WriteCount)
	require.Equal(t, uint64(1), exec.CommitCount)
	require.Contains(t, exec.Cause, "no space left on device")
}

func TestExportJob_DryRun(t *testing.T) {
	env := newTestEnv(t, 4)
	job := be.NewExportJob(env.source, nil, engine.DefaultOptions())

	exec, err := job.Launch(env.ctx, map[string]string{"outputFile": env.outFile, "dryRun": "true"})
	require.NoError(t, err)
	require.Equal(t, uint64(4), exec.WriteCount)
	_, err = os.Stat(env.outFile)
	require.True(t, os.IsNotExist(err))
}

func TestExportJob_MissingSource(t *testing.T) {
	job := be.NewExportJob(nil, nil, engine.DefaultOptions())
	exec, err := job.Launch(context.Background(), map[string]string{"outputFile": filepath.Join(t.TempDir(), "out.csv")})
	require.ErrorIs(t, err, domain.ErrMissingSourceConfig)
	require.Equal(t, domain.BatchStatusFailed, exec.Status)
}

func TestDefaultJobParametersValidator(t *testing.T) {
	v := be.DefaultJobParametersValidator{RequiredKeys: domain.NewSet("outputFile", "runDate")}

	require.NoError(t, v.Validate(domain.NewJobParameters(map[string]string{"outputFile": "a", "runDate": "b", "extra": ""})))

	err := v.Validate(domain.NewJobParameters(map[string]string{"outputFile": "a"}))
	require.ErrorIs(t, err, domain.ErrInvalidParameters)
	require.Contains(t, err.Error(), "runDate is required")

	err = v.Validate(domain.NewJobParameters(map[string]string{"outputFile": "", "runDate": "b"}))
	require.Contains(t, err.Error(), "outputFile must not be empty")

	require.NoError(t, be.DefaultJobParametersValidator{}.Validate(domain.NewJobParameters(nil)))
}
