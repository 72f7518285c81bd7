package sqllite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sqllite "github.com/hankgalt/batch-export/internal/clients/sql_lite"
	"github.com/hankgalt/batch-export/pkg/domain"
)

func newTestClient(t *testing.T) *sqllite.SQLLiteDBClient {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "__deleteme.db")
	dbClient, err := sqllite.NewSQLLiteDBClient(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbClient.Close(context.Background()))
	})

	_, err = dbClient.ExecuteSchema(context.Background(), sqllite.CustomerSchema)
	require.NoError(t, err)
	_, err = dbClient.ExecuteSchema(context.Background(), sqllite.JobExecutionSchema)
	require.NoError(t, err)
	return dbClient
}

func TestSQLLiteDBClient(t *testing.T) {
	ctx := context.Background()
	dbClient := newTestClient(t)

	start := 13745
	for i := range 5 {
		res, err := dbClient.InsertCustomer(ctx, domain.Customer{
			ID:    int64(start + i),
			Name:  "Test Customer",
			Email: "test@x.com",
		})
		require.NoError(t, err)

		n, err := res.LastInsertId()
		require.NoError(t, err)
		require.Equal(t, int64(start+i), n)
	}

	// NULL name and email
	_, err := dbClient.InsertRecord(ctx, sqllite.CustomersTable, map[string]any{"id": 1, "name": nil, "email": nil})
	require.NoError(t, err)

	_, err = dbClient.InsertRecord(ctx, sqllite.CustomersTable, map[string]any{"name": "no id"})
	require.ErrorIs(t, err, sqllite.ErrSqlLiteInvalidRecord)

	_, err = dbClient.InsertRecord(ctx, "agent", map[string]any{"id": 2})
	require.Error(t, err)

	rows, err := dbClient.QueryCustomers(ctx, "SELECT id, name, email FROM customers ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	customers := []domain.Customer{}
	for rows.Next() {
		var row sqllite.CustomerRow
		require.NoError(t, rows.StructScan(&row))
		customers = append(customers, row.ToCustomer())
	}
	require.NoError(t, rows.Err())
	require.Len(t, customers, 6)
	require.Equal(t, domain.Customer{ID: 1}, customers[0])
	require.Equal(t, "Test Customer", customers[1].Name)
}

func TestSQLLiteJobRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestClient(t)

	created := time.Now().UTC().Truncate(time.Second)
	exec := &domain.JobExecution{
		ID:         "exec-1",
		JobName:    "exportCustomerJob",
		Parameters: map[string]string{"outputFile": "out.csv"},
		Status:     domain.BatchStatusRunning,
		CreatedAt:  created,
		StartedAt:  created,
	}
	require.NoError(t, repo.CreateJobExecution(ctx, exec))

	got, err := repo.GetJobExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusRunning, got.Status)
	require.Equal(t, map[string]string{"outputFile": "out.csv"}, got.Parameters)
	require.True(t, got.EndedAt.IsZero())
	require.True(t, created.Equal(got.CreatedAt))

	exec.Status = domain.BatchStatusFailed
	exec.Cause = "error chunk commit failed: chunk 1, skips 0"
	exec.ReadCount, exec.WriteCount, exec.SkipCount, exec.CommitCount = 20, 10, 0, 1
	exec.EndedAt = created.Add(time.Second)
	exec.Parameters = map[string]string{"outputFile": "ignored.csv"}
	require.NoError(t, repo.UpdateJobExecution(ctx, exec))

	got, err = repo.GetJobExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusFailed, got.Status)
	require.Equal(t, exec.Cause, got.Cause)
	require.Equal(t, uint64(20), got.ReadCount)
	require.Equal(t, uint64(10), got.WriteCount)
	require.Equal(t, uint64(1), got.CommitCount)
	require.True(t, exec.EndedAt.Equal(got.EndedAt))
	require.Equal(t, map[string]string{"outputFile": "out.csv"}, got.Parameters)

	execs, err := repo.ListJobExecutions(ctx, "exportCustomerJob", 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)

	_, err = repo.GetJobExecution(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrExecutionNotFound)

	err = repo.UpdateJobExecution(ctx, &domain.JobExecution{ID: "missing", Status: domain.BatchStatusFailed})
	require.ErrorIs(t, err, domain.ErrExecutionNotFound)
}
