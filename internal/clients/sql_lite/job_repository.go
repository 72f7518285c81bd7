package sqllite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hankgalt/batch-export/pkg/domain"
)

// CreateJobExecution inserts a new execution with its parameters.
func (db *SQLLiteDBClient) CreateJobExecution(ctx context.Context, exec *domain.JobExecution) error {
	row, err := jobExecutionRowFrom(exec)
	if err != nil {
		return fmt.Errorf("sql-lite: encode job execution %s: %w", exec.ID, err)
	}

	_, err = db.store.NamedExecContext(ctx, `
		INSERT INTO job_execution (
			id, job_name, parameters, status, cause,
			read_count, write_count, skip_count, retry_count, commit_count,
			created_at, started_at, ended_at
		) VALUES (
			:id, :job_name, :parameters, :status, :cause,
			:read_count, :write_count, :skip_count, :retry_count, :commit_count,
			:created_at, :started_at, :ended_at
		)`, row)
	if err != nil {
		return fmt.Errorf("sql-lite: create job execution %s: %w", exec.ID, err)
	}
	return nil
}

// UpdateJobExecution stores status, cause, counters and timestamps. Parameters never change.
func (db *SQLLiteDBClient) UpdateJobExecution(ctx context.Context, exec *domain.JobExecution) error {
	row, err := jobExecutionRowFrom(exec)
	if err != nil {
		return fmt.Errorf("sql-lite: encode job execution %s: %w", exec.ID, err)
	}

	res, err := db.store.NamedExecContext(ctx, `
		UPDATE job_execution SET
			status = :status,
			cause = :cause,
			read_count = :read_count,
			write_count = :write_count,
			skip_count = :skip_count,
			retry_count = :retry_count,
			commit_count = :commit_count,
			started_at = :started_at,
			ended_at = :ended_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("sql-lite: update job execution %s: %w", exec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrExecutionNotFound, exec.ID)
	}
	return nil
}

// GetJobExecution returns the execution, or ErrExecutionNotFound.
func (db *SQLLiteDBClient) GetJobExecution(ctx context.Context, id string) (*domain.JobExecution, error) {
	var row JobExecutionRow
	err := db.store.GetContext(ctx, &row, "SELECT * FROM job_execution WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExecutionNotFound, id)
		}
		return nil, fmt.Errorf("sql-lite: get job execution %s: %w", id, err)
	}
	return row.toJobExecution()
}

// ListJobExecutions returns the most recent executions of a job, newest first.
func (db *SQLLiteDBClient) ListJobExecutions(ctx context.Context, jobName string, limit int) ([]*domain.JobExecution, error) {
	rows := []JobExecutionRow{}
	err := db.store.SelectContext(
		ctx,
		&rows,
		"SELECT * FROM job_execution WHERE job_name = $1 ORDER BY created_at DESC LIMIT $2",
		jobName,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sql-lite: list job executions %s: %w", jobName, err)
	}

	execs := make([]*domain.JobExecution, 0, len(rows))
	for i := range rows {
		exec, err := rows[i].toJobExecution()
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, nil
}

var _ domain.JobRepository = (*SQLLiteDBClient)(nil)
