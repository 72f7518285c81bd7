package sqllite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	CustomersTable    = "customers"
	JobExecutionTable = "job_execution"
)

type Column struct {
	Key   string
	Value any
}

type Row struct {
	Columns []Column
}

// CustomerRow is a customers row. Name and email are nullable.
type CustomerRow struct {
	ID    int64          `db:"id"`
	Name  sql.NullString `db:"name"`
	Email sql.NullString `db:"email"`
}

// ToCustomer maps NULL columns to empty strings.
func (r CustomerRow) ToCustomer() domain.Customer {
	return domain.Customer{
		ID:    r.ID,
		Name:  r.Name.String,
		Email: r.Email.String,
	}
}

var CustomerSchema = `
	CREATE TABLE IF NOT EXISTS customers (
	id     INTEGER PRIMARY KEY,
	name   TEXT,
	email  TEXT
	);
`

// MapCustomerRecord maps a loosely typed record to a customers row. A nil value is stored as NULL.
func MapCustomerRecord(record map[string]any) *Row {
	cols := []Column{}
	if id, ok := record["id"]; ok && id != nil {
		cols = append(cols, Column{Key: "id", Value: id})
	} else {
		return nil // id is required
	}
	if name, ok := record["name"]; ok {
		cols = append(cols, Column{Key: "name", Value: name})
	}
	if email, ok := record["email"]; ok {
		cols = append(cols, Column{Key: "email", Value: email})
	}
	return &Row{
		Columns: cols,
	}
}

// JobExecutionRow is a job_execution row.
type JobExecutionRow struct {
	ID          string         `db:"id"`
	JobName     string         `db:"job_name"`
	Parameters  string         `db:"parameters"` // JSON object
	Status      string         `db:"status"`
	Cause       sql.NullString `db:"cause"`
	ReadCount   int64          `db:"read_count"`
	WriteCount  int64          `db:"write_count"`
	SkipCount   int64          `db:"skip_count"`
	RetryCount  int64          `db:"retry_count"`
	CommitCount int64          `db:"commit_count"`
	CreatedAt   time.Time      `db:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at"`
	EndedAt     sql.NullTime   `db:"ended_at"`
}

var JobExecutionSchema = `
	CREATE TABLE IF NOT EXISTS job_execution (
	id            TEXT PRIMARY KEY,
	job_name      TEXT NOT NULL,
	parameters    TEXT NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL,
	cause         TEXT,
	read_count    INTEGER NOT NULL DEFAULT 0,
	write_count   INTEGER NOT NULL DEFAULT 0,
	skip_count    INTEGER NOT NULL DEFAULT 0,
	retry_count   INTEGER NOT NULL DEFAULT 0,
	commit_count  INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	started_at    TIMESTAMP,
	ended_at      TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_job_execution_job_name ON job_execution (job_name);
`

func jobExecutionRowFrom(exec *domain.JobExecution) (*JobExecutionRow, error) {
	params, err := json.Marshal(exec.Parameters)
	if err != nil {
		return nil, err
	}
	return &JobExecutionRow{
		ID:          exec.ID,
		JobName:     exec.JobName,
		Parameters:  string(params),
		Status:      string(exec.Status),
		Cause:       sql.NullString{String: exec.Cause, Valid: exec.Cause != ""},
		ReadCount:   int64(exec.ReadCount),
		WriteCount:  int64(exec.WriteCount),
		SkipCount:   int64(exec.SkipCount),
		RetryCount:  int64(exec.RetryCount),
		CommitCount: int64(exec.CommitCount),
		CreatedAt:   exec.CreatedAt.UTC(),
		StartedAt:   sql.NullTime{Time: exec.StartedAt.UTC(), Valid: !exec.StartedAt.IsZero()},
		EndedAt:     sql.NullTime{Time: exec.EndedAt.UTC(), Valid: !exec.EndedAt.IsZero()},
	}, nil
}

func (r *JobExecutionRow) toJobExecution() (*domain.JobExecution, error) {
	params := map[string]string{}
	if r.Parameters != "" {
		if err := json.Unmarshal([]byte(r.Parameters), &params); err != nil {
			return nil, err
		}
	}
	exec := &domain.JobExecution{
		ID:          r.ID,
		JobName:     r.JobName,
		Parameters:  params,
		Status:      domain.BatchStatus(r.Status),
		Cause:       r.Cause.String,
		ReadCount:   uint64(r.ReadCount),
		WriteCount:  uint64(r.WriteCount),
		SkipCount:   uint64(r.SkipCount),
		RetryCount:  uint64(r.RetryCount),
		CommitCount: uint64(r.CommitCount),
		CreatedAt:   r.CreatedAt,
	}
	if r.StartedAt.Valid {
		exec.StartedAt = r.StartedAt.Time
	}
	if r.EndedAt.Valid {
		exec.EndedAt = r.EndedAt.Time
	}
	return exec, nil
}
