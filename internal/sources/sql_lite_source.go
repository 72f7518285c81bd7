package sources

import (
	"context"
	"errors"
	"sync"

	"github.com/comfforts/logger"
	"github.com/jmoiron/sqlx"

	sqllite "github.com/hankgalt/batch-export/internal/clients/sql_lite"
	"github.com/hankgalt/batch-export/pkg/domain"
)

// Error constants and variables
const (
	ERR_SQLLITE_SOURCE_NIL                   = "sql-lite source is nil"
	ERR_SQLLITE_SOURCE_DB_FILE_REQUIRED      = "sql-lite source: DB file is required"
	ERR_SQLLITE_SOURCE_SIZE_MUST_BE_POSITIVE = "sql-lite source: size must be greater than 0"
)

var (
	ErrSQLLiteSourceNil                = errors.New(ERR_SQLLITE_SOURCE_NIL)
	ErrSQLLiteSourceDBFileRequired     = errors.New(ERR_SQLLITE_SOURCE_DB_FILE_REQUIRED)
	ErrSQLLiteSourceSizeMustBePositive = errors.New(ERR_SQLLITE_SOURCE_SIZE_MUST_BE_POSITIVE)
)

const (
	SQLLiteSource = "sql-lite-source"

	DefaultCustomerQuery = "SELECT id, name, email FROM customers"
)

// SQLLite customer source. The cursor is opened on the first pull.
type sqlLiteCustomerSource struct {
	mu     sync.Mutex
	client *sqllite.SQLLiteDBClient
	query  string
	rows   *sqlx.Rows
	done   bool
}

// Name of the source.
func (s *sqlLiteCustomerSource) Name() string { return SQLLiteSource }

// Next pulls up to n customers from the cursor.
func (s *sqlLiteCustomerSource) Next(ctx context.Context, n uint) (*domain.BatchProcess[domain.Customer], error) {
	if s == nil {
		return nil, ErrSQLLiteSourceNil
	}
	if n == 0 {
		return nil, ErrSQLLiteSourceSizeMustBePositive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return &domain.BatchProcess[domain.Customer]{Done: true}, nil
	}

	if s.rows == nil {
		rows, err := s.client.QueryCustomers(ctx, s.query)
		if err != nil {
			return &domain.BatchProcess[domain.Customer]{}, err
		}
		s.rows = rows

		l, lErr := logger.LoggerFromContext(ctx)
		if lErr != nil {
			l = logger.GetSlogLogger()
		}
		l.Debug("sql-lite source: cursor opened", "query", s.query)
	}

	bp, err := pull(ctx, s.rows, n, func() (domain.Customer, error) {
		var row sqllite.CustomerRow
		if err := s.rows.StructScan(&row); err != nil {
			return domain.Customer{}, err
		}
		return row.ToCustomer(), nil
	})
	s.done = bp.Done
	return bp, err
}

// Close closes the cursor and the database.
func (s *sqlLiteCustomerSource) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.rows != nil {
		errs = append(errs, s.rows.Close())
		s.rows = nil
	}
	errs = append(errs, s.client.Close(ctx))
	return errors.Join(errs...)
}

// SQLLite customer source config.
type SQLLiteSourceConfig struct {
	DBFile string // e.g., "data/customers.db"
	Query  string // defaults to DefaultCustomerQuery
}

// Name of the source.
func (c SQLLiteSourceConfig) Name() string { return SQLLiteSource }

// BuildSource opens the database. No rows are read until the first pull.
func (c SQLLiteSourceConfig) BuildSource(ctx context.Context) (domain.Source[domain.Customer], error) {
	if c.DBFile == "" {
		return nil, ErrSQLLiteSourceDBFileRequired
	}

	query := c.Query
	if query == "" {
		query = DefaultCustomerQuery
	}

	dbClient, err := sqllite.NewSQLLiteDBClient(c.DBFile)
	if err != nil {
		return nil, err
	}

	return &sqlLiteCustomerSource{
		client: dbClient,
		query:  query,
	}, nil
}
