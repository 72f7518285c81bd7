package sqllite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/comfforts/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	ERR_SQLITE_DB_CONNECTION    = "sql-lite: error connecting to database"
	ERR_SQLITE_DB_DISCONNECTION = "sql-lite: error disconnecting from database"
	ERR_SQLITE_INVALID_RECORD   = "sql-lite: invalid record"
)

var (
	ErrSqlLiteDBConn        = errors.New(ERR_SQLITE_DB_CONNECTION)
	ErrSqlLiteDBDisconn     = errors.New(ERR_SQLITE_DB_DISCONNECTION)
	ErrSqlLiteInvalidRecord = errors.New(ERR_SQLITE_INVALID_RECORD)
)

const MemoryDB = ":memory:"

type SQLLiteDBClient struct {
	store *sqlx.DB
}

// NewSQLLiteDBClient opens dbFile. File databases use WAL with a busy timeout
// so a cursor and writers can share a file.
func NewSQLLiteDBClient(dbFile string) (*SQLLiteDBClient, error) {
	dsn := dbFile
	if dbFile != MemoryDB && !strings.Contains(dbFile, "?") {
		dsn = dbFile + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		logger.GetSlogLogger().Error(ERR_SQLITE_DB_CONNECTION, "db-file", dbFile, "error", err.Error())
		return nil, fmt.Errorf("%w: %s", ErrSqlLiteDBConn, err.Error())
	}
	if dbFile == MemoryDB {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	return &SQLLiteDBClient{
		store: db,
	}, nil
}

// ExecuteSchema runs a multi-statement schema script.
func (db *SQLLiteDBClient) ExecuteSchema(ctx context.Context, schema string) (sql.Result, error) {
	return db.store.ExecContext(ctx, schema)
}

func (db *SQLLiteDBClient) Close(ctx context.Context) error {
	if err := db.store.Close(); err != nil {
		logger.GetSlogLogger().Error(ERR_SQLITE_DB_DISCONNECTION, "error", err.Error())
		return ErrSqlLiteDBDisconn
	}
	return nil
}

// InsertRecord inserts a loosely typed record into a supported table.
func (db *SQLLiteDBClient) InsertRecord(ctx context.Context, table string, record map[string]any) (sql.Result, error) {
	if table != CustomersTable {
		return nil, fmt.Errorf("sql-lite: unsupported table: %s", table)
	}

	row := MapCustomerRecord(record)
	if row == nil {
		return nil, fmt.Errorf("%w: %v", ErrSqlLiteInvalidRecord, record)
	}

	return db.insertRecord(ctx, table, row)
}

// InsertCustomer inserts a customer; empty name or email is stored as NULL.
func (db *SQLLiteDBClient) InsertCustomer(ctx context.Context, c domain.Customer) (sql.Result, error) {
	return db.InsertRecord(ctx, CustomersTable, map[string]any{
		"id":    c.ID,
		"name":  nullIfEmpty(c.Name),
		"email": nullIfEmpty(c.Email),
	})
}

// QueryCustomers opens a forward-only cursor over the query results.
// The caller owns the returned rows.
func (db *SQLLiteDBClient) QueryCustomers(ctx context.Context, query string) (*sqlx.Rows, error) {
	return db.store.QueryxContext(ctx, query)
}

func (db *SQLLiteDBClient) insertRecord(ctx context.Context, table string, row *Row) (sql.Result, error) {
	var colIdx string
	var cols string
	values := []any{}

	for i, col := range row.Columns {
		if i == 0 {
			colIdx = fmt.Sprintf("$%d", i+1)
			cols = col.Key
		} else {
			colIdx = fmt.Sprintf("%s, $%d", colIdx, i+1)
			cols = fmt.Sprintf("%s, %s", cols, col.Key)
		}
		values = append(values, col.Value)
	}

	qryStr := "INSERT INTO " + table + " (" + cols + ") VALUES (" + colIdx + ")"
	tx, err := db.store.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, qryStr, values...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return res, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
