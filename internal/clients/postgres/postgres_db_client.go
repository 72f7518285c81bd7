package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	ERR_POSTGRES_DSN_REQUIRED     = "postgres: dsn is required"
	ERR_POSTGRES_DB_CONNECTION    = "postgres: error connecting to database"
	ERR_POSTGRES_DB_DISCONNECTION = "postgres: error disconnecting from database"
)

var (
	ErrPostgresDSNRequired = errors.New(ERR_POSTGRES_DSN_REQUIRED)
	ErrPostgresDBConn      = errors.New(ERR_POSTGRES_DB_CONNECTION)
	ErrPostgresDBDisconn   = errors.New(ERR_POSTGRES_DB_DISCONNECTION)
)

const DefaultCustomersTable = "customers"

// CustomerModel is the customers table. Name and email are nullable.
type CustomerModel struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID    int64          `bun:"id,pk"`
	Name  sql.NullString `bun:"name"`
	Email sql.NullString `bun:"email"`
}

// ToCustomer maps NULL columns to empty strings.
func (m *CustomerModel) ToCustomer() domain.Customer {
	return domain.Customer{
		ID:    m.ID,
		Name:  m.Name.String,
		Email: m.Email.String,
	}
}

// CustomerModelFrom maps empty name or email to NULL.
func CustomerModelFrom(c domain.Customer) *CustomerModel {
	return &CustomerModel{
		ID:    c.ID,
		Name:  sql.NullString{String: c.Name, Valid: c.Name != ""},
		Email: sql.NullString{String: c.Email, Valid: c.Email != ""},
	}
}

type PostgresDBClient struct {
	db *bun.DB
}

// NewBunPostgresClient opens a bun DB over the pgdriver connector and pings it.
func NewBunPostgresClient(ctx context.Context, dsn string) (*PostgresDBClient, error) {
	if dsn == "" {
		return nil, ErrPostgresDSNRequired
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s", ErrPostgresDBConn, err.Error())
	}

	return &PostgresDBClient{db: db}, nil
}

func (c *PostgresDBClient) Close(ctx context.Context) error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("%w: %s", ErrPostgresDBDisconn, err.Error())
	}
	return nil
}

// InitializeDatabase creates the customers table if missing.
func (c *PostgresDBClient) InitializeDatabase(ctx context.Context) error {
	_, err := c.db.NewCreateTable().
		Model((*CustomerModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// InsertCustomers bulk inserts customers.
func (c *PostgresDBClient) InsertCustomers(ctx context.Context, customers []domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	models := make([]*CustomerModel, 0, len(customers))
	for _, cust := range customers {
		models = append(models, CustomerModelFrom(cust))
	}
	_, err := c.db.NewInsert().Model(&models).Exec(ctx)
	return err
}

// QueryCustomers opens a forward-only cursor over the table in storage order.
// The caller owns the returned rows.
func (c *PostgresDBClient) QueryCustomers(ctx context.Context, table string) (*sql.Rows, error) {
	q := c.db.NewSelect().
		Model((*CustomerModel)(nil)).
		Column("id", "name", "email")
	if table != "" && table != DefaultCustomersTable {
		q = q.ModelTableExpr("? AS c", bun.Ident(table))
	}
	return q.Rows(ctx)
}

// ScanCustomer scans the current cursor row.
func (c *PostgresDBClient) ScanCustomer(ctx context.Context, rows *sql.Rows) (domain.Customer, error) {
	m := new(CustomerModel)
	if err := c.db.ScanRow(ctx, rows, m); err != nil {
		return domain.Customer{}, err
	}
	return m.ToCustomer(), nil
}
