package sources

import (
	"fmt"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// BuildSourceConfig resolves the customer source for a configured driver and DSN.
func BuildSourceConfig(driver, dsn string) (domain.SourceConfig[domain.Customer], error) {
	if dsn == "" {
		return nil, domain.ErrMissingSourceConfig
	}

	switch driver {
	case DriverSQLite, "sqlite":
		return SQLLiteSourceConfig{DBFile: dsn}, nil
	case DriverPostgres, "postgresql", "pg":
		return PostgresSourceConfig{DSN: dsn}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSourceType, driver)
	}
}
