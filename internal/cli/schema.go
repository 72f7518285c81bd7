package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hankgalt/batch-export/internal/clients/postgres"
	sqllite "github.com/hankgalt/batch-export/internal/clients/sql_lite"
	"github.com/hankgalt/batch-export/internal/sources"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the customers and job repository tables",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	switch cfg.SourceDriver {
	case sources.DriverPostgres, "postgresql", "pg":
		client, err := postgres.NewBunPostgresClient(ctx, cfg.SourceDSN)
		if err != nil {
			return err
		}
		defer client.Close(ctx)
		if err := client.InitializeDatabase(ctx); err != nil {
			return fmt.Errorf("create customers table: %w", err)
		}
	default:
		if err := ensureDir(cfg.SourceDSN); err != nil {
			return err
		}
		client, err := sqllite.NewSQLLiteDBClient(cfg.SourceDSN)
		if err != nil {
			return err
		}
		defer client.Close(ctx)
		if _, err := client.ExecuteSchema(ctx, sqllite.CustomerSchema); err != nil {
			return fmt.Errorf("create customers table: %w", err)
		}
	}

	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	closeRepository(ctx, repo)

	fmt.Fprintf(cmd.OutOrStdout(), "Schema ready: source %s (%s), repository %s\n", cfg.SourceDSN, cfg.SourceDriver, cfg.RepositoryDB)
	return nil
}
