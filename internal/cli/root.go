// Package cli provides the command-line interface for batch-export.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/comfforts/logger"
	"github.com/spf13/cobra"

	be "github.com/hankgalt/batch-export"
	sqllite "github.com/hankgalt/batch-export/internal/clients/sql_lite"
	"github.com/hankgalt/batch-export/internal/config"
	"github.com/hankgalt/batch-export/internal/sources"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configFile string

	// Global config and logger
	cfg        config.Config
	log        *slog.Logger
	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "batch-export",
	Short: "Chunked customer export jobs",
	Long: `batch-export reads customer records from a database, validates them and
writes the accepted records to a delimited file in fixed-size chunks.

Jobs run in-process (run), through a Temporal worker (worker, submit) or
behind an HTTP launch surface (serve).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if configFile != "" {
			if cfg, err = config.LoadFile(cfg, configFile); err != nil {
				return err
			}
		}

		log, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		cmd.SetContext(logger.WithLogger(cmd.Context(), log))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML job definition, overrides environment values")
}

// parseParams reads key=value job parameters.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid job parameter %q, expected key=value", arg)
		}
		params[key] = val
	}
	return params, nil
}

// openRepository opens the sqlite job repository and ensures its table exists.
func openRepository(ctx context.Context) (*sqllite.SQLLiteDBClient, error) {
	if err := ensureDir(cfg.RepositoryDB); err != nil {
		return nil, err
	}
	repo, err := sqllite.NewSQLLiteDBClient(cfg.RepositoryDB)
	if err != nil {
		return nil, fmt.Errorf("open job repository: %w", err)
	}
	if _, err := repo.ExecuteSchema(ctx, sqllite.JobExecutionSchema); err != nil {
		_ = repo.Close(ctx)
		return nil, fmt.Errorf("initialize job repository: %w", err)
	}
	return repo, nil
}

// buildJob wires the customer export job from the loaded config.
func buildJob(ctx context.Context) (*be.ExportJob, *sqllite.SQLLiteDBClient, error) {
	source, err := sources.BuildSourceConfig(cfg.SourceDriver, cfg.SourceDSN)
	if err != nil {
		return nil, nil, err
	}
	repo, err := openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return be.NewExportJob(source, repo, cfg.EngineOptions()), repo, nil
}

func closeRepository(ctx context.Context, repo *sqllite.SQLLiteDBClient) {
	if err := repo.Close(ctx); err != nil {
		log.Warn("error closing job repository", "error", err.Error())
	}
}

// ensureDir creates the parent directory of a sqlite database file.
func ensureDir(dbFile string) error {
	if dbFile == sqllite.MemoryDB {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbFile), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dbFile, err)
	}
	return nil
}
