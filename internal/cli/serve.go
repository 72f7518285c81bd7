package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hankgalt/batch-export/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP launch surface",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, repo, err := buildJob(ctx)
	if err != nil {
		return err
	}
	defer closeRepository(ctx, repo)

	srv := server.New(log, repo, map[string]server.Launcher{job.Name: job})
	return srv.Run(ctx, cfg.HTTPAddr)
}
