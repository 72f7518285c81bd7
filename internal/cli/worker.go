package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	be "github.com/hankgalt/batch-export"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Temporal worker for export workflows",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(
		client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
			Logger:    log,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect to temporal server: %w", err)
	}
	return c, nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	job, repo, err := buildJob(ctx)
	if err != nil {
		return err
	}
	defer closeRepository(ctx, repo)

	c, err := dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	w := worker.New(c, cfg.TaskQueue, worker.Options{
		BackgroundActivityContext: context.WithValue(ctx, be.ExportJobContextKey, job),
		Identity:                  be.HostID,
	})

	w.RegisterWorkflowWithOptions(
		be.ExportCustomersWorkflow,
		workflow.RegisterOptions{
			Name: be.ExportCustomersWorkflowName,
		},
	)
	w.RegisterActivityWithOptions(
		be.RunExportJobActivity,
		activity.RegisterOptions{
			Name: be.RunExportJobActivityName,
		},
	)

	log.Info("temporal worker started", "task-queue", cfg.TaskQueue, "host-id", be.HostID)
	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
