package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	be "github.com/hankgalt/batch-export"
	"github.com/hankgalt/batch-export/pkg/domain"
)

var submitCmd = &cobra.Command{
	Use:   "submit [key=value...]",
	Short: "Start the export workflow on a Temporal server and wait for it",
	Long: `Start the customer export workflow and wait for its result.
A worker must be polling the configured task queue.

Examples:
  batch-export submit outputFile=out/customers.csv`,
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	params, err := parseParams(args)
	if err != nil {
		return err
	}

	c, err := dialTemporal()
	if err != nil {
		return err
	}
	defer c.Close()

	req := &be.ExportRequest{
		JobName:    be.ExportCustomerJobName,
		Parameters: cfg.JobParameters(params),
	}
	we, err := c.ExecuteWorkflow(
		ctx,
		client.StartWorkflowOptions{
			ID:        be.ExportCustomerJobName + "-" + uuid.NewString(),
			TaskQueue: cfg.TaskQueue,
		},
		be.ExportCustomersWorkflowName,
		req,
	)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	log.Info("export workflow started", "workflow-id", we.GetID(), "run-id", we.GetRunID())

	var exec domain.JobExecution
	if err := we.Get(ctx, &exec); err != nil {
		return fmt.Errorf("workflow %s failed: %w", we.GetID(), err)
	}
	printExecution(cmd, &exec)
	return nil
}
