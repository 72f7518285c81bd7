package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hankgalt/batch-export/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run [key=value...]",
	Short: "Run the customer export job in-process",
	Long: `Run the customer export job once and print the execution summary.
Exits with code 1 when the execution fails.

Examples:
  batch-export run outputFile=out/customers.csv
  batch-export run outputFile=gs://bucket/exports/customers.csv
  batch-export run outputFile=out/customers.csv dryRun=true`,
	RunE: runJob,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	params, err := parseParams(args)
	if err != nil {
		return err
	}

	job, repo, err := buildJob(ctx)
	if err != nil {
		return err
	}
	defer closeRepository(ctx, repo)

	exec, err := job.Launch(ctx, cfg.JobParameters(params), func(ctx context.Context, exec *domain.JobExecution) {
		log.Debug("chunk committed", "execution-id", exec.ID, "write-count", exec.WriteCount)
	})
	printExecution(cmd, exec)
	if err != nil {
		return fmt.Errorf("job %s failed: %w", job.Name, err)
	}
	return nil
}

func printExecution(cmd *cobra.Command, exec *domain.JobExecution) {
	if exec == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Execution: %s\n", exec.ID)
	fmt.Fprintf(out, "  Job: %s\n", exec.JobName)
	fmt.Fprintf(out, "  Status: %s\n", exec.Status)
	if exec.Cause != "" {
		fmt.Fprintf(out, "  Cause: %s\n", exec.Cause)
	}
	fmt.Fprintf(out, "  Read: %d  Written: %d  Skipped: %d  Retried: %d  Commits: %d\n",
		exec.ReadCount, exec.WriteCount, exec.SkipCount, exec.RetryCount, exec.CommitCount)
}
