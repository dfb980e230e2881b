package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mailkeep-hq/mailkeep/pkg/cli"
	"mailkeep-hq/mailkeep/pkg/config"
	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/telemetry/logging"
)

var sweepFlags struct {
	policyID  string
	dryRun    bool
	maxEmails int
	force     bool
	output    string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single cleanup policy once and exit",
	Long: `Run one cleanup policy synchronously and print the results.

The sweep creates a job, executes it in the foreground, and reports what
was analyzed, protected, and cleaned.

Examples:
  # Archive stale promotions now
  mailkeep sweep --policy archive-promotions

  # Preview without touching any records
  mailkeep sweep --policy archive-promotions --dry-run

  # Cap the run and emit JSON
  mailkeep sweep --policy archive-promotions --max-emails 200 --output json`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&sweepFlags.policyID, "policy", "p", "", "policy id to run (required)")
	sweepCmd.Flags().BoolVar(&sweepFlags.dryRun, "dry-run", false, "report candidates without archiving or deleting")
	sweepCmd.Flags().IntVar(&sweepFlags.maxEmails, "max-emails", 0, "cap the number of emails processed")
	sweepCmd.Flags().BoolVar(&sweepFlags.force, "force", false, "run even if the policy is disabled")
	sweepCmd.Flags().StringVarP(&sweepFlags.output, "output", "o", "text", "output format (text, json)")
	_ = sweepCmd.MarkFlagRequired("policy")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.Setup(logging.Config{
		Level:           level,
		Format:          "text",
		Output:          "stderr",
		RedactAddresses: true,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	defer closeLog()

	ctx := cli.SetupSignalHandler()

	a, err := buildApp(ctx, cfg, nil, logger)
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}
	defer a.Close()

	jobID, err := a.engine.TriggerManualCleanup(ctx, sweepFlags.policyID, jobs.Params{
		DryRun:    sweepFlags.dryRun,
		MaxEmails: sweepFlags.maxEmails,
		Force:     sweepFlags.force,
	})
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start()
	stopProgress := mirrorProgress(ctx, a.store, jobID, progress)

	processErr := a.engine.ProcessJob(ctx, jobID)
	stopProgress()
	if processErr != nil {
		progress.Error(processErr)
		return cli.NewCommandError("sweep", processErr)
	}
	progress.Finish()

	job, err := a.store.GetJob(ctx, jobID)
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}

	return printSweepResults(job)
}

// mirrorProgress polls the persisted job row and feeds its batch
// progress to the reporter until the returned stop function is called.
func mirrorProgress(ctx context.Context, store jobs.Store, jobID string, reporter cli.ProgressReporter) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			job, err := store.GetJob(ctx, jobID)
			if err != nil {
				continue
			}
			reporter.Observe(job.Progress)
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}

func printSweepResults(job *jobs.Job) error {
	if sweepFlags.output == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, job)
	}

	fmt.Printf("Job %s: %s\n", job.ID, job.Status)
	if job.Results == nil {
		return nil
	}

	r := job.Results
	if r.DryRun {
		fmt.Println("(dry run: no records were modified)")
	}
	fmt.Printf("  Analyzed:  %d\n", r.EmailsAnalyzed)
	fmt.Printf("  Protected: %d\n", r.ProtectedCount)
	fmt.Printf("  Deleted:   %d\n", r.EmailsDeleted)
	fmt.Printf("  Archived:  %d\n", r.EmailsArchived)
	fmt.Printf("  Freed:     %d bytes\n", r.StorageFreedBytes)
	for _, msg := range r.Errors {
		fmt.Printf("  ✗ %s\n", msg)
	}
	return nil
}
