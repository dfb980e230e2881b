/*
Package cli provides command-line interface utilities for Mailkeep.

The cli package includes output formatters, progress reporters, and common
CLI helpers used by the mailkeep command.

Output Formatting:

The cli package supports text and JSON output for displaying command
results:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, results); err != nil {
		return err
	}

Progress Reporting:

Long-running sweeps mirror the persisted job progress onto a reporter:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start()
	for running {
		job, _ := store.GetJob(ctx, jobID)
		progress.Observe(job.Progress)
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
