/*
Package cli provides command-line interface utilities for the valve
command.

Output Formatting:

Validation results and run history are rendered as text, JSON, CSV or
TSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, cli.Violations(result.Violations)); err != nil {
		return err
	}

Progress Reporting:

A ProgressObserver plugs a progress bar into validation:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(dataTables)))
	opts.Observer = &cli.ProgressObserver{Progress: progress, Next: collector}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
