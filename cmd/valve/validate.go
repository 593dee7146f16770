package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/runner"
	"valve-hq/valve/pkg/table"
	"valve-hq/valve/pkg/valve"
)

var validateFlags struct {
	distinctDir string
	rowStart    int
	output      string
	format      string
	parallelism int
	failOn      string
	minLevel    string
	record      bool
	progress    bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [flags] PATH...",
	Short: "Validate tables",
	Long: `Validate the tables in the given files and directories.

Directories contribute every .csv and .tsv file directly inside them. The
datatype and field tables are required; the rule table is optional. Every
other table is validated.

Problems are written to --output when given, in a format chosen by its
extension (.tsv, .csv or .json), and otherwise printed to stdout. The
command exits with status 1 when any problem is at or above --fail-on.

Examples:
  # Validate and print problems
  valve validate tables/

  # Write problems to a file, rows numbered from 3
  valve validate -r 3 -o problems.tsv tables/

  # Also write the distinct rows of each table to distinct/
  valve validate -d distinct/ -o problems.tsv tables/

  # JSON for CI
  valve validate --format json tables/`,
	Args: cobra.ArbitraryArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	f := validateCmd.Flags()
	f.StringVarP(&validateFlags.distinctDir, "distinct", "d", "", "write <table>_distinct files with rows carrying new messages to DIR")
	f.IntVarP(&validateFlags.rowStart, "row-start", "r", 0, "row number of the first data row (default 2)")
	f.StringVarP(&validateFlags.output, "output", "o", "", "write problems to this file")
	f.StringVarP(&validateFlags.format, "format", "f", "", "stdout format: text, json, csv, tsv")
	f.IntVarP(&validateFlags.parallelism, "parallelism", "p", 0, "tables validated concurrently")
	f.StringVar(&validateFlags.failOn, "fail-on", "", "lowest level that fails the run: ERROR, WARN, INFO")
	f.StringVar(&validateFlags.minLevel, "min-level", "", "lowest level reported: ERROR, WARN, INFO")
	f.BoolVar(&validateFlags.record, "record", false, "record the run in the history store")
	f.BoolVar(&validateFlags.progress, "progress", false, "show a progress bar on stderr")
}

// applyInputs overrides the configured inputs with command arguments.
func applyInputs(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Validation.Inputs = args
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		applyInputs(cfg, args)
		if validateFlags.distinctDir != "" {
			cfg.Validation.Distinct = true
			cfg.Validation.DistinctDir = validateFlags.distinctDir
		}
		if validateFlags.rowStart != 0 {
			cfg.Validation.RowStart = validateFlags.rowStart
		}
		if validateFlags.output != "" {
			cfg.Output.Path = validateFlags.output
		}
		if validateFlags.format != "" {
			cfg.Output.Format = validateFlags.format
		}
		if validateFlags.parallelism != 0 {
			cfg.Validation.Parallelism = validateFlags.parallelism
		}
		if validateFlags.failOn != "" {
			cfg.Validation.FailOn = strings.ToUpper(validateFlags.failOn)
		}
		if validateFlags.minLevel != "" {
			cfg.Output.MinLevel = strings.ToUpper(validateFlags.minLevel)
		}
		if validateFlags.record {
			cfg.Store.Enabled = true
		}
	})
	if err != nil {
		return err
	}
	if err := requireInputs(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	src, err := openSource(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	tracer, err := newTracer(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracer(tracer, logger)

	collector := newCollector(cfg)
	opts := runner.Options{Store: st, Metrics: collector, Tracer: tracer, Source: src}
	if validateFlags.progress {
		progress := cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(int64(countDataInputs(cfg.Validation.Inputs)))
		obs := &cli.ProgressObserver{Progress: progress}
		if collector != nil {
			obs.Next = collector
		}
		opts.Observer = obs
	}

	out, err := runner.New(cfg, logger, opts).Run(ctx, runner.TriggerCLI)
	if err != nil {
		if out == nil {
			return cli.NewCommandError("validate", err)
		}
		logger.Warn("run completed with errors", "error", err)
	}
	return reportResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, out.Result)
}

// reportResult prints the problems when no output file is configured,
// prints a summary and turns problems at the fail level into an exit code.
func reportResult(stdout, stderr io.Writer, cfg *config.Config, result *valve.Result) error {
	if cfg.Output.Path == "" {
		min, err := report.ParseLevel(cfg.Output.MinLevel)
		if err != nil {
			return err
		}
		vs := cli.Violations(report.Filter(result.Violations, min))
		if len(vs) > 0 || cfg.Output.Format == string(cli.FormatJSON) {
			if err := cli.NewFormatter(cli.OutputFormat(cfg.Output.Format)).FormatTo(stdout, vs); err != nil {
				return err
			}
		}
	}

	counts := report.CountByLevel(result.Violations)
	if result.ConfigFailed {
		fmt.Fprintln(stderr, "✗ Configuration invalid; no tables were validated")
	}
	fmt.Fprintf(stderr, "%d errors, %d warnings, %d info in %d tables (%s)\n",
		counts[report.LevelError], counts[report.LevelWarn], counts[report.LevelInfo],
		len(result.Tables), result.Duration.Round(time.Millisecond))

	failOn, err := report.ParseLevel(cfg.Validation.FailOn)
	if err != nil {
		return err
	}
	if failing := report.Filter(result.Violations, failOn); len(failing) > 0 {
		return &cli.ExitError{Code: 1, Reason: fmt.Sprintf("%d problems at %s or above", len(failing), failOn)}
	}
	return nil
}

// countDataInputs estimates the number of data tables for the progress
// bar: every table file that is not a configuration table.
func countDataInputs(inputs []string) int {
	files, err := table.ExpandPaths(inputs)
	if err != nil {
		return 0
	}
	n := 0
	for _, f := range files {
		if !report.ConfigTables[table.NameFromPath(f)] {
			n++
		}
	}
	return n
}
