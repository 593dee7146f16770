package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/runner"
	"valve-hq/valve/pkg/watch"
)

var watchFlags struct {
	debounce string
	record   bool
	force    bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [flags] PATH...",
	Short: "Re-validate tables whenever they change",
	Long: `Validate the tables once, then again each time a table file is
written, created, renamed or removed. Bursts of changes within the
debounce period trigger a single run. Runs whose inputs have the same
content as the previous run are skipped unless --force is set.

With telemetry.metrics.listen_address configured, metrics and the
health probes are served while watching.

Examples:
  valve watch tables/
  valve watch --debounce 2s --record -c valve.yaml`,
	Args: cobra.ArbitraryArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.debounce, "debounce", "", "quiet period before a run, e.g. 500ms")
	watchCmd.Flags().BoolVar(&watchFlags.record, "record", false, "record runs in the history store")
	watchCmd.Flags().BoolVar(&watchFlags.force, "force", false, "run even when the inputs are unchanged")
}

func runWatch(cmd *cobra.Command, args []string) error {
	var debounceErr error
	cfg, err := loadConfig(func(cfg *config.Config) {
		applyInputs(cfg, args)
		if watchFlags.debounce != "" {
			cfg.Watch.Debounce, debounceErr = time.ParseDuration(watchFlags.debounce)
		}
		if watchFlags.record {
			cfg.Store.Enabled = true
		}
	})
	if err != nil {
		return err
	}
	if debounceErr != nil {
		return cli.NewConfigError("--debounce", debounceErr.Error())
	}
	if len(cfg.Validation.Inputs) == 0 {
		return cli.NewConfigError("validation.inputs", "no input paths given")
	}
	if cfg.Source.Git.Enabled() {
		return cli.NewConfigError("source.git", "watch reads local files; use schedule to poll a repository")
	}

	logger, err := newLogger(cfg)
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
	checker, tracker := newHealth(cfg, st)
	serveTelemetry(ctx, cfg, collector, checker, logger)

	r := runner.New(cfg, logger, runner.Options{
		Store:         st,
		Metrics:       collector,
		Observer:      observers(collector, tracker),
		Tracer:        tracer,
		SkipUnchanged: !watchFlags.force,
	})
	if err := r.Prime(ctx); err != nil {
		logger.Warn("failed to read last run", "error", err)
	}

	w, err := watch.New(watch.Config{
		Paths:      cfg.Validation.Inputs,
		Debounce:   cfg.Watch.Debounce,
		Extensions: cfg.Watch.Extensions,
	}, logger.Slog())
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	runOnce := func(ctx context.Context) error {
		out, err := r.Run(ctx, runner.TriggerWatch)
		if out == nil || out.Skipped {
			return err
		}
		// The exit code only matters for one-shot runs.
		_ = reportResult(stdout, stderr, cfg, out.Result)
		return err
	}

	if err := runOnce(ctx); err != nil {
		logger.Error("initial run failed", "error", err)
	}
	return w.Watch(ctx, func(ctx context.Context, changed []string) error {
		logger.Info("inputs changed", "files", changed)
		return runOnce(ctx)
	})
}
