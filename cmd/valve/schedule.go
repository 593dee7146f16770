package main

import (
	"context"

	"github.com/spf13/cobra"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/runner"
	"valve-hq/valve/pkg/schedule"
)

var scheduleFlags struct {
	cron        string
	record      bool
	skipOnStart bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [flags] PATH...",
	Short: "Validate tables on a cron schedule",
	Long: `Validate the tables on a cron schedule until interrupted. The
schedule is a standard five field cron expression or a descriptor such
as @hourly or "@every 15m". A run that is still going when the next one
is due delays nothing; the due run is skipped.

With source.git configured, the repository is pulled before each run
and relative paths are read from its checkout.

Examples:
  valve schedule --cron "0 6 * * *" --record tables/
  valve schedule -c valve.yaml`,
	Args: cobra.ArbitraryArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "cron expression (default from config, @hourly)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.record, "record", false, "record runs in the history store")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.skipOnStart, "no-run-on-start", false, "wait for the first scheduled time")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		applyInputs(cfg, args)
		if scheduleFlags.cron != "" {
			cfg.Schedule.Cron = scheduleFlags.cron
		}
		if scheduleFlags.record {
			cfg.Store.Enabled = true
		}
		if scheduleFlags.skipOnStart {
			runOnStart := false
			cfg.Schedule.RunOnStart = &runOnStart
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
	checker, tracker := newHealth(cfg, st)
	serveTelemetry(ctx, cfg, collector, checker, logger)

	r := runner.New(cfg, logger, runner.Options{
		Store:    st,
		Metrics:  collector,
		Observer: observers(collector, tracker),
		Tracer:   tracer,
		Source:   src,
	})
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	s, err := schedule.New(cfg.Schedule.Cron, func(ctx context.Context) error {
		out, err := r.Run(ctx, runner.TriggerSchedule)
		if out != nil {
			_ = reportResult(stdout, stderr, cfg, out.Result)
		}
		return err
	}, logger.Slog())
	if err != nil {
		return cli.NewConfigError("schedule.cron", err.Error())
	}

	runOnStart := cfg.Schedule.RunOnStart == nil || *cfg.Schedule.RunOnStart
	return s.Run(ctx, runOnStart)
}
