package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/config"
)

var historyFlags struct {
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded validation runs",
	Long: `List the runs recorded in the history store, newest first. Runs are
recorded by validate, watch and schedule when the store is enabled in the
configuration or with --record.

Examples:
  valve history
  valve history --limit 5 --format json
  valve history show 5f0c9a8e-...
  valve history prune`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show the problems reported by a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove runs beyond store.max_runs and store.max_age",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)

	historyCmd.PersistentFlags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, csv, tsv")
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "number of runs to list (0 lists all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) { cfg.Store.Enabled = true })
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context(), historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return cli.NewFormatter(cli.OutputFormat(historyFlags.format)).FormatTo(cmd.OutOrStdout(), cli.Runs(runs))
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) { cfg.Store.Enabled = true })
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("history show", err)
	}

	format := cli.OutputFormat(historyFlags.format)
	if format == cli.FormatText {
		fmt.Fprintf(cmd.ErrOrStderr(), "run %s (%s, %s) %s: %d errors, %d warnings, %d info\n",
			run.ID, run.Trigger, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Outcome,
			run.Errors, run.Warnings, run.Infos)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.Violations(run.Violations))
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) { cfg.Store.Enabled = true })
	if err != nil {
		return err
	}
	if cfg.Store.MaxRuns == 0 && cfg.Store.MaxAge == 0 {
		return cli.NewConfigError("store", "neither max_runs nor max_age is set")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d runs\n", n)
	return nil
}
