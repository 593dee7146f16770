package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"valve-hq/valve/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "valve",
	Short: "Valve - validate tables against tabular configuration",
	Long: `Valve validates delimited (CSV/TSV) tables. The validation
configuration is itself a set of tables:

  datatype  named datatypes with regex matches, inheritance and levels
  field     a condition for every column that must satisfy one
  rule      when one column satisfies a condition, another must too

Problems are reported by table and A1 cell address, with a level,
message and, where one exists, a suggested replacement.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Validation failures exit with their own
// code without printing an error.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		os.Exit(exit.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(2)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty or missing)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (json, text, console)")
}
