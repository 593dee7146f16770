package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
	"valve-hq/valve/pkg/condition/parser"
)

var parseFlags struct {
	format string
}

var parseCmd = &cobra.Command{
	Use:   "parse CONDITION...",
	Short: "Parse conditions and print their normalized form",
	Long: `Parse each condition and print its normalized form, its kind and the
functions it calls. Syntax errors are reported with the position of the
problem. Datatypes, tables and columns are not checked.

Examples:
  valve parse 'any(blank, in(code.code))'
  valve parse --format json 'not(blank)' 'in("a", "b"'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseFlags.format, "format", "f", "text", "output format: text, json")
}

type parseResult struct {
	Condition  string   `json:"condition"`
	Valid      bool     `json:"valid"`
	Normalized string   `json:"normalized,omitempty"`
	Kind       ast.Kind `json:"kind,omitempty"`
	Functions  []string `json:"functions,omitempty"`
	Error      string   `json:"error,omitempty"`
	Context    string   `json:"context,omitempty"`
}

func parseCondition(text string) parseResult {
	res := parseResult{Condition: text}
	n, err := parser.Parse(text)
	if err != nil {
		res.Error = err.Error()
		var ce *condErrors.Error
		if errors.As(err, &ce) {
			res.Error = ce.Message
			res.Context = condErrors.WithContext(ce, text).Context
		}
		return res
	}
	res.Valid = true
	res.Normalized = ast.String(n)
	res.Kind = n.Kind()
	res.Functions = ast.Functions(n)
	return res
}

func runParse(cmd *cobra.Command, args []string) error {
	results := make([]parseResult, len(args))
	invalid := 0
	for i, text := range args {
		results[i] = parseCondition(text)
		if !results[i].Valid {
			invalid++
		}
	}

	if err := writeParseResults(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if invalid > 0 {
		return &cli.ExitError{Code: 1, Reason: fmt.Sprintf("%d invalid conditions", invalid)}
	}
	return nil
}

func writeParseResults(w io.Writer, results []parseResult) error {
	if parseFlags.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		if !r.Valid {
			fmt.Fprintf(w, "✗ %s\n  %s\n", r.Condition, r.Error)
			if r.Context != "" {
				fmt.Fprint(w, r.Context)
			}
			continue
		}
		fmt.Fprintf(w, "✓ %s\n  kind: %s\n", r.Normalized, r.Kind)
		if len(r.Functions) > 0 {
			fmt.Fprintf(w, "  functions: %v\n", r.Functions)
		}
	}
	return nil
}
