package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"valve-hq/valve/pkg/cli"
	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/valve"
)

func TestReportResult(t *testing.T) {
	warn := report.Violation{Table: "rows", Cell: "A2", Level: report.LevelWarn, Message: "lowercase text"}
	fail := report.Violation{Table: "rows", Cell: "A3", Level: report.LevelError, Message: "must be a word"}

	tests := []struct {
		name     string
		vs       []report.Violation
		failOn   string
		minLevel string
		wantExit bool
		wantOut  []string
		hideOut  []string
	}{
		{"pass", nil, "ERROR", "INFO", false, nil, nil},
		{"warnings pass", []report.Violation{warn}, "ERROR", "INFO", false, []string{"lowercase text"}, nil},
		{"warnings fail on WARN", []report.Violation{warn}, "WARN", "INFO", true, nil, nil},
		{"error fails", []report.Violation{warn, fail}, "ERROR", "ERROR", true, []string{"must be a word"}, []string{"lowercase text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Validation.FailOn = tt.failOn
			cfg.Output.MinLevel = tt.minLevel

			stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
			err := reportResult(stdout, stderr, cfg, &valve.Result{Violations: tt.vs, Tables: []string{"rows"}, Duration: time.Second})

			var exit *cli.ExitError
			if got := errors.As(err, &exit); got != tt.wantExit {
				t.Errorf("exit = %v (err %v), want %v", got, err, tt.wantExit)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("stdout = %q, want %q", stdout.String(), want)
				}
			}
			for _, hide := range tt.hideOut {
				if strings.Contains(stdout.String(), hide) {
					t.Errorf("stdout = %q, should not contain %q", stdout.String(), hide)
				}
			}
			if !strings.Contains(stderr.String(), "in 1 tables") {
				t.Errorf("stderr = %q, want summary", stderr.String())
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"datatype.tsv": "datatype\tparent\tmatch\tlevel\tdescription\treplace\n" +
			"word\t\t/^\\w+$/\t\ta word\t\n",
		"field.tsv": "table\tcolumn\tcondition\n" +
			"rows\tname\tword\n",
		"rows.tsv": "name\nfine\nnot fine\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	output := filepath.Join(t.TempDir(), "problems.csv")

	rootCmd.SetErr(&bytes.Buffer{})
	defer rootCmd.SetErr(nil)
	rootCmd.SetArgs([]string{"validate", "--log-level", "error", "-r", "2", "-o", output, dir})
	err := rootCmd.Execute()

	var exit *cli.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("Execute() error = %v, want exit status 1", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want header and one problem:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[1], "rows,A3,ERROR,") {
		t.Errorf("problem = %q, want rows A3 error", lines[1])
	}
}
