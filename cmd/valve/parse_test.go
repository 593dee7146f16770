package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"valve-hq/valve/pkg/cli"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		text       string
		valid      bool
		normalized string
		functions  []string
	}{
		{"word", true, "word", nil},
		{"any(blank, in(code.code))", true, "any(blank, in(code.code))", []string{"any", "in"}},
		{"in(", false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := parseCondition(tt.text)
			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (error %q)", got.Valid, tt.valid, got.Error)
			}
			if !tt.valid {
				if got.Error == "" {
					t.Error("Error is empty for invalid condition")
				}
				return
			}
			if got.Normalized != tt.normalized {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tt.normalized)
			}
			if strings.Join(got.Functions, ",") != strings.Join(tt.functions, ",") {
				t.Errorf("Functions = %v, want %v", got.Functions, tt.functions)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"parse", "--format", "text", "not(blank)", "in("})
	err := rootCmd.Execute()

	var exit *cli.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("Execute() error = %v, want exit status 1", err)
	}
	out := buf.String()
	if !strings.Contains(out, "✓ not(blank)") {
		t.Errorf("output = %q, want valid condition", out)
	}
	if !strings.Contains(out, "✗ in(") {
		t.Errorf("output = %q, want invalid condition", out)
	}
}
