package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion := Version
	Version = "0.1.0-test"
	defer func() { Version = origVersion }()

	buf := &bytes.Buffer{}
	versionCmd.SetOut(buf)
	defer versionCmd.SetOut(nil)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	if !strings.HasPrefix(out, "Valve 0.1.0-test\n") {
		t.Errorf("output = %q, want version first", out)
	}
	for _, want := range []string{"Git Commit:", "Build Date:", "Go Version:", "OS/Arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"validate", "parse", "watch", "schedule", "history", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
