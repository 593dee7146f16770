package store

import (
	"fmt"
	"strconv"
	"time"

	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/valve"
)

// Run is one recorded validation run.
type Run struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Trigger     string // "cli", "watch" or "schedule"
	Inputs      []string
	Fingerprint uint64
	Outcome     string
	Errors      int
	Warnings    int
	Infos       int

	// Violations is only populated by Get.
	Violations []report.Violation
}

// NewRun summarizes a validation result under the given run ID. The
// violations are kept for Record to store.
func NewRun(id, trigger string, inputs []string, fingerprint uint64, started time.Time, result *valve.Result) *Run {
	counts := report.CountByLevel(result.Violations)
	return &Run{
		ID:          id,
		StartedAt:   started,
		Duration:    result.Duration,
		Trigger:     trigger,
		Inputs:      inputs,
		Fingerprint: fingerprint,
		Outcome:     result.Outcome(),
		Errors:      counts[report.LevelError],
		Warnings:    counts[report.LevelWarn],
		Infos:       counts[report.LevelInfo],
		Violations:  result.Violations,
	}
}

// Total returns the number of violations in the run.
func (r *Run) Total() int {
	return r.Errors + r.Warnings + r.Infos
}

// FormatFingerprint renders a fingerprint as fixed-width hex. SQLite
// integers are signed, so fingerprints are stored as text.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// ParseFingerprint reads a fingerprint written by FormatFingerprint.
func ParseFingerprint(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
