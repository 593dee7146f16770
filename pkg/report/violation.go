package report

import (
	"fmt"
	"sort"
	"strings"
)

// Level is the severity of a violation.
type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
)

// ParseLevel reads a level case-insensitively. Blank input yields
// LevelError; unknown input is an error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO":
		return LevelInfo, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// rank orders levels from most to least severe.
func (l Level) rank() int {
	switch l {
	case LevelError:
		return 0
	case LevelWarn:
		return 1
	case LevelInfo:
		return 2
	}
	return 3
}

// Violation is one reported problem with a cell.
type Violation struct {
	Table      string `json:"table"`
	Cell       string `json:"cell"`
	Level      Level  `json:"level"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Rule       string `json:"rule,omitempty"`
	RuleID     string `json:"rule_id,omitempty"`
}

// String formats the violation for terminal output.
func (v Violation) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s:%s %s", v.Level, v.Table, v.Cell, v.Message))
	if v.RuleID != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", v.RuleID))
	}
	if v.Suggestion != "" {
		sb.WriteString(fmt.Sprintf(" (suggestion: %s)", v.Suggestion))
	}
	return sb.String()
}

// HasErrors reports whether any violation is at ERROR level.
func HasErrors(vs []Violation) bool {
	for _, v := range vs {
		if v.Level == LevelError {
			return true
		}
	}
	return false
}

// CountByLevel tallies violations per level.
func CountByLevel(vs []Violation) map[Level]int {
	counts := make(map[Level]int)
	for _, v := range vs {
		counts[v.Level]++
	}
	return counts
}

// Filter returns the violations at least as severe as min.
func Filter(vs []Violation, min Level) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Level.rank() <= min.rank() {
			out = append(out, v)
		}
	}
	return out
}

// Sort orders violations by table, then row, then column, keeping the
// emission order of violations on the same cell. Table order follows
// tableOrder; tables not listed sort after, by name.
func Sort(vs []Violation, tableOrder []string) {
	pos := make(map[string]int, len(tableOrder))
	for i, name := range tableOrder {
		pos[name] = i
	}
	tableRank := func(name string) (int, string) {
		if p, ok := pos[name]; ok {
			return p, ""
		}
		return len(tableOrder), name
	}

	sort.SliceStable(vs, func(i, j int) bool {
		ri, ni := tableRank(vs[i].Table)
		rj, nj := tableRank(vs[j].Table)
		if ri != rj {
			return ri < rj
		}
		if ni != nj {
			return ni < nj
		}
		ci, rowI, okI := SplitA1(vs[i].Cell)
		cj, rowJ, okJ := SplitA1(vs[j].Cell)
		if !okI || !okJ {
			return okI && !okJ
		}
		if rowI != rowJ {
			return rowI < rowJ
		}
		return ci < cj
	})
}
