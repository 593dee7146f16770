package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"valve-hq/valve/pkg/table"
)

// Header is the column order of a violation table.
var Header = []string{"table", "cell", "level", "rule ID", "rule", "message", "suggestion"}

// Record returns the violation as a row in Header order.
func (v Violation) Record() []string {
	return []string{v.Table, v.Cell, string(v.Level), v.RuleID, v.Rule, v.Message, v.Suggestion}
}

// WriteFile writes violations to path. The format follows the extension:
// .json writes a JSON array, .tsv is tab separated, anything else is CSV.
func WriteFile(path string, vs []Violation) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return writeJSONFile(path, vs)
	}
	records := make([][]string, len(vs))
	for i, v := range vs {
		records[i] = v.Record()
	}
	return table.WriteFile(path, Header, records)
}

// WriteJSON encodes violations as an indented JSON array.
func WriteJSON(w io.Writer, vs []Violation) error {
	if vs == nil {
		vs = []Violation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vs)
}

func writeJSONFile(path string, vs []Violation) error {
	var sb strings.Builder
	if err := WriteJSON(&sb, vs); err != nil {
		return fmt.Errorf("failed to encode violations: %w", err)
	}
	return writeString(path, sb.String())
}

func writeString(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
