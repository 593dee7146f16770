package valve

import (
	"testing"

	"valve-hq/valve/pkg/condition/parser"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
)

var (
	datatypeColumns = []string{"datatype", "parent", "match", "level", "description", "replace"}
	fieldColumns    = []string{"table", "column", "condition"}
	ruleColumns     = []string{"table", "when column", "when condition", "then column", "then condition", "level", "description"}
)

// baseDatatypes defines non_space and its child word.
func baseDatatypes() []table.Row {
	return []table.Row{
		{"datatype": "non_space", "match": `/^\S*$/`, "description": "text without whitespace", "replace": `s/\s+//g`},
		{"datatype": "word", "parent": "non_space", "match": `/^\w+$/`, "description": "a word"},
		{"datatype": "anything"},
		{"datatype": "note", "match": `/^[a-z ]*$/`, "level": "warn", "description": "lowercase text"},
	}
}

func field(tableName, column, condition string) table.Row {
	return table.Row{"table": tableName, "column": column, "condition": condition}
}

func rule(tableName, whenColumn, when, thenColumn, then, description string) table.Row {
	return table.Row{
		"table":          tableName,
		"when column":    whenColumn,
		"when condition": when,
		"then column":    thenColumn,
		"then condition": then,
		"description":    description,
	}
}

// newSet builds the configuration tables followed by the data tables.
// A nil rules slice leaves out the rule table.
func newSet(datatypes, fields, rules []table.Row, data ...*table.Table) *table.Set {
	tables := []*table.Table{
		table.New(DatatypeTable, datatypeColumns, datatypes...),
		table.New(FieldTable, fieldColumns, fields...),
	}
	if rules != nil {
		tables = append(tables, table.New(RuleTable, ruleColumns, rules...))
	}
	return table.NewSet(append(tables, data...)...)
}

func mustConfigure(t *testing.T, set *table.Set) *Config {
	t.Helper()
	cfg, vs, err := Configure(set, Options{})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if cfg == nil {
		t.Fatalf("Configure() rejected configuration: %v", vs)
	}
	return cfg
}

// check parses cond and evaluates it against value in row rowIdx of
// tableName.column.
func check(t *testing.T, cfg *Config, cond, tableName, column string, rowIdx int, value string) []report.Violation {
	t.Helper()
	n, err := parser.Parse(cond)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", cond, err)
	}
	vs, err := cfg.ValidateCondition(n, tableName, column, rowIdx, value)
	if err != nil {
		t.Fatalf("ValidateCondition(%q, %q) error = %v", cond, value, err)
	}
	return vs
}

func messages(vs []report.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}
