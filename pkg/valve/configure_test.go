package valve

import (
	"errors"
	"strings"
	"testing"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
)

func TestConfigure_Builtins(t *testing.T) {
	cfg := mustConfigure(t, newSet(nil, nil, nil))

	for _, name := range []string{"blank", "datatype_label", "regex", "regex_sub"} {
		d, ok := cfg.Datatype(name)
		if !ok {
			t.Errorf("Datatype(%q) missing", name)
			continue
		}
		if !d.Builtin {
			t.Errorf("Datatype(%q).Builtin = false, want true", name)
		}
	}

	for _, name := range []string{"any", "concat", "distinct", "in", "list", "lookup", "not", "sub", "tree", "under"} {
		if !cfg.Functions().IsBuiltin(name) {
			t.Errorf("IsBuiltin(%q) = false, want true", name)
		}
	}
}

func TestConfigure_MissingTable(t *testing.T) {
	set := table.NewSet(table.New(DatatypeTable, datatypeColumns))
	_, _, err := Configure(set, Options{})
	if !errors.Is(err, ErrMissingTable) {
		t.Errorf("Configure() error = %v, want ErrMissingTable", err)
	}
}

func TestConfigure_Datatypes(t *testing.T) {
	cfg := mustConfigure(t, newSet(baseDatatypes(), nil, nil))

	d, ok := cfg.Datatype("note")
	if !ok {
		t.Fatal("Datatype(note) missing")
	}
	if d.Level != report.LevelWarn {
		t.Errorf("note level = %q, want %q", d.Level, report.LevelWarn)
	}
	if d.RowID != 5 {
		t.Errorf("note RowID = %d, want 5", d.RowID)
	}

	chain, err := cfg.Ancestors("word")
	if err != nil {
		t.Fatalf("Ancestors(word) error = %v", err)
	}
	var names []string
	for _, d := range chain {
		names = append(names, d.Name)
	}
	if got := strings.Join(names, ","); got != "word,non_space" {
		t.Errorf("Ancestors(word) = %s, want word,non_space", got)
	}
}

func TestConfigure_DatatypeErrors(t *testing.T) {
	tests := []struct {
		name string
		rows []table.Row
		cell string
		want string
	}{
		{
			"bad label",
			[]table.Row{{"datatype": "1abc"}},
			"A2",
			"a word that starts with a letter and may contain dashes and underscores",
		},
		{
			"match is not a regex",
			[]table.Row{{"datatype": "abc", "match": "abc"}},
			"C2",
			"'abc' must meet one of: blank, regex",
		},
		{
			"replace is not a substitution",
			[]table.Row{{"datatype": "abc", "replace": "/a/"}},
			"F2",
			"'/a/' must meet one of: blank, regex_sub",
		},
		{
			"bad level",
			[]table.Row{{"datatype": "abc", "level": "fatal"}},
			"D2",
			"'fatal' must be one of: ERROR, WARN, INFO",
		},
		{
			"unknown parent",
			[]table.Row{{"datatype": "abc", "parent": "nope"}},
			"B2",
			"unrecognized parent datatype 'nope'",
		},
		{
			"parent cycle",
			[]table.Row{{"datatype": "abc", "parent": "def"}, {"datatype": "def", "parent": "abc"}},
			"B2",
			`datatype "abc" has a cyclic parent chain`,
		},
		{
			"duplicate",
			[]table.Row{{"datatype": "abc"}, {"datatype": "abc"}},
			"A3",
			"duplicate datatype 'abc'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, vs, err := Configure(newSet(tt.rows, nil, nil), Options{})
			if err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			if cfg != nil {
				t.Fatal("Configure() accepted a bad datatype table")
			}
			if len(vs) == 0 {
				t.Fatal("Configure() returned no violations")
			}
			v := vs[0]
			if v.Table != DatatypeTable || v.Cell != tt.cell || v.Message != tt.want {
				t.Errorf("violation = %s:%s %q, want datatype:%s %q", v.Table, v.Cell, v.Message, tt.cell, tt.want)
			}
		})
	}
}

func TestConfigure_LevelAnyCase(t *testing.T) {
	rows := []table.Row{
		{"datatype": "a", "level": "Warn"},
		{"datatype": "b", "level": "error"},
		{"datatype": "c", "level": "INFO"},
	}
	cfg := mustConfigure(t, newSet(rows, nil, nil))

	want := map[string]report.Level{"a": report.LevelWarn, "b": report.LevelError, "c": report.LevelInfo}
	for name, level := range want {
		d, ok := cfg.Datatype(name)
		if !ok {
			t.Fatalf("Datatype(%q) not found", name)
		}
		if d.Level != level {
			t.Errorf("Datatype(%q).Level = %q, want %q", name, d.Level, level)
		}
	}
}

func TestConfigure_FieldErrors(t *testing.T) {
	data := table.New("rows", []string{"x", "y"})

	tests := []struct {
		name      string
		fields    []table.Row
		cell      string
		want      string
		wantMatch bool // compare by prefix
	}{
		{"unknown table", []table.Row{field("nope", "x", "word")}, "A2", "unrecognized table 'nope'", false},
		{"unknown column", []table.Row{field("rows", "z", "word")}, "B2", "unrecognized column 'z' for table 'rows'", false},
		{"unknown datatype", []table.Row{field("rows", "x", "wrd")}, "C2", "unrecognized datatype 'wrd'", false},
		{"unknown function", []table.Row{field("rows", "x", "foo(word)")}, "C2", "unrecognized function 'foo'", false},
		{"syntax", []table.Row{field("rows", "x", "any(word")}, "C2", "unable to parse condition", true},
		{"blank condition", []table.Row{field("rows", "x", "")}, "C2", "value must not be blank", false},
		{
			"duplicate",
			[]table.Row{field("rows", "x", "word"), field("rows", "x", "blank")},
			"B3", "multiple conditions defined for rows.x", false,
		},
		{"wrong argument", []table.Row{field("rows", "x", "sub(word, word)")}, "C2", "sub argument 1 must be a regex substitution", false},
		{"too many arguments", []table.Row{field("rows", "x", "list(a, word, word)")}, "C2", "list expects 2 arguments, but 3 were given", false},
		{"nested tree", []table.Row{field("rows", "x", "any(blank, tree(y))")}, "C2", "tree can only be used as the whole condition of a field", false},
		{"tree on wildcard", []table.Row{field("*", "x", "tree(y)")}, "C2", "tree cannot be bound to every table", false},
		{"undefined tree", []table.Row{field("rows", "x", "under(rows.y, a)")}, "C2", "under argument 1 rows.y must be defined before using in a function", false},
		{"undefined base tree", []table.Row{field("rows", "y", "tree(x, rows.nope)")}, "C2", "tree argument 2 rows.nope must be defined before using in a function", false},
		{"bad field", []table.Row{field("rows", "x", "in(rows.z)")}, "C2", "in argument 1 unrecognized column 'z' for table 'rows'", false},
		{"bad lookup", []table.Row{field("rows", "x", "lookup(nope, x, y)")}, "C2", "lookup argument 1 must be a table in inputs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, vs, err := Configure(newSet(baseDatatypes(), tt.fields, nil, data), Options{})
			if err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			if cfg != nil {
				t.Fatal("Configure() accepted a bad field table")
			}
			if len(vs) != 1 {
				t.Fatalf("Configure() = %d violations, want 1: %v", len(vs), vs)
			}
			v := vs[0]
			if v.Table != FieldTable || v.Cell != tt.cell {
				t.Errorf("violation at %s:%s, want field:%s", v.Table, v.Cell, tt.cell)
			}
			if tt.wantMatch {
				if !strings.HasPrefix(v.Message, tt.want) {
					t.Errorf("message = %q, want prefix %q", v.Message, tt.want)
				}
			} else if v.Message != tt.want {
				t.Errorf("message = %q, want %q", v.Message, tt.want)
			}
		})
	}
}

func TestConfigure_Suggestion(t *testing.T) {
	data := table.New("rows", []string{"x"})
	_, vs, err := Configure(newSet(baseDatatypes(), []table.Row{field("rows", "x", "any(blank, wrd)")}, nil, data), Options{})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("Configure() = %d violations, want 1", len(vs))
	}
	if want := "did you mean 'word'?"; vs[0].Suggestion != want {
		t.Errorf("Suggestion = %q, want %q", vs[0].Suggestion, want)
	}
}

func TestConfigure_RuleErrors(t *testing.T) {
	data := table.New("rows", []string{"x", "y"})

	tests := []struct {
		name string
		rule table.Row
		cell string
		want string
	}{
		{"unknown table", rule("nope", "x", "blank", "y", "blank", ""), "A2", "unrecognized table 'nope'"},
		{"unknown when column", rule("rows", "z", "blank", "y", "blank", ""), "B2", "unrecognized column 'z' for table 'rows'"},
		{"unknown then column", rule("rows", "x", "blank", "z", "blank", ""), "D2", "unrecognized column 'z' for table 'rows'"},
		{"bad when", rule("rows", "x", "nope", "y", "blank", ""), "C2", "unrecognized datatype 'nope'"},
		{"bad then", rule("rows", "x", "blank", "y", "in()", ""), "E2", "unable to parse condition \"in()\": in() requires at least one argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, vs, err := Configure(newSet(baseDatatypes(), nil, []table.Row{tt.rule}, data), Options{})
			if err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			if cfg != nil {
				t.Fatal("Configure() accepted a bad rule table")
			}
			if len(vs) != 1 {
				t.Fatalf("Configure() = %d violations, want 1: %v", len(vs), vs)
			}
			if v := vs[0]; v.Table != RuleTable || v.Cell != tt.cell || v.Message != tt.want {
				t.Errorf("violation = %s:%s %q, want rule:%s %q", v.Table, v.Cell, v.Message, tt.cell, tt.want)
			}
		})
	}
}

func TestConfigure_MissingColumn(t *testing.T) {
	set := table.NewSet(
		table.New(DatatypeTable, datatypeColumns),
		table.New(FieldTable, []string{"table", "condition"}),
	)
	cfg, vs, err := Configure(set, Options{})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if cfg != nil {
		t.Fatal("Configure() accepted a field table without a column header")
	}
	if len(vs) != 1 || vs[0].Cell != "1" || vs[0].Message != "missing required column 'column'" {
		t.Errorf("violations = %v, want one missing column violation", vs)
	}
}

func TestConfigure_CustomFunction(t *testing.T) {
	fn, err := FuncOf("prefix", "prefix(str)", []string{"string"}, func(ec *EvalContext, args []ast.Node, tableName, column string, rowIdx int, value string) ([]report.Violation, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("FuncOf() error = %v", err)
	}

	if _, _, err := Configure(newSet(nil, nil, nil), Options{Functions: []Function{fn, fn}}); err == nil {
		t.Error("Configure() registered the same function twice")
	}

	clash, err := FuncOf("any", "", []string{"string"}, func(*EvalContext, []ast.Node, string, string, int, string) ([]report.Violation, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("FuncOf() error = %v", err)
	}
	_, _, err = Configure(newSet(nil, nil, nil), Options{Functions: []Function{clash}})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("Configure() error = %v, want RegistrationError", err)
	}
	if want := "cannot use builtin function name 'any'"; regErr.Message != want {
		t.Errorf("Message = %q, want %q", regErr.Message, want)
	}
}
