package valve

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
)

func TestValidate_BlankRule(t *testing.T) {
	rows := table.New("rows", []string{"x", "y"},
		table.Row{"x": "a", "y": ""},
		table.Row{"x": "", "y": "b"},
	)
	set := newSet(baseDatatypes(), nil, []table.Row{
		rule("rows", "x", "blank", "y", "blank", "y must be blank when x is"),
	}, rows)

	result, err := Validate(t.Context(), set, Options{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.ConfigFailed {
		t.Fatalf("Validate() rejected configuration: %v", result.Violations)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Validate() = %d violations, want 1: %v", len(result.Violations), result.Violations)
	}

	want := report.Violation{
		Table:   "rows",
		Cell:    "B3",
		Level:   report.LevelError,
		Message: "because '' is 'blank', an empty string",
		Rule:    "y must be blank when x is",
		RuleID:  "rule:2",
	}
	if got := result.Violations[0]; got != want {
		t.Errorf("violation = %+v, want %+v", got, want)
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
}

func TestValidate_RuleLevel(t *testing.T) {
	rows := table.New("rows", []string{"x", "y"}, table.Row{"x": "", "y": "b"})
	r := rule("rows", "x", "blank", "y", "blank", "")
	r["level"] = "info"

	result, err := Validate(t.Context(), newSet(baseDatatypes(), nil, []table.Row{r}, rows), Options{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Validate() = %d violations, want 1", len(result.Violations))
	}
	if got := result.Violations[0].Level; got != report.LevelInfo {
		t.Errorf("Level = %q, want %q", got, report.LevelInfo)
	}
	if result.HasErrors() {
		t.Error("HasErrors() = true, want false")
	}
}

func TestValidate_Lookup(t *testing.T) {
	codes := table.New("codes", []string{"code", "name"},
		table.Row{"code": "a", "name": "Alpha"},
		table.Row{"code": "b", "name": "Beta"},
	)
	rows := table.New("rows", []string{"code", "name"},
		table.Row{"code": "a", "name": "Alpha"},
		table.Row{"code": "b", "name": "Bravo"},
		table.Row{"code": "c", "name": "Charlie"},
	)
	set := newSet(baseDatatypes(), nil, []table.Row{
		rule("rows", "code", "not(blank)", "name", "lookup(codes, code, name)", ""),
	}, codes, rows)

	result, err := Validate(t.Context(), set, Options{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	got := messages(result.Violations)
	want := []string{
		"because 'b' is 'not(blank)', 'Bravo' must be 'Beta'",
		"because 'c' is 'not(blank)', 'c' must be present in codes.code",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("messages = %q, want %q", got, want)
	}
	if s := result.Violations[0].Suggestion; s != "Beta" {
		t.Errorf("Suggestion = %q, want %q", s, "Beta")
	}
}

func TestValidate_FieldsAndWildcard(t *testing.T) {
	rows := table.New("rows", []string{"id", "name"},
		table.Row{"id": "1", "name": "ok"},
		table.Row{"id": "", "name": "not ok"},
	)
	other := table.New("other", []string{"id"},
		table.Row{"id": ""},
	)
	set := newSet(baseDatatypes(), []table.Row{
		field("rows", "id", "word"),
		field("*", "id", "not(blank)"),
		field("rows", "name", "word"),
	}, nil, rows, other)

	result, err := Validate(t.Context(), set, Options{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	var got []string
	for _, v := range result.Violations {
		got = append(got, fmt.Sprintf("%s:%s %s", v.Table, v.Cell, v.RuleID))
	}
	want := []string{
		"rows:A3 field:2",
		"rows:B3 field:4",
		"rows:B3 field:4",
		"other:A2 field:3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("violations = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(result.Tables, []string{"rows", "other"}) {
		t.Errorf("Tables = %q, want [rows other]", result.Tables)
	}
}

func TestValidate_ConfigFailed(t *testing.T) {
	rows := table.New("rows", []string{"x"}, table.Row{"x": "a b"})
	set := newSet(baseDatatypes(), []table.Row{field("rows", "x", "wrd")}, nil, rows)

	result, err := Validate(t.Context(), set, Options{})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.ConfigFailed || result.Config != nil {
		t.Error("Validate() should report a rejected configuration")
	}
	for _, v := range result.Violations {
		if v.Table != FieldTable {
			t.Errorf("data was validated: %v", v)
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	build := func() *table.Set {
		rows := table.New("rows", []string{"name", "kind"},
			table.Row{"name": "a", "kind": "x"},
			table.Row{"name": "b", "kind": "y y"},
			table.Row{"name": "a", "kind": ""},
		)
		return newSet(baseDatatypes(), []table.Row{
			field("rows", "name", "distinct(word)"),
			field("rows", "kind", `any(blank, in("x", "z"))`),
		}, []table.Row{
			rule("rows", "kind", "not(blank)", "name", "word", "named"),
		}, rows)
	}

	first, err := Validate(t.Context(), build(), Options{Parallelism: 4})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	second, err := Validate(t.Context(), build(), Options{Parallelism: 4})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(first.Violations) == 0 {
		t.Fatal("Validate() found no violations")
	}
	if !reflect.DeepEqual(first.Violations, second.Violations) {
		t.Errorf("runs differ:\n%v\n%v", first.Violations, second.Violations)
	}
}

func TestValidate_Distinct(t *testing.T) {
	rows := table.New("rows", []string{"x"},
		table.Row{"x": "a b"},
		table.Row{"x": "ok"},
		table.Row{"x": "c d"},
		table.Row{"x": "e-f"},
	)
	set := newSet(baseDatatypes(), []table.Row{field("rows", "x", "word")}, nil, rows)

	result, err := Validate(t.Context(), set, Options{Distinct: true})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(result.Distinct) != 1 {
		t.Fatalf("Distinct = %d tables, want 1", len(result.Distinct))
	}
	dt := result.Distinct[0].Table
	if dt.Name != "rows_distinct" || dt.Len() != 1 {
		t.Errorf("distinct table = %s with %d rows, want rows_distinct with 1", dt.Name, dt.Len())
	}

	var got []string
	for _, v := range result.Violations {
		got = append(got, v.Table+":"+v.Cell+" "+v.Message)
	}
	want := []string{
		"rows_distinct:A2 a word",
		"rows_distinct:A2 text without whitespace",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("violations = %q, want %q", got, want)
	}
}

func TestValidate_CustomFunction(t *testing.T) {
	prefix, err := FuncOf("prefix", "prefix(str)", []string{"string"},
		func(ec *EvalContext, args []ast.Node, tableName, column string, rowIdx int, value string) ([]report.Violation, error) {
			p := args[0].(*ast.StringLiteral).Value
			if strings.HasPrefix(value, p) {
				return nil, nil
			}
			return []report.Violation{ec.Violation(tableName, column, rowIdx, fmt.Sprintf("'%s' must start with '%s'", value, p))}, nil
		})
	if err != nil {
		t.Fatalf("FuncOf() error = %v", err)
	}

	rows := table.New("rows", []string{"id"},
		table.Row{"id": "ex:1"},
		table.Row{"id": "1"},
	)
	set := newSet(baseDatatypes(), []table.Row{field("rows", "id", `prefix("ex:")`)}, nil, rows)

	result, err := Validate(t.Context(), set, Options{Functions: []Function{prefix}})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	got := messages(result.Violations)
	if want := []string{"'1' must start with 'ex:'"}; !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %q, want %q", got, want)
	}
}

func TestValidate_LookupInWhen(t *testing.T) {
	codes := table.New("codes", []string{"code", "name"}, table.Row{"code": "a", "name": "Alpha"})
	rows := table.New("rows", []string{"code", "name"}, table.Row{"code": "a", "name": "Alpha"})
	set := newSet(baseDatatypes(), nil, []table.Row{
		rule("rows", "code", "lookup(codes, code, name)", "name", "blank", ""),
	}, codes, rows)

	_, err := Validate(t.Context(), set, Options{})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Validate() error = %v, want ErrPrecondition", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Column != "code" {
		t.Errorf("Validate() error = %v, want EvaluationError at rows.code", err)
	}
}

func TestValidate_EvaluationFault(t *testing.T) {
	broken, err := FuncOf("broken", "", []string{"string"},
		func(*EvalContext, []ast.Node, string, string, int, string) ([]report.Violation, error) {
			return nil, ErrPrecondition
		})
	if err != nil {
		t.Fatalf("FuncOf() error = %v", err)
	}
	rows := table.New("rows", []string{"id"}, table.Row{"id": "1"})
	set := newSet(nil, []table.Row{field("rows", "id", "broken(x)")}, nil, rows)

	_, err = Validate(t.Context(), set, Options{Functions: []Function{broken}})
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Validate() error = %v, want EvaluationError", err)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Validate() error = %v, want ErrPrecondition", err)
	}
	if evalErr.Table != "rows" || evalErr.Column != "id" || evalErr.Condition != "broken(x)" {
		t.Errorf("EvaluationError = %+v", evalErr)
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	tables []string
	runs   int
}

func (o *recordingObserver) ObserveTable(name string, _ []report.Violation, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tables = append(o.tables, name)
}

func (o *recordingObserver) ObserveRun(*Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs++
}

func TestValidate_Observer(t *testing.T) {
	a := table.New("a", []string{"x"}, table.Row{"x": "1"})
	b := table.New("b", []string{"x"}, table.Row{"x": "2"})
	obs := &recordingObserver{}

	_, err := Validate(t.Context(), newSet(nil, nil, nil, a, b), Options{Observer: obs, Parallelism: 2})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(obs.tables) != 2 {
		t.Errorf("observed %d tables, want 2", len(obs.tables))
	}
	if obs.runs != 1 {
		t.Errorf("observed %d runs, want 1", obs.runs)
	}
}

func TestObservers(t *testing.T) {
	first, second := &recordingObserver{}, &recordingObserver{}
	obs := Observers{first, nil, second}

	obs.ObserveTable("rows", nil, time.Millisecond)
	obs.ObserveRun(&Result{})

	for i, o := range []*recordingObserver{first, second} {
		if len(o.tables) != 1 || o.tables[0] != "rows" {
			t.Errorf("observer %d tables = %v, want [rows]", i, o.tables)
		}
		if o.runs != 1 {
			t.Errorf("observer %d runs = %d, want 1", i, o.runs)
		}
	}
}
