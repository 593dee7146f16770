package valve

import (
	"errors"
	"reflect"
	"testing"

	"valve-hq/valve/pkg/condition/parser"
	"valve-hq/valve/pkg/table"
)

func newBuiltinConfig(t *testing.T) *Config {
	t.Helper()
	items := table.New("items", []string{"name", "code", "alias"},
		table.Row{"name": "a", "code": "x1", "alias": "z"},
		table.Row{"name": "b", "code": "x2", "alias": "a"},
		table.Row{"name": "a", "code": "x3", "alias": ""},
	)
	return mustConfigure(t, newSet(baseDatatypes(), nil, nil, items))
}

func TestValidateDatatype_Inheritance(t *testing.T) {
	cfg := newBuiltinConfig(t)

	tests := []struct {
		name      string
		cond      string
		value     string
		want      []string
		wantLevel string
	}{
		{"passes", "word", "abc", nil, ""},
		{"leaf fails", "word", "a-b", []string{"a word"}, "ERROR"},
		{"parent fails too", "word", "a b", []string{"a word", "text without whitespace"}, "ERROR"},
		{"no match always passes", "anything", "a b c", nil, ""},
		{"level from datatype", "note", "ABC", []string{"lowercase text"}, "WARN"},
		{"blank", "blank", "x", []string{"an empty string"}, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := check(t, cfg, tt.cond, "items", "name", 0, tt.value)
			if got := messages(vs); !reflect.DeepEqual(got, tt.want) && !(len(got) == 0 && len(tt.want) == 0) {
				t.Errorf("messages = %q, want %q", got, tt.want)
			}
			if len(vs) > 0 && string(vs[0].Level) != tt.wantLevel {
				t.Errorf("level = %q, want %q", vs[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestValidateDatatype_Suggestion(t *testing.T) {
	cfg := newBuiltinConfig(t)

	vs := check(t, cfg, "non_space", "items", "name", 0, "a b  c")
	if len(vs) != 1 {
		t.Fatalf("got %d violations, want 1", len(vs))
	}
	if vs[0].Suggestion != "abc" {
		t.Errorf("Suggestion = %q, want %q", vs[0].Suggestion, "abc")
	}
	if vs[0].Cell != "A2" {
		t.Errorf("Cell = %q, want %q", vs[0].Cell, "A2")
	}
}

func TestBuiltinFunctions(t *testing.T) {
	cfg := newBuiltinConfig(t)

	tests := []struct {
		name  string
		cond  string
		value string
		want  []string
	}{
		{"any passes", "any(blank, word)", "abc", nil},
		{"any fails", "any(blank, word)", "a b", []string{"'a b' must meet one of: blank, word"}},
		{"not passes", "not(blank)", "abc", nil},
		{"not blank", "not(blank)", "", []string{"value must not be blank"}},
		{"not other", "not(word)", "abc", []string{"'abc' must not be 'word'"}},
		{"in literal", `in("a", "b")`, "b", nil},
		{"in field", "in(items.code)", "x2", nil},
		{"in fails", `in("a", items.code)`, "q", []string{`'q' must be in: "a", items.code`}},
		{"list passes", `list(", ", word)`, "a, b, c", nil},
		{"list fails", `list(", ", word)`, "a, b c", []string{"a word", "text without whitespace"}},
		{"sub passes", "sub(s/-//g, word)", "a-b-c", nil},
		{"sub fails", "sub(s/-//, word)", "a-b-c", []string{"a word"}},
		{"concat passes", `concat(word, ":", word)`, "ab:cd", nil},
		{"concat missing literal", `concat(word, ":", word)`, "abcd", []string{"'abcd' must contain substring ':'"}},
		{"concat bad part", `concat(word, ":", word)`, "ab:c-d", []string{"a word"}},
		{"concat stray text", `concat("x", ":")`, "x:y", []string{`'x:y' must match concat(x, ":")`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := messages(check(t, cfg, tt.cond, "items", "name", 0, tt.value))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s on %q = %q, want %q", tt.cond, tt.value, got, tt.want)
			}
		})
	}
}

func TestDistinct(t *testing.T) {
	cfg := newBuiltinConfig(t)

	tests := []struct {
		row   int
		value string
		want  []string
	}{
		{0, "a", []string{"'a' must be distinct with value(s) at: items:A4"}},
		{1, "b", nil},
		{2, "a", []string{"'a' must be distinct with value(s) at: items:A2"}},
	}
	for _, tt := range tests {
		got := messages(check(t, cfg, "distinct(word)", "items", "name", tt.row, tt.value))
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("distinct row %d = %q, want %q", tt.row, got, tt.want)
		}
	}

	got := messages(check(t, cfg, "distinct(word, items.alias)", "items", "name", 1, "b"))
	if len(got) != 0 {
		t.Errorf("distinct with extra field on unique value = %q, want none", got)
	}
	got = messages(check(t, cfg, "distinct(word, items.alias)", "items", "name", 1, "a"))
	want := []string{"'a' must be distinct with value(s) at: items:A2, items:A4, items:C3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("distinct with extra field = %q, want %q", got, want)
	}
}

func TestUnder(t *testing.T) {
	terms := table.New("terms", []string{"label", "parent"},
		table.Row{"label": "root"},
		table.Row{"label": "child", "parent": "root"},
		table.Row{"label": "leaf", "parent": "child"},
	)
	cfg := mustConfigure(t, newSet(baseDatatypes(),
		[]table.Row{field("terms", "parent", "tree(label)")}, nil, terms))

	if _, ok := cfg.Tree("terms.parent"); !ok {
		t.Fatal("tree terms.parent was not built")
	}

	tests := []struct {
		cond  string
		value string
		want  string
	}{
		{"under(terms.parent, root)", "root", ""},
		{"under(terms.parent, root)", "child", ""},
		{"under(terms.parent, root)", "leaf", ""},
		{"under(terms.parent, root)", "other", "'other' must be equal to or under 'root' from terms.parent"},
		{"under(terms.parent, child)", "root", "'root' must be equal to or under 'child' from terms.parent"},
		{"under(terms.parent, root, direct=true)", "child", ""},
		{"under(terms.parent, root, direct=true)", "leaf", "'leaf' must be a direct subclass of 'root' from terms.parent"},
		{"under(terms.parent, root, direct=true)", "root", "'root' must be a direct subclass of 'root' from terms.parent"},
	}
	for _, tt := range tests {
		vs := check(t, cfg, tt.cond, "terms", "label", 0, tt.value)
		var got string
		if len(vs) > 0 {
			got = vs[0].Message
		}
		if got != tt.want {
			t.Errorf("%s on %q = %q, want %q", tt.cond, tt.value, got, tt.want)
		}
	}
}

func TestTree_InvalidParent(t *testing.T) {
	terms := table.New("terms", []string{"label", "parent"},
		table.Row{"label": "root"},
		table.Row{"label": "child", "parent": "rot"},
	)
	cfg, vs, err := Configure(newSet(baseDatatypes(),
		[]table.Row{field("terms", "parent", "tree(label)")}, nil, terms), Options{})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if cfg == nil || len(vs) != 0 {
		t.Fatalf("Configure() rejected configuration: %v", vs)
	}

	got, err := cfg.ValidateTable(t.Context(), "terms")
	if err != nil {
		t.Fatalf("ValidateTable() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ValidateTable() = %d violations, want 1: %v", len(got), got)
	}
	v := got[0]
	if v.Cell != "B3" || v.RuleID != "field:2" {
		t.Errorf("violation at %s (%s), want B3 (field:2)", v.Cell, v.RuleID)
	}
	if want := "'rot' from terms.parent must exist in terms.label"; v.Message != want {
		t.Errorf("Message = %q, want %q", v.Message, want)
	}
}

func TestTree_BlankChild(t *testing.T) {
	terms := table.New("terms", []string{"label", "parent"},
		table.Row{"label": "root"},
		table.Row{"parent": "root"},
		table.Row{"parent": "nope"},
	)
	cfg := mustConfigure(t, newSet(baseDatatypes(),
		[]table.Row{field("terms", "parent", "tree(label)")}, nil, terms))

	got, err := cfg.ValidateTable(t.Context(), "terms")
	if err != nil {
		t.Fatalf("ValidateTable() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ValidateTable() = %d violations, want 1: %v", len(got), got)
	}
	if got[0].Cell != "B4" {
		t.Errorf("violation at %s, want B4", got[0].Cell)
	}

	tr, ok := cfg.Tree("terms.parent")
	if !ok {
		t.Fatal("Tree(terms.parent) missing")
	}
	if tr.Has("") {
		t.Error("tree registered a blank label")
	}
}

func TestTree_Cycle(t *testing.T) {
	terms := table.New("terms", []string{"label", "parent"},
		table.Row{"label": "a", "parent": "b"},
		table.Row{"label": "b", "parent": "a"},
	)
	cfg, vs, err := Configure(newSet(baseDatatypes(),
		[]table.Row{field("terms", "parent", "tree(label)")}, nil, terms), Options{})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if cfg != nil {
		t.Fatal("Configure() accepted a cyclic tree")
	}
	if len(vs) != 1 || vs[0].Table != FieldTable || vs[0].Cell != "C2" {
		t.Errorf("violations = %v, want one at field:C2", vs)
	}
}

func TestTree_Base(t *testing.T) {
	base := table.New("base", []string{"label", "parent"},
		table.Row{"label": "thing"},
	)
	terms := table.New("terms", []string{"label", "parent"},
		table.Row{"label": "widget", "parent": "thing"},
	)
	cfg := mustConfigure(t, newSet(baseDatatypes(), []table.Row{
		field("base", "parent", "tree(label)"),
		field("terms", "parent", "tree(label, base.parent)"),
	}, nil, base, terms))

	tr, ok := cfg.Tree("terms.parent")
	if !ok {
		t.Fatal("tree terms.parent was not built")
	}
	if !tr.HasAncestor("thing", "widget", true) {
		t.Error("widget should be a direct child of thing")
	}
	vs, err := cfg.ValidateTable(t.Context(), "terms")
	if err != nil {
		t.Fatalf("ValidateTable() error = %v", err)
	}
	if len(vs) != 0 {
		t.Errorf("ValidateTable() = %v, want none", vs)
	}
}

func TestLookup_RequiresRule(t *testing.T) {
	cfg := newBuiltinConfig(t)
	n, err := parser.Parse("lookup(items, name, code)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	_, err = cfg.ValidateCondition(n, "items", "code", 0, "x1")
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("ValidateCondition(lookup) error = %v, want ErrPrecondition", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	fn, err := FuncOf("custom", "", []string{"string"}, validateAny)
	if err != nil {
		t.Fatalf("FuncOf() error = %v", err)
	}
	if fn.Usage() != "custom(...)" {
		t.Errorf("Usage() = %q, want %q", fn.Usage(), "custom(...)")
	}
	if err := r.Register(fn); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(fn); err == nil {
		t.Error("Register() accepted a duplicate")
	}
	if _, ok := r.Lookup("custom"); !ok {
		t.Error("Lookup(custom) failed after Register")
	}
	if r.IsBuiltin("custom") {
		t.Error("IsBuiltin(custom) = true, want false")
	}

	shadow, _ := FuncOf("concat", "", []string{"string"}, validateAny)
	var regErr *RegistrationError
	if err := r.Register(shadow); !errors.As(err, &regErr) {
		t.Errorf("Register(concat) error = %v, want RegistrationError", err)
	}

	if _, err := FuncOf("bad", "", []string{"number"}, validateAny); err == nil {
		t.Error("FuncOf() accepted an unknown argument type")
	}
	if _, err := FuncOf("bad", "", nil, nil); err == nil {
		t.Error("FuncOf() accepted a nil validate function")
	}

	bad, _ := FuncOf("not a label", "", []string{"string"}, validateAny)
	if err := r.Register(bad); err == nil {
		t.Error("Register() accepted a name with spaces")
	}
}
