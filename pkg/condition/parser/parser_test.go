package parser

import (
	"errors"
	"testing"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
)

func lit(v string) ast.Node { return &ast.StringLiteral{Value: v} }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ast.Node
	}{
		{"datatype", "label", lit("label")},
		{"padded datatype", "  label\t", lit("label")},
		{"quoted datatype", `"word"`, lit("word")},
		{
			"tree",
			`tree(Label, external.Label, split=", ")`,
			&ast.FunctionCall{Name: "tree", Args: []ast.Node{
				lit("Label"),
				&ast.FieldRef{Table: "external", Column: "Label"},
				&ast.NamedArg{Key: "split", Value: ", "},
			}},
		},
		{
			"nested",
			`any(blank, in("a b", c))`,
			&ast.FunctionCall{Name: "any", Args: []ast.Node{
				lit("blank"),
				&ast.FunctionCall{Name: "in", Args: []ast.Node{lit("a b"), lit("c")}},
			}},
		},
		{
			"regex sub",
			`sub(s/^\s+//g, word)`,
			&ast.FunctionCall{Name: "sub", Args: []ast.Node{
				&ast.Regex{Pattern: `^\s+`, Replace: "", Flags: "g", Substitution: true},
				lit("word"),
			}},
		},
		{
			"regex with escaped slash",
			`any(/a\/b/i)`,
			&ast.FunctionCall{Name: "any", Args: []ast.Node{
				&ast.Regex{Pattern: `a\/b`, Flags: "i"},
			}},
		},
		{
			"escapes in quotes",
			`in("say \"hi\"", "tab\there")`,
			&ast.FunctionCall{Name: "in", Args: []ast.Node{lit(`say "hi"`), lit("tab\there")}},
		},
		{
			"whitespace around commas",
			"in( a ,b\n, c )",
			&ast.FunctionCall{Name: "in", Args: []ast.Node{lit("a"), lit("b"), lit("c")}},
		},
		{
			"quoted field",
			`in("my table"."my column")`,
			&ast.FunctionCall{Name: "in", Args: []ast.Node{&ast.FieldRef{Table: "my table", Column: "my column"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.text, err)
			}
			if !ast.Equal(got, tt.want) {
				t.Errorf("Parse(%q) = %s, want %s", tt.text, ast.String(got), ast.String(tt.want))
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
	}{
		{"empty", "", 1},
		{"blank", "   ", 4},
		{"unclosed call", "any(a, b", 9},
		{"no arguments", "any()", 5},
		{"dangling comma", "any(a,)", 7},
		{"top level field", "table.column", 1},
		{"trailing text", "label extra", 7},
		{"unterminated string", `in("abc)`, 9},
		{"unterminated regex", "any(/abc", 9},
		{"quoted function", `"any"(a)`, 6},
		{"bad character", "in(a; b)", 5},
		{"empty regex", "any(//)", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.text)
			}

			var perr *condErrors.Error
			if !errors.As(err, &perr) {
				t.Fatalf("error type = %T, want *errors.Error", err)
			}
			if perr.Type != condErrors.ErrorTypeSyntax {
				t.Errorf("Type = %q, want %q", perr.Type, condErrors.ErrorTypeSyntax)
			}
			if perr.Location.Offset != tt.offset {
				t.Errorf("Offset = %d, want %d (%s)", perr.Location.Offset, tt.offset, perr.Message)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	conditions := []string{
		`tree(Label, external.Label, split=", ")`,
		`any(blank, in("a b", c))`,
		`list(", ", any(label, blank))`,
		`sub(s/^\s+//g, word)`,
		`concat(word, ".", integer)`,
		`under(foo.bar, "Root Node", direct=true)`,
		`distinct(label, other.column)`,
		`lookup(other, key, value)`,
		`not(/^\d+$/)`,
		`datatype_label`,
	}

	for _, text := range conditions {
		t.Run(text, func(t *testing.T) {
			node, err := Parse(text)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			printed := ast.String(node)
			if printed != text {
				t.Errorf("String(Parse(%q)) = %q", text, printed)
			}
			again, err := Parse(printed)
			if err != nil {
				t.Fatalf("Parse(printed) error = %v", err)
			}
			if !ast.Equal(node, again) {
				t.Errorf("reparsed tree differs for %q", text)
			}
		})
	}
}

func TestParser_WithMaxDepth(t *testing.T) {
	p := NewParser().WithMaxDepth(2)

	if _, err := p.Parse("not(not(a))"); err != nil {
		t.Errorf("depth 2 error = %v, want nil", err)
	}
	if _, err := p.Parse("not(not(not(a)))"); err == nil {
		t.Error("depth 3 expected error")
	}
}

func TestParser_WithMaxLength(t *testing.T) {
	p := NewParser().WithMaxLength(5)
	if _, err := p.Parse("abcdef"); err == nil {
		t.Error("expected length error")
	}
}

func TestParseRegex(t *testing.T) {
	tests := []struct {
		text    string
		want    ast.Regex
		wantErr bool
	}{
		{text: "/^[a-z]+$/", want: ast.Regex{Pattern: "^[a-z]+$"}},
		{text: "/abc/im", want: ast.Regex{Pattern: "abc", Flags: "im"}},
		{text: "s/_/ /g", want: ast.Regex{Pattern: "_", Replace: " ", Flags: "g", Substitution: true}},
		{text: "abc", wantErr: true},
		{text: "/abc/ x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseRegex(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegex(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if err == nil && *got != tt.want {
				t.Errorf("ParseRegex(%q) = %+v, want %+v", tt.text, *got, tt.want)
			}
		})
	}
}
