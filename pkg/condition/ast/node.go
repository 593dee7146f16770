package ast

import "strings"

// Kind identifies the concrete type of a Node.
type Kind string

const (
	KindString   Kind = "string"
	KindField    Kind = "field"
	KindNamedArg Kind = "named_arg"
	KindRegex    Kind = "regex"
	KindFunction Kind = "function"
)

// Node is a parsed condition or condition argument.
// The set of implementations is closed; type switches over Node are
// expected to handle every kind listed above.
type Node interface {
	Kind() Kind
	node()
}

// StringLiteral is a bare label or a quoted string.
// Depending on where it appears it names a datatype, a column, or
// stands for literal text.
type StringLiteral struct {
	Value string
}

// FieldRef references a column of a table, written table.column.
type FieldRef struct {
	Table  string
	Column string
}

// NamedArg is a key=value argument, such as split=", ".
type NamedArg struct {
	Key   string
	Value string
}

// Regex is a regular expression literal. Match literals are written
// /pattern/flags; substitutions are written s/pattern/replace/flags.
// Pattern and Replace keep their escaped slashes exactly as written.
type Regex struct {
	Pattern      string
	Replace      string
	Flags        string
	Substitution bool
}

// FunctionCall applies a named function to one or more arguments.
type FunctionCall struct {
	Name string
	Args []Node
}

func (*StringLiteral) Kind() Kind { return KindString }
func (*FieldRef) Kind() Kind      { return KindField }
func (*NamedArg) Kind() Kind      { return KindNamedArg }
func (*Regex) Kind() Kind         { return KindRegex }
func (*FunctionCall) Kind() Kind  { return KindFunction }

func (*StringLiteral) node() {}
func (*FieldRef) node()      {}
func (*NamedArg) node()      {}
func (*Regex) node()         {}
func (*FunctionCall) node()  {}

// Name returns the reference in table.column form.
func (f *FieldRef) Name() string {
	return f.Table + "." + f.Column
}

// Arg returns the i-th argument, or nil if there are fewer arguments.
func (c *FunctionCall) Arg(i int) Node {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// NamedArg returns the value of the first named argument with the given key.
func (c *FunctionCall) NamedArg(key string) (string, bool) {
	for _, arg := range c.Args {
		if n, ok := arg.(*NamedArg); ok && n.Key == key {
			return n.Value, true
		}
	}
	return "", false
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *StringLiteral:
		y, ok := b.(*StringLiteral)
		return ok && x.Value == y.Value
	case *FieldRef:
		y, ok := b.(*FieldRef)
		return ok && x.Table == y.Table && x.Column == y.Column
	case *NamedArg:
		y, ok := b.(*NamedArg)
		return ok && x.Key == y.Key && x.Value == y.Value
	case *Regex:
		y, ok := b.(*Regex)
		return ok && *x == *y
	case *FunctionCall:
		y, ok := b.(*FunctionCall)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// IsLabel reports whether s can be written without quotes.
func IsLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isLabelRune(r) {
			return false
		}
	}
	return true
}

func isLabelRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// IsLabelRune reports whether r may appear in an unquoted label.
func IsLabelRune(r rune) bool {
	return isLabelRune(r)
}

// quote renders s as a double-quoted string, escaping quotes and backslashes.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
