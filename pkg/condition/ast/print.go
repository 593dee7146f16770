package ast

import "strings"

// String renders n as canonical condition text.
// Labels that cannot be written bare are double-quoted.
func String(n Node) string {
	var sb strings.Builder
	write(&sb, n)
	return sb.String()
}

// Label renders a single label, quoting it when required.
func Label(s string) string {
	if IsLabel(s) {
		return s
	}
	return quote(s)
}

func write(sb *strings.Builder, n Node) {
	switch x := n.(type) {
	case *StringLiteral:
		sb.WriteString(Label(x.Value))
	case *FieldRef:
		sb.WriteString(Label(x.Table))
		sb.WriteByte('.')
		sb.WriteString(Label(x.Column))
	case *NamedArg:
		sb.WriteString(x.Key)
		sb.WriteByte('=')
		sb.WriteString(Label(x.Value))
	case *Regex:
		if x.Substitution {
			sb.WriteString("s/")
			sb.WriteString(x.Pattern)
			sb.WriteByte('/')
			sb.WriteString(x.Replace)
		} else {
			sb.WriteByte('/')
			sb.WriteString(x.Pattern)
		}
		sb.WriteByte('/')
		sb.WriteString(x.Flags)
	case *FunctionCall:
		sb.WriteString(x.Name)
		sb.WriteByte('(')
		for i, arg := range x.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(sb, arg)
		}
		sb.WriteByte(')')
	case nil:
	}
}

// Strings renders each node and returns the results in order.
func Strings(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = String(n)
	}
	return out
}
