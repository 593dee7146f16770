// Package ast provides the syntax tree for VALVE condition expressions.
//
// A condition is the text found in the condition column of the field and
// rule configuration tables. It is either a bare datatype name or a
// function call whose arguments may themselves be strings, field
// references, named arguments, regular expressions or nested calls:
//
//	list(", ", any(label, blank))
//	tree(Label, external.Label, split=", ")
//	sub(s/^\s+//g, trimmed)
//
// # Core Types
//
// Node: sealed interface implemented by every node kind
//
// StringLiteral: bare or quoted label
//
// FieldRef: table.column reference
//
// NamedArg: key=value argument
//
// Regex: match (/p/f) or substitution (s/p/r/f) literal
//
// FunctionCall: name(args...)
//
// Location: table cell a condition was read from
//
// # Printing
//
// String renders any node back to canonical condition text. Parsing the
// printed text yields a structurally equal tree:
//
//	node, _ := parser.Parse(`tree(Label, external.Label, split=", ")`)
//	fmt.Println(ast.String(node)) // tree(Label, external.Label, split=", ")
package ast
