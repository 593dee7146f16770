// Package parser turns condition text into an ast.Node.
//
// The grammar is small enough for a hand-written recursive descent
// parser:
//
//	condition := ws (function | label) ws
//	function  := name "(" ws argument (ws "," ws argument)* ws ")"
//	argument  := function | field | named | regex | label
//	field     := label "." label
//	named     := name "=" label
//	regex     := "/" pattern "/" flags | "s/" pattern "/" replace "/" flags
//	label     := [A-Za-z0-9_-]+ | '"' chars '"'
//
// Failures are returned as *errors.Error values of type ErrorTypeSyntax
// whose location holds the character offset where parsing stopped.
//
//	node, err := parser.Parse(`any(blank, in("a", "b"))`)
package parser
