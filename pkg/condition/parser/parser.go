package parser

import (
	"fmt"
	"unicode/utf8"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
)

// Parser parses condition text into syntax trees.
type Parser struct {
	maxDepth  int // Maximum function nesting depth (default: 32)
	maxLength int // Maximum condition length in characters (default: 4096)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxDepth:  32,
		maxLength: 4096,
	}
}

// WithMaxDepth sets the maximum function nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// WithMaxLength sets the maximum accepted condition length.
func (p *Parser) WithMaxLength(length int) *Parser {
	p.maxLength = length
	return p
}

// Parse parses a condition. A condition is a bare label naming a datatype
// or a function call; any other top-level form is a syntax error.
func (p *Parser) Parse(text string) (ast.Node, error) {
	if err := p.checkLength(text); err != nil {
		return nil, err
	}

	s := newState(text, p.maxDepth)
	s.skipSpace()
	if s.eof() {
		return nil, s.fail("empty condition")
	}

	node, err := s.parseArgument()
	if err != nil {
		return nil, err
	}
	switch node.(type) {
	case *ast.StringLiteral, *ast.FunctionCall:
	default:
		s.pos = 0
		return nil, s.fail("a condition must be a datatype name or a function call")
	}

	s.skipSpace()
	if !s.eof() {
		return nil, s.fail(fmt.Sprintf("unexpected %q", s.peek()))
	}
	return node, nil
}

// ParseRegex parses a standalone regex literal, as found in the match and
// replace columns of the datatype table.
func (p *Parser) ParseRegex(text string) (*ast.Regex, error) {
	if err := p.checkLength(text); err != nil {
		return nil, err
	}

	s := newState(text, p.maxDepth)
	s.skipSpace()

	var (
		re  *ast.Regex
		err error
	)
	switch {
	case s.peek() == '/':
		re, err = s.parseRegex(false)
	case s.peek() == 's' && s.peekAt(1) == '/':
		s.pos++
		re, err = s.parseRegex(true)
	default:
		return nil, s.fail("expected a regex literal")
	}
	if err != nil {
		return nil, err
	}

	s.skipSpace()
	if !s.eof() {
		return nil, s.fail(fmt.Sprintf("unexpected %q", s.peek()))
	}
	return re, nil
}

func (p *Parser) checkLength(text string) error {
	if p.maxLength > 0 && utf8.RuneCountInString(text) > p.maxLength {
		return &condErrors.Error{
			Type:    condErrors.ErrorTypeSyntax,
			Message: fmt.Sprintf("condition length exceeds maximum %d characters", p.maxLength),
		}
	}
	return nil
}

var defaultParser = NewParser()

// Parse parses text with the default parser.
func Parse(text string) (ast.Node, error) {
	return defaultParser.Parse(text)
}

// ParseRegex parses a regex literal with the default parser.
func ParseRegex(text string) (*ast.Regex, error) {
	return defaultParser.ParseRegex(text)
}
