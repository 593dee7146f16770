package parser

import (
	"fmt"
	"strconv"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
)

// state is a single parse over one condition.
type state struct {
	text     string
	src      []rune
	pos      int
	depth    int
	maxDepth int
}

func newState(text string, maxDepth int) *state {
	return &state{text: text, src: []rune(text), maxDepth: maxDepth}
}

func (s *state) eof() bool {
	return s.pos >= len(s.src)
}

func (s *state) peek() rune {
	return s.peekAt(0)
}

func (s *state) peekAt(n int) rune {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *state) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// fail builds a syntax error positioned at the current offset.
func (s *state) fail(msg string) *condErrors.Error {
	err := &condErrors.Error{
		Type:     condErrors.ErrorTypeSyntax,
		Message:  fmt.Sprintf("unable to parse condition %q: %s", s.text, msg),
		Location: ast.Location{Offset: s.pos + 1},
	}
	return condErrors.WithContext(err, s.text)
}

func (s *state) parseArgument() (ast.Node, error) {
	if s.eof() {
		return nil, s.fail("unexpected end of condition")
	}

	switch {
	case s.peek() == '/':
		return s.parseRegex(false)
	case s.peek() == 's' && s.peekAt(1) == '/':
		s.pos++
		return s.parseRegex(true)
	}

	label, quoted, err := s.parseLabel()
	if err != nil {
		return nil, err
	}

	switch s.peek() {
	case '(':
		if quoted {
			return nil, s.fail("a function name cannot be quoted")
		}
		s.pos++
		return s.parseCall(label)
	case '.':
		s.pos++
		column, _, err := s.parseLabel()
		if err != nil {
			return nil, err
		}
		return &ast.FieldRef{Table: label, Column: column}, nil
	case '=':
		if quoted {
			return nil, s.fail("a named argument key cannot be quoted")
		}
		s.pos++
		value, _, err := s.parseLabel()
		if err != nil {
			return nil, err
		}
		return &ast.NamedArg{Key: label, Value: value}, nil
	}
	return &ast.StringLiteral{Value: label}, nil
}

func (s *state) parseCall(name string) (ast.Node, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.maxDepth > 0 && s.depth > s.maxDepth {
		return nil, s.fail(fmt.Sprintf("functions nested deeper than %d", s.maxDepth))
	}

	call := &ast.FunctionCall{Name: name}
	s.skipSpace()
	if s.peek() == ')' {
		return nil, s.fail(fmt.Sprintf("%s() requires at least one argument", name))
	}

	for {
		s.skipSpace()
		arg, err := s.parseArgument()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		s.skipSpace()
		switch {
		case s.eof():
			return nil, s.fail(fmt.Sprintf("missing ')' to close %s(", name))
		case s.peek() == ',':
			s.pos++
		case s.peek() == ')':
			s.pos++
			return call, nil
		default:
			return nil, s.fail(fmt.Sprintf("expected ',' or ')' but found %q", s.peek()))
		}
	}
}

// parseLabel reads a bare or quoted label.
func (s *state) parseLabel() (string, bool, error) {
	if s.peek() == '"' {
		v, err := s.parseQuoted()
		return v, true, err
	}

	start := s.pos
	for !s.eof() && ast.IsLabelRune(s.peek()) {
		s.pos++
	}
	if s.pos == start {
		if s.eof() {
			return "", false, s.fail("unexpected end of condition")
		}
		return "", false, s.fail(fmt.Sprintf("unexpected %q", s.peek()))
	}
	return string(s.src[start:s.pos]), false, nil
}

func (s *state) parseQuoted() (string, error) {
	s.pos++ // opening quote
	var sb strings.Builder
	for {
		if s.eof() {
			return "", s.fail("unterminated string")
		}
		r := s.peek()
		switch r {
		case '"':
			s.pos++
			return sb.String(), nil
		case '\n':
			return "", s.fail("newline in quoted string")
		case '\\':
			s.pos++
			if s.eof() {
				return "", s.fail("unterminated string")
			}
			e, err := s.parseEscape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(e)
		default:
			sb.WriteRune(r)
			s.pos++
		}
	}
}

func (s *state) parseEscape() (rune, error) {
	r := s.peek()
	s.pos++
	switch r {
	case '"', '\\', '/':
		return r, nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		if s.pos+4 > len(s.src) {
			return 0, s.fail("truncated \\u escape")
		}
		code, err := strconv.ParseUint(string(s.src[s.pos:s.pos+4]), 16, 32)
		if err != nil {
			return 0, s.fail("invalid \\u escape")
		}
		s.pos += 4
		return rune(code), nil
	}
	s.pos--
	return 0, s.fail(fmt.Sprintf("invalid escape \\%c", r))
}

// parseRegex reads /pattern/flags or, for substitutions, /pattern/replace/flags.
// The leading s of a substitution has already been consumed.
func (s *state) parseRegex(sub bool) (*ast.Regex, error) {
	s.pos++ // opening slash
	pattern, err := s.readRegexPart()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, s.fail("empty regex pattern")
	}

	re := &ast.Regex{Pattern: pattern, Substitution: sub}
	if sub {
		if re.Replace, err = s.readRegexPart(); err != nil {
			return nil, err
		}
	}

	start := s.pos
	for !s.eof() && s.peek() >= 'a' && s.peek() <= 'z' {
		s.pos++
	}
	re.Flags = string(s.src[start:s.pos])
	return re, nil
}

// readRegexPart reads up to the next unescaped slash and consumes it.
// Escapes are kept verbatim.
func (s *state) readRegexPart() (string, error) {
	start := s.pos
	for {
		if s.eof() {
			return "", s.fail("unterminated regex")
		}
		switch s.peek() {
		case '\\':
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
		case '/':
			part := string(s.src[start:s.pos])
			s.pos++
			return part, nil
		case '\n':
			return "", s.fail("newline in regex")
		default:
			s.pos++
		}
	}
}
