package valve

import (
	"fmt"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
)

// isExpression reports whether a concat part is evaluated rather than
// matched literally.
func (c *Config) isExpression(arg ast.Node) bool {
	switch x := arg.(type) {
	case *ast.FunctionCall:
		return true
	case *ast.StringLiteral:
		_, ok := c.datatypes[x.Value]
		return ok
	}
	return false
}

// validateConcat splits value on the literal parts, in order, and checks
// each piece between literals against the expressions written there.
func validateConcat(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	var (
		out     []report.Violation
		pending []ast.Node
		rem     = value
		stray   bool
	)

	flush := func(segment string) error {
		if len(pending) == 0 {
			if segment != "" {
				stray = true
			}
			return nil
		}
		for _, cond := range pending {
			vs, err := ec.Validate(cond, table, column, rowIdx, segment)
			if err != nil {
				return err
			}
			out = append(out, vs...)
		}
		pending = nil
		return nil
	}

	for _, arg := range args {
		if ec.Config.isExpression(arg) {
			pending = append(pending, arg)
			continue
		}
		lit, ok := arg.(*ast.StringLiteral)
		if !ok {
			return nil, fmt.Errorf("%w: concat part %s", ErrInvalidCondition, ast.String(arg))
		}
		i := strings.Index(rem, lit.Value)
		if i < 0 {
			msg := fmt.Sprintf("'%s' must contain substring '%s'", value, lit.Value)
			return []report.Violation{ec.Violation(table, column, rowIdx, msg)}, nil
		}
		if err := flush(rem[:i]); err != nil {
			return nil, err
		}
		rem = rem[i+len(lit.Value):]
	}
	if err := flush(rem); err != nil {
		return nil, err
	}

	if stray {
		msg := fmt.Sprintf("'%s' must match %s", value, ast.String(&ast.FunctionCall{Name: "concat", Args: args}))
		out = append([]report.Violation{ec.Violation(table, column, rowIdx, msg)}, out...)
	}
	return out, nil
}

// validateList splits value on the separator and checks every item.
func validateList(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	sep, ok := args[0].(*ast.StringLiteral)
	if !ok || sep.Value == "" {
		return nil, fmt.Errorf("%w: list separator %s", ErrInvalidCondition, ast.String(args[0]))
	}

	var out []report.Violation
	for _, item := range strings.Split(value, sep.Value) {
		vs, err := ec.Validate(args[1], table, column, rowIdx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}

// validateSub applies the substitution and checks the result.
func validateSub(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	r, ok := args[0].(*ast.Regex)
	if !ok || !r.Substitution {
		return nil, fmt.Errorf("%w: sub requires a substitution, got %s", ErrInvalidCondition, ast.String(args[0]))
	}
	re, err := ec.Config.compile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	return ec.Validate(args[1], table, column, rowIdx, r.Substitute(re, value))
}
