package valve

import (
	"fmt"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
)

// EvalContext is what a function sees while it evaluates a cell.
type EvalContext struct {
	Config *Config

	// Rule is the rule whose then-condition is being evaluated, or nil
	// when evaluating a field condition.
	Rule *Rule
}

// Validate evaluates cond against value, located at column of row rowIdx
// in table.
func (ec *EvalContext) Validate(cond ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	switch x := cond.(type) {
	case *ast.StringLiteral:
		return ec.Config.validateDatatype(x.Value, table, column, rowIdx, value)
	case *ast.FunctionCall:
		fn, ok := ec.Config.functions.Lookup(x.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, x.Name)
		}
		return fn.Validate(ec, x.Args, table, column, rowIdx, value)
	default:
		return nil, fmt.Errorf("%w: %s is not a datatype or function call", ErrInvalidCondition, ast.String(cond))
	}
}

// Violation builds an ERROR violation at the given cell.
func (ec *EvalContext) Violation(table, column string, rowIdx int, message string) report.Violation {
	return ec.Config.violation(table, column, rowIdx, message)
}

// ValidateCondition evaluates cond against a single value outside of any rule.
func (c *Config) ValidateCondition(cond ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	ec := &EvalContext{Config: c}
	return ec.Validate(cond, table, column, rowIdx, value)
}

// validateDatatype checks value against the named datatype and every
// ancestor. All failing patterns are reported, most specific first.
func (c *Config) validateDatatype(name, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	chain, err := c.Ancestors(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	var out []report.Violation
	for _, d := range chain {
		if d.Matches(value) {
			continue
		}
		v := c.locator.New(table, column, rowIdx, d.Level, d.message())
		if v.Level == "" {
			v.Level = report.LevelError
		}
		v.Suggestion = d.Suggest(value)
		out = append(out, v)
	}
	return out, nil
}
