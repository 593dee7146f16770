package valve

import (
	"context"
	"fmt"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
)

// ValidateTable checks every row of the named data table against its
// field conditions and rules. Violations found while building trees over
// the table come first, followed by the row violations in row order and,
// within a row, in column order.
func (c *Config) ValidateTable(ctx context.Context, name string) ([]report.Violation, error) {
	t, ok := c.tables.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrMissingTable, name)
	}

	out := append([]report.Violation(nil), c.setup[name]...)
	fieldCtx := &EvalContext{Config: c}

	for rowIdx, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, column := range t.Columns {
			value := row[column]

			if f, ok := c.Field(name, column); ok {
				vs, err := fieldCtx.Validate(f.Condition, name, column, rowIdx, value)
				if err != nil {
					return nil, evaluationError(name, column, rowIdx, f.Condition, err)
				}
				for _, v := range vs {
					v.RuleID = f.RuleID()
					if v.Level == "" {
						v.Level = report.LevelError
					}
					out = append(out, v)
				}
			}

			for _, rule := range c.Rules(name, column) {
				vs, err := c.applyRule(rule, rowIdx, row[rule.ThenColumn], value)
				if err != nil {
					return nil, err
				}
				out = append(out, vs...)
			}
		}
	}
	return out, nil
}

// applyRule evaluates the then-condition of rule when its when-condition
// holds for whenValue.
func (c *Config) applyRule(rule *Rule, rowIdx int, thenValue, whenValue string) ([]report.Violation, error) {
	// Only the then-condition sees the rule, so lookup fails in a when.
	whenCtx := &EvalContext{Config: c}
	matched, err := whenCtx.Validate(rule.When, rule.Table, rule.WhenColumn, rowIdx, whenValue)
	if err != nil {
		return nil, evaluationError(rule.Table, rule.WhenColumn, rowIdx, rule.When, err)
	}
	if len(matched) > 0 {
		return nil, nil
	}

	ec := &EvalContext{Config: c, Rule: rule}
	vs, err := ec.Validate(rule.Then, rule.Table, rule.ThenColumn, rowIdx, thenValue)
	if err != nil {
		return nil, evaluationError(rule.Table, rule.ThenColumn, rowIdx, rule.Then, err)
	}
	prefix := fmt.Sprintf("because '%s' is '%s', ", whenValue, ast.String(rule.When))
	for i := range vs {
		vs[i].Message = prefix + vs[i].Message
		vs[i].Rule = rule.Message
		vs[i].RuleID = rule.RuleID()
		if rule.Level != "" {
			vs[i].Level = rule.Level
		} else if vs[i].Level == "" {
			vs[i].Level = report.LevelError
		}
	}
	return vs, nil
}

func evaluationError(tableName, column string, rowIdx int, cond ast.Node, err error) error {
	return &EvaluationError{
		Table:     tableName,
		Column:    column,
		Row:       rowIdx,
		Condition: ast.String(cond),
		Cause:     err,
	}
}
