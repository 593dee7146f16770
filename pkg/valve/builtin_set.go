package valve

import (
	"fmt"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
	"valve-hq/valve/pkg/report"
)

// validateIn passes when value equals a literal or appears in a
// referenced column.
func validateIn(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	alternatives := make([]string, 0, len(args))
	for _, arg := range args {
		switch x := arg.(type) {
		case *ast.StringLiteral:
			if value == x.Value {
				return nil, nil
			}
			alternatives = append(alternatives, `"`+x.Value+`"`)
		case *ast.FieldRef:
			if value != "" && len(ec.Config.columnIndex(x.Table, x.Column)[value]) > 0 {
				return nil, nil
			}
			alternatives = append(alternatives, x.Name())
		default:
			return nil, fmt.Errorf("%w: in argument %s", ErrInvalidCondition, ast.String(arg))
		}
	}
	msg := fmt.Sprintf("'%s' must be in: %s", value, strings.Join(alternatives, ", "))
	return []report.Violation{ec.Violation(table, column, rowIdx, msg)}, nil
}

// validateDistinct checks value against its expression and then requires
// it to be unique in its column and in any extra fields.
func validateDistinct(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	out, err := ec.Validate(args[0], table, column, rowIdx, value)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return out, nil
	}

	locator := ec.Config.locator
	var dups []string
	for _, i := range ec.Config.columnIndex(table, column)[value] {
		if i != rowIdx {
			dups = append(dups, table+":"+locator.Cell(table, column, i))
		}
	}
	for _, arg := range args[1:] {
		f, ok := arg.(*ast.FieldRef)
		if !ok {
			return nil, fmt.Errorf("%w: distinct argument %s", ErrInvalidCondition, ast.String(arg))
		}
		for _, i := range ec.Config.columnIndex(f.Table, f.Column)[value] {
			if f.Table == table && f.Column == column && i == rowIdx {
				continue
			}
			dups = append(dups, f.Table+":"+locator.Cell(f.Table, f.Column, i))
		}
	}

	if len(dups) > 0 {
		msg := fmt.Sprintf("'%s' must be distinct with value(s) at: %s", value, strings.Join(dups, ", "))
		out = append(out, ec.Violation(table, column, rowIdx, msg))
	}
	return out, nil
}

// checkLookup requires three strings: a table and two of its columns.
func checkLookup(cc *CheckContext, args []ast.Node) error {
	errs := condErrors.NewErrorList()
	loc := cc.location()

	var target string
	for i, arg := range args {
		if i >= 3 {
			break
		}
		s, ok := arg.(*ast.StringLiteral)
		if !ok {
			errs.AddError(condErrors.ErrorTypeShape, fmt.Sprintf("lookup argument %d must be of type string", i+1), loc)
			return errs
		}
		if i == 0 {
			if !cc.Config.tables.Has(s.Value) {
				errs.AddErrorWithSuggestion(condErrors.ErrorTypeReference,
					"lookup argument 1 must be a table in inputs", loc,
					condErrors.SuggestName(s.Value, cc.Config.tables.Names()))
				break
			}
			target = s.Value
			continue
		}
		t, _ := cc.Config.tables.Get(target)
		if !t.HasColumn(s.Value) {
			errs.AddErrorWithSuggestion(condErrors.ErrorTypeReference,
				fmt.Sprintf("lookup argument %d must be a column in '%s'", i+1, target), loc,
				condErrors.SuggestName(s.Value, t.Columns))
		}
	}
	if len(args) != 3 {
		errs.AddError(condErrors.ErrorTypeShape, fmt.Sprintf("lookup expects 3 arguments, but %d were given", len(args)), loc)
	}
	return errs.ToError()
}

// validateLookup finds the row of the target table keyed by this row's
// when-column value and requires value to equal that row's value column.
func validateLookup(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	if ec.Rule == nil {
		return nil, fmt.Errorf("%w: lookup is only valid as the then condition of a rule", ErrPrecondition)
	}
	src, ok := ec.Config.tables.Get(table)
	if !ok {
		return nil, fmt.Errorf("%w: table %s is not loaded", ErrPrecondition, table)
	}

	target := args[0].(*ast.StringLiteral).Value
	keyColumn := args[1].(*ast.StringLiteral).Value
	valueColumn := args[2].(*ast.StringLiteral).Value

	key := src.Value(rowIdx, ec.Rule.WhenColumn)
	rows := ec.Config.columnIndex(target, keyColumn)[key]
	if len(rows) == 0 {
		msg := fmt.Sprintf("'%s' must be present in %s.%s", key, target, keyColumn)
		return []report.Violation{ec.Violation(table, column, rowIdx, msg)}, nil
	}

	t, _ := ec.Config.tables.Get(target)
	expected := t.Value(rows[0], valueColumn)
	if value == expected {
		return nil, nil
	}
	v := ec.Violation(table, column, rowIdx, fmt.Sprintf("'%s' must be '%s'", value, expected))
	v.Suggestion = expected
	return []report.Violation{v}, nil
}
