package valve

import (
	"fmt"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
)

// validateAny passes when at least one argument passes.
func validateAny(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	for _, arg := range args {
		vs, err := ec.Validate(arg, table, column, rowIdx, value)
		if err != nil {
			return nil, err
		}
		if len(vs) == 0 {
			return nil, nil
		}
	}
	msg := fmt.Sprintf("'%s' must meet one of: %s", value, strings.Join(ast.Strings(args), ", "))
	return []report.Violation{ec.Violation(table, column, rowIdx, msg)}, nil
}

// validateNot passes only when every argument fails.
func validateNot(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	for _, arg := range args {
		vs, err := ec.Validate(arg, table, column, rowIdx, value)
		if err != nil {
			return nil, err
		}
		if len(vs) > 0 {
			continue
		}
		msg := fmt.Sprintf("'%s' must not be '%s'", value, ast.String(arg))
		if s, ok := arg.(*ast.StringLiteral); ok && s.Value == "blank" {
			msg = "value must not be blank"
		}
		return []report.Violation{ec.Violation(table, column, rowIdx, msg)}, nil
	}
	return nil, nil
}
