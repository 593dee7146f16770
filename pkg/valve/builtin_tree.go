package valve

import (
	"fmt"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/tree"
)

var treeShape = MustParseShape("column", "tree?", "named:split?")

// checkTree accepts tree(...) only as the whole condition of a field
// bound to a concrete table.
func checkTree(cc *CheckContext, args []ast.Node) error {
	if !cc.TopLevel {
		return &condErrors.Error{
			Type:     condErrors.ErrorTypeShape,
			Message:  "tree can only be used as the whole condition of a field",
			Location: cc.location(),
		}
	}
	if cc.Table == Wildcard {
		return &condErrors.Error{
			Type:     condErrors.ErrorTypeShape,
			Message:  "tree cannot be bound to every table",
			Location: cc.location(),
		}
	}
	return treeShape.Check(cc, "tree", args)
}

// validateTree is never reached for a checked configuration: tree
// conditions are consumed while configuring.
func validateTree(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	return nil, fmt.Errorf("%w: tree(...) builds a hierarchy and does not validate values", ErrInvalidCondition)
}

// validateUnder passes when value is the ancestor label or below it.
func validateUnder(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	ref, ok := args[0].(*ast.FieldRef)
	if !ok {
		return nil, fmt.Errorf("%w: under requires a tree, got %s", ErrInvalidCondition, ast.String(args[0]))
	}
	tr, ok := ec.Config.trees[ref.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: tree %s is not defined", ErrInvalidCondition, ref.Name())
	}
	ancestor := args[1].(*ast.StringLiteral).Value

	direct := false
	if len(args) > 2 {
		if n, ok := args[2].(*ast.NamedArg); ok {
			direct = strings.EqualFold(n.Value, "true")
		}
	}

	if tr.HasAncestor(ancestor, value, direct) {
		return nil, nil
	}
	var msg string
	if direct {
		msg = fmt.Sprintf("'%s' must be a direct subclass of '%s' from %s", value, ancestor, ref.Name())
	} else {
		msg = fmt.Sprintf("'%s' must be equal to or under '%s' from %s", value, ancestor, ref.Name())
	}
	return []report.Violation{ec.Violation(table, column, rowIdx, msg)}, nil
}

// buildTree reads the hierarchy declared by tree(childColumn, [base],
// [split=sep]) on f. Parents that are not known labels are reported on
// their data cells and kept as edges. A cycle is a configuration fault
// and is returned.
func (b *builder) buildTree(f *Field, call *ast.FunctionCall) []report.Violation {
	c := b.config
	t, _ := c.tables.Get(f.Table)
	parentColumn := f.Column
	childColumn := call.Args[0].(*ast.StringLiteral).Value
	split, hasSplit := call.NamedArg("split")

	var base *tree.Tree
	if len(call.Args) > 1 {
		if ref, ok := call.Args[1].(*ast.FieldRef); ok {
			base = c.trees[ref.Name()]
		}
	}

	name := f.Table + "." + parentColumn
	tr := tree.New(name)
	allowed := make(map[string]bool)
	for _, v := range t.Values(childColumn) {
		if v != "" {
			allowed[v] = true
		}
	}
	if base != nil {
		for _, label := range base.Labels() {
			allowed[label] = true
		}
		tr.Merge(base)
	}

	suffix := ""
	if base != nil {
		suffix = fmt.Sprintf(" or %s tree", base.Name())
	}

	var setup []report.Violation
	for i, row := range t.Rows {
		// A blank child still has its parents checked but adds no label.
		child := row[childColumn]
		if child != "" {
			tr.Add(child)
		}

		value := row[parentColumn]
		if value == "" {
			continue
		}
		parents := []string{value}
		if hasSplit && split != "" {
			parents = strings.Split(value, split)
		}
		for _, parent := range parents {
			if !allowed[parent] {
				v := c.violation(f.Table, parentColumn, i,
					fmt.Sprintf("'%s' from %s must exist in %s.%s%s", parent, name, f.Table, childColumn, suffix))
				v.RuleID = f.RuleID()
				setup = append(setup, v)
			}
			if child != "" {
				tr.AddEdge(child, parent)
			}
		}
	}
	c.setup[f.Table] = append(c.setup[f.Table], setup...)

	if cycle := tr.Cycle(); cycle != nil {
		return []report.Violation{c.violation(FieldTable, "condition", f.RowID,
			fmt.Sprintf("tree %s contains a cycle: %s", name, strings.Join(cycle, " -> ")))}
	}

	c.trees[name] = tr
	b.logger.Debug("built tree",
		"tree", name,
		"labels", tr.Len(),
		"invalid_parents", len(setup),
	)
	return nil
}
