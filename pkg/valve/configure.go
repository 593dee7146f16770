package valve

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
	"valve-hq/valve/pkg/condition/parser"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
)

// builder carries state across the configuration stages.
type builder struct {
	config   *Config
	logger   *slog.Logger
	rowStart int
	parser   *parser.Parser
}

// Configure builds a Config from the datatype, field and optional rule
// tables in tables. Malformed configuration rows are returned as
// violations; when any of them is located in a configuration table the
// returned Config is nil and no data should be validated. An error is
// returned only when a required table is missing or a custom function
// cannot be registered.
func Configure(tables *table.Set, opts Options) (*Config, []report.Violation, error) {
	for _, name := range []string{DatatypeTable, FieldTable} {
		if !tables.Has(name) {
			return nil, nil, fmt.Errorf("%w: '%s'", ErrMissingTable, name)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "valve.configure")

	registry := NewRegistry()
	for _, fn := range opts.Functions {
		if err := registry.Register(fn); err != nil {
			return nil, nil, err
		}
	}

	b := &builder{
		config:   newConfig(tables, opts.RowStart, registry, logger),
		logger:   logger,
		rowStart: report.NewLocator(tables, opts.RowStart).RowStart,
		parser:   parser.NewParser(),
	}

	stages := []struct {
		table string
		run   func() []report.Violation
	}{
		{DatatypeTable, b.configureDatatypes},
		{FieldTable, b.configureFields},
		{RuleTable, b.configureRules},
	}

	var all []report.Violation
	for _, stage := range stages {
		found := stage.run()
		all = append(all, found...)
		if hasConfigFault(found) {
			logger.Warn("configuration rejected",
				"table", stage.table,
				"violations", len(found),
			)
			return nil, all, nil
		}
	}

	c := b.config
	logger.Debug("configuration built",
		"datatypes", len(c.datatypes),
		"trees", len(c.trees),
		"functions", len(registry.Names()),
	)
	return c, all, nil
}

func hasConfigFault(vs []report.Violation) bool {
	for _, v := range vs {
		if report.ConfigTables[v.Table] {
			return true
		}
	}
	return false
}

func (b *builder) configureDatatypes() []report.Violation {
	c := b.config
	t, _ := c.tables.Get(DatatypeTable)
	rows, out := decodeRows[datatypeRow](b, t)
	if len(out) > 0 {
		return out
	}

	var defined []*Datatype
	seen := make(map[string]bool)
	for i, row := range rows {
		rowID := i + b.rowStart
		if seen[row.Datatype] {
			out = append(out, c.violation(DatatypeTable, "datatype", rowID,
				fmt.Sprintf("duplicate datatype '%s'", row.Datatype)))
			continue
		}
		seen[row.Datatype] = true

		level, _ := report.ParseLevel(row.Level)
		d := &Datatype{
			Name:        row.Datatype,
			Parent:      row.Parent,
			Description: row.Description,
			Level:       level,
			RowID:       rowID,
		}

		var ok bool
		if d.Match, ok = b.parseRegex(row.Match, false, rowID, "match", &out); !ok {
			continue
		}
		if d.Replace, ok = b.parseRegex(row.Replace, true, rowID, "replace", &out); !ok {
			continue
		}
		if err := d.compile(); err != nil {
			out = append(out, c.violation(DatatypeTable, "match", rowID, err.Error()))
			continue
		}

		c.datatypes[d.Name] = d
		defined = append(defined, d)
	}

	for _, d := range defined {
		if d.Parent == "" {
			continue
		}
		if _, ok := c.datatypes[d.Parent]; !ok {
			v := c.violation(DatatypeTable, "parent", d.RowID,
				fmt.Sprintf("unrecognized parent datatype '%s'", d.Parent))
			v.Suggestion = condErrors.SuggestName(d.Parent, c.DatatypeNames())
			out = append(out, v)
			continue
		}
		if _, err := c.Ancestors(d.Name); err != nil {
			out = append(out, c.violation(DatatypeTable, "parent", d.RowID, err.Error()))
		}
	}
	return out
}

// parseRegex parses a regex cell of the datatype table. A blank cell
// yields nil.
func (b *builder) parseRegex(text string, sub bool, rowID int, column string, out *[]report.Violation) (*ast.Regex, bool) {
	if text == "" {
		return nil, true
	}
	re, err := b.parser.ParseRegex(text)
	if err == nil && re.Substitution != sub {
		kind := "match"
		if sub {
			kind = "substitution"
		}
		err = fmt.Errorf("'%s' must be a regex %s", text, kind)
	}
	if err != nil {
		*out = append(*out, b.config.violation(DatatypeTable, column, rowID, errorMessage(err)))
		return nil, false
	}
	return re, true
}

func (b *builder) configureFields() []report.Violation {
	c := b.config
	t, _ := c.tables.Get(FieldTable)
	rows, out := decodeRows[fieldRow](b, t)
	if len(out) > 0 {
		return out
	}

	seen := make(map[string]bool)
	for i, row := range rows {
		rowID := i + b.rowStart

		if row.Table != Wildcard {
			dt, ok := c.tables.Get(row.Table)
			if !ok {
				v := c.violation(FieldTable, "table", rowID, fmt.Sprintf("unrecognized table '%s'", row.Table))
				v.Suggestion = condErrors.SuggestName(row.Table, c.tables.Names())
				out = append(out, v)
				continue
			}
			if !dt.HasColumn(row.Column) {
				v := c.violation(FieldTable, "column", rowID,
					fmt.Sprintf("unrecognized column '%s' for table '%s'", row.Column, row.Table))
				v.Suggestion = condErrors.SuggestName(row.Column, dt.Columns)
				out = append(out, v)
				continue
			}
		}

		key := row.Table + "." + row.Column
		if seen[key] {
			out = append(out, c.violation(FieldTable, "column", rowID,
				fmt.Sprintf("multiple conditions defined for %s", key)))
			continue
		}
		seen[key] = true

		cond, vs := b.parseCondition(FieldTable, "condition", rowID, row.Condition, &CheckContext{
			Config:   c,
			Table:    row.Table,
			Column:   row.Column,
			TopLevel: true,
			Source:   cellLocation(FieldTable, "condition", rowID),
		})
		if len(vs) > 0 {
			out = append(out, vs...)
			continue
		}

		f := &Field{Table: row.Table, Column: row.Column, Condition: cond, RowID: rowID}
		if call, ok := cond.(*ast.FunctionCall); ok && call.Name == "tree" {
			out = append(out, b.buildTree(f, call)...)
			continue
		}

		if c.fields[row.Table] == nil {
			c.fields[row.Table] = make(map[string]*Field)
		}
		c.fields[row.Table][row.Column] = f
	}
	return out
}

func (b *builder) configureRules() []report.Violation {
	c := b.config
	t, ok := c.tables.Get(RuleTable)
	if !ok {
		return nil
	}
	rows, out := decodeRows[ruleRow](b, t)
	if len(out) > 0 {
		return out
	}

	for i, row := range rows {
		rowID := i + b.rowStart

		dt, ok := c.tables.Get(row.Table)
		if !ok {
			v := c.violation(RuleTable, "table", rowID, fmt.Sprintf("unrecognized table '%s'", row.Table))
			v.Suggestion = condErrors.SuggestName(row.Table, c.tables.Names())
			out = append(out, v)
			continue
		}

		bad := false
		for _, col := range []struct{ header, name string }{
			{"when column", row.WhenColumn},
			{"then column", row.ThenColumn},
		} {
			if !dt.HasColumn(col.name) {
				v := c.violation(RuleTable, col.header, rowID,
					fmt.Sprintf("unrecognized column '%s' for table '%s'", col.name, row.Table))
				v.Suggestion = condErrors.SuggestName(col.name, dt.Columns)
				out = append(out, v)
				bad = true
			}
		}
		if bad {
			continue
		}

		when, vs := b.parseCondition(RuleTable, "when condition", rowID, row.WhenCondition, &CheckContext{
			Config: c, Table: row.Table, Column: row.WhenColumn,
			Source: cellLocation(RuleTable, "when condition", rowID),
		})
		out = append(out, vs...)
		then, vs := b.parseCondition(RuleTable, "then condition", rowID, row.ThenCondition, &CheckContext{
			Config: c, Table: row.Table, Column: row.ThenColumn,
			Source: cellLocation(RuleTable, "then condition", rowID),
		})
		out = append(out, vs...)
		if when == nil || then == nil {
			continue
		}

		var level report.Level
		if row.Level != "" {
			level, _ = report.ParseLevel(row.Level)
		}
		rule := &Rule{
			Table:      row.Table,
			WhenColumn: row.WhenColumn,
			When:       when,
			ThenColumn: row.ThenColumn,
			Then:       then,
			Level:      level,
			Message:    row.Description,
			RowID:      rowID,
		}
		if c.rules[row.Table] == nil {
			c.rules[row.Table] = make(map[string][]*Rule)
		}
		c.rules[row.Table][row.WhenColumn] = append(c.rules[row.Table][row.WhenColumn], rule)
	}
	return out
}

// parseCondition parses and checks the condition text of a configuration
// cell. On failure the node is nil and the problems are returned located
// at that cell.
func (b *builder) parseCondition(tableName, column string, rowID int, text string, cc *CheckContext) (ast.Node, []report.Violation) {
	cond, err := b.parser.Parse(text)
	if err == nil {
		err = b.config.checkCondition(cc, cond)
	}
	if err == nil {
		return cond, nil
	}

	v := b.config.violation(tableName, column, rowID, errorMessage(err))
	v.Suggestion = errorSuggestion(err)
	return nil, []report.Violation{v}
}

// checkCondition verifies that n is a known datatype or a well-formed call
// of a registered function, recursing into nested calls first.
func (c *Config) checkCondition(cc *CheckContext, n ast.Node) error {
	switch x := n.(type) {
	case *ast.StringLiteral:
		if _, ok := c.datatypes[x.Value]; !ok {
			return unknownDatatype(c, x.Value)
		}
		return nil
	case *ast.FunctionCall:
		return c.checkFunction(cc, x)
	}
	return condErrors.New(condErrors.ErrorTypeShape, "a condition must be a datatype or function call, not %s", ast.String(n))
}

func (c *Config) checkFunction(cc *CheckContext, call *ast.FunctionCall) error {
	fn, ok := c.functions.Lookup(call.Name)
	if !ok {
		return &condErrors.Error{
			Type:       condErrors.ErrorTypeReference,
			Message:    fmt.Sprintf("unrecognized function '%s'", call.Name),
			Location:   cc.location(),
			Suggestion: condErrors.SuggestName(call.Name, c.functions.Names()),
		}
	}

	nested := *cc
	nested.TopLevel = false
	for _, arg := range call.Args {
		if inner, ok := arg.(*ast.FunctionCall); ok {
			if err := c.checkFunction(&nested, inner); err != nil {
				return err
			}
		}
	}
	return fn.Check(cc, call.Args)
}

// errorMessage extracts the user-facing text of a parse or check error.
func errorMessage(err error) string {
	var list *condErrors.ErrorList
	if errors.As(err, &list) {
		return strings.Join(list.Messages(), "; ")
	}
	var e *condErrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func errorSuggestion(err error) string {
	var list *condErrors.ErrorList
	if errors.As(err, &list) {
		for _, e := range list.Errors {
			if e.Suggestion != "" {
				return e.Suggestion
			}
		}
		return ""
	}
	var e *condErrors.Error
	if errors.As(err, &e) {
		return e.Suggestion
	}
	return ""
}
