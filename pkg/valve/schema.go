package valve

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/condition/parser"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
)

// Rows of the configuration tables. The col tag names the table column a
// field is read from; validate tags describe the structural requirements.
type datatypeRow struct {
	Datatype    string `col:"datatype" validate:"required"`
	Parent      string `col:"parent"`
	Match       string `col:"match"`
	Level       string `col:"level" validate:"omitempty,level"`
	Description string `col:"description"`
	Replace     string `col:"replace"`
}

type fieldRow struct {
	Table     string `col:"table" validate:"required"`
	Column    string `col:"column" validate:"required"`
	Condition string `col:"condition" validate:"required"`
}

type ruleRow struct {
	Table         string `col:"table" validate:"required"`
	WhenColumn    string `col:"when column" validate:"required"`
	WhenCondition string `col:"when condition" validate:"required"`
	ThenColumn    string `col:"then column" validate:"required"`
	ThenCondition string `col:"then condition" validate:"required"`
	Level         string `col:"level" validate:"omitempty,level"`
	Description   string `col:"description"`
}

// requiredColumns lists the headers each configuration table must have.
var requiredColumns = map[string][]string{
	DatatypeTable: {"datatype"},
	FieldTable:    {"table", "column", "condition"},
	RuleTable:     {"table", "when column", "when condition", "then column", "then condition"},
}

// metaConditions are checked against the datatype table before any
// datatype is registered, using only the built-in datatypes.
var metaConditions = map[string][]struct {
	column    string
	condition string
}{
	DatatypeTable: {
		{"datatype", "datatype_label"},
		{"match", "any(blank, regex)"},
		{"replace", "any(blank, regex_sub)"},
	},
}

var rowValidate = newRowValidator()

func newRowValidator() *validator.Validate {
	v := validator.New()
	// Levels are read by report.ParseLevel, which ignores case.
	_ = v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		_, err := report.ParseLevel(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("col")
	})
	return v
}

// decodeRow copies the cells of row into the col-tagged fields of dst.
func decodeRow(row table.Row, dst any) {
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		col := rt.Field(i).Tag.Get("col")
		if col == "" {
			continue
		}
		rv.Field(i).SetString(strings.TrimSpace(row[col]))
	}
}

// decodeRows checks the structure of a configuration table and decodes
// its rows. Row numbers start at rowStart.
func decodeRows[T any](b *builder, t *table.Table) ([]T, []report.Violation) {
	var out []report.Violation
	for _, col := range requiredColumns[t.Name] {
		if !t.HasColumn(col) {
			out = append(out, report.Violation{
				Table:   t.Name,
				Cell:    "1",
				Level:   report.LevelError,
				Message: fmt.Sprintf("missing required column '%s'", col),
			})
		}
	}
	if len(out) > 0 {
		return nil, out
	}

	rows := make([]T, len(t.Rows))
	for i, row := range t.Rows {
		rowID := i + b.rowStart
		decodeRow(row, &rows[i])
		err := rowValidate.Struct(&rows[i])
		if err == nil {
			continue
		}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			out = append(out, b.config.violation(t.Name, "", rowID, err.Error()))
			continue
		}
		for _, fe := range verrs {
			out = append(out, b.config.violation(t.Name, fe.Field(), rowID, fieldErrorMessage(fe)))
		}
	}
	out = append(out, b.checkMeta(t)...)
	return rows, out
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value must not be blank"
	case "level":
		return fmt.Sprintf("'%v' must be one of: ERROR, WARN, INFO", fe.Value())
	}
	return fmt.Sprintf("'%v' failed %s check", fe.Value(), fe.Tag())
}

// checkMeta evaluates the meta conditions for t. Blank cells are skipped.
func (b *builder) checkMeta(t *table.Table) []report.Violation {
	var out []report.Violation
	for _, mc := range metaConditions[t.Name] {
		if !t.HasColumn(mc.column) {
			continue
		}
		cond, err := parser.Parse(mc.condition)
		if err != nil {
			panic(fmt.Sprintf("meta condition %q: %v", mc.condition, err))
		}
		for i, row := range t.Rows {
			value := strings.TrimSpace(row[mc.column])
			if value == "" {
				continue
			}
			vs, err := b.config.ValidateCondition(cond, t.Name, mc.column, i+b.rowStart, value)
			if err != nil {
				out = append(out, b.config.violation(t.Name, mc.column, i+b.rowStart, err.Error()))
				continue
			}
			out = append(out, vs...)
		}
	}
	return out
}

// cellLocation locates a configuration cell for error reporting.
func cellLocation(tableName, column string, rowID int) ast.Location {
	return ast.Location{Table: tableName, Column: column, Row: rowID}
}
