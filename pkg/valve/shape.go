package valve

import (
	"fmt"
	"strings"

	"valve-hq/valve/pkg/condition/ast"
	condErrors "valve-hq/valve/pkg/condition/errors"
)

type cardinality int

const (
	exactlyOne cardinality = iota
	zeroOrOne
	zeroOrMore
	oneOrMore
)

// argKinds are the argument type tags a shape may use. named:<key> is
// handled separately.
var argKinds = map[string]bool{
	"column":      true,
	"expression":  true,
	"field":       true,
	"string":      true,
	"tree":        true,
	"regex_match": true,
	"regex_sub":   true,
}

type argSpec struct {
	kinds []string
	card  cardinality
}

// Shape is a parsed argument declaration such as
// ["column", "tree?", "named:split?"].
type Shape []argSpec

// ParseShape parses argument declarations. Each declaration is a type tag
// or a parenthesized "A or B" list, optionally followed by +, ? or *.
func ParseShape(decls ...string) (Shape, error) {
	shape := make(Shape, 0, len(decls))
	for _, decl := range decls {
		var spec argSpec
		body := strings.TrimSpace(decl)
		if n := len(body); n > 0 {
			switch body[n-1] {
			case '+':
				spec.card = oneOrMore
			case '?':
				spec.card = zeroOrOne
			case '*':
				spec.card = zeroOrMore
			}
			if spec.card != exactlyOne {
				body = body[:n-1]
			}
		}
		body = strings.TrimSuffix(strings.TrimPrefix(body, "("), ")")
		for _, kind := range strings.Split(body, " or ") {
			kind = strings.TrimSpace(kind)
			if !argKinds[kind] && !(strings.HasPrefix(kind, "named:") && len(kind) > len("named:")) {
				return nil, fmt.Errorf("unknown argument type %q in %q", kind, decl)
			}
			spec.kinds = append(spec.kinds, kind)
		}
		shape = append(shape, spec)
	}
	return shape, nil
}

// MustParseShape is like ParseShape but panics on error.
func MustParseShape(decls ...string) Shape {
	s, err := ParseShape(decls...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s argSpec) name() string {
	return strings.Join(s.kinds, " or ")
}

// Check matches args against the shape positionally. Repeated tags
// consume greedily; when a later declaration exists they stop at the
// first argument that does not fit, so the next declaration can try it.
func (s Shape) Check(cc *CheckContext, fn string, args []ast.Node) error {
	errs := condErrors.NewErrorList()
	i := 0

	for si, spec := range s {
		last := si == len(s)-1
		switch spec.card {
		case exactlyOne:
			if i >= len(args) {
				errs.AddError(condErrors.ErrorTypeShape,
					fmt.Sprintf("%s requires one '%s' at argument %d", fn, spec.name(), i+1), cc.location())
				return errs
			}
			if err := checkArg(cc, args[i], spec); err != nil {
				errs.Add(argError(fn, i, err))
			}
			i++
		case zeroOrOne:
			if i >= len(args) {
				continue
			}
			if err := checkArg(cc, args[i], spec); err != nil {
				if !last && err.Type != condErrors.ErrorTypeReference {
					continue
				}
				errs.Add(argError(fn, i, err))
			}
			i++
		case zeroOrMore, oneOrMore:
			if spec.card == oneOrMore && i >= len(args) {
				errs.AddError(condErrors.ErrorTypeShape,
					fmt.Sprintf("%s requires one or more '%s' at argument %d", fn, spec.name(), i+1), cc.location())
				return errs
			}
			for start := i; i < len(args); i++ {
				if err := checkArg(cc, args[i], spec); err != nil {
					if !last && (i > start || spec.card == zeroOrMore) {
						break
					}
					errs.Add(argError(fn, i, err))
				}
			}
		}
	}

	if i < len(args) {
		errs.AddError(condErrors.ErrorTypeShape,
			fmt.Sprintf("%s expects %d arguments, but %d were given", fn, i, len(args)), cc.location())
	}
	return errs.ToError()
}

func argError(fn string, i int, err *condErrors.Error) *condErrors.Error {
	err.Message = fmt.Sprintf("%s argument %d %s", fn, i+1, err.Message)
	return err
}

// checkArg tests one argument against every alternative of spec. A
// reference error from an alternative of the right form is reported as is.
func checkArg(cc *CheckContext, arg ast.Node, spec argSpec) *condErrors.Error {
	var first, ref *condErrors.Error
	for _, kind := range spec.kinds {
		err := checkKind(cc, arg, kind)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
		if ref == nil && err.Type == condErrors.ErrorTypeReference {
			ref = err
		}
	}
	if ref != nil {
		return ref
	}
	if len(spec.kinds) > 1 {
		return condErrors.New(condErrors.ErrorTypeShape, "must be one of: %s", spec.name())
	}
	return first
}

func checkKind(cc *CheckContext, arg ast.Node, kind string) *condErrors.Error {
	if key, ok := strings.CutPrefix(kind, "named:"); ok {
		n, isNamed := arg.(*ast.NamedArg)
		if !isNamed || n.Key != key {
			return condErrors.New(condErrors.ErrorTypeShape, "must be the named argument '%s'", key)
		}
		return nil
	}

	switch kind {
	case "string":
		if _, ok := arg.(*ast.StringLiteral); !ok {
			return condErrors.New(condErrors.ErrorTypeShape, "must be a string")
		}
	case "column":
		s, ok := arg.(*ast.StringLiteral)
		if !ok {
			return condErrors.New(condErrors.ErrorTypeShape, "must be a column name")
		}
		t, ok := cc.Config.tables.Get(cc.Table)
		if !ok || !t.HasColumn(s.Value) {
			return condErrors.New(condErrors.ErrorTypeReference, "must be a column in '%s'", cc.Table)
		}
	case "expression":
		switch x := arg.(type) {
		case *ast.FunctionCall:
		case *ast.StringLiteral:
			if _, ok := cc.Config.datatypes[x.Value]; !ok {
				return unknownDatatype(cc.Config, x.Value)
			}
		default:
			return condErrors.New(condErrors.ErrorTypeShape, "must be a datatype or function call")
		}
	case "field":
		f, ok := arg.(*ast.FieldRef)
		if !ok {
			return condErrors.New(condErrors.ErrorTypeShape, "must be a field (table.column)")
		}
		return checkFieldRef(cc.Config, f)
	case "tree":
		f, ok := arg.(*ast.FieldRef)
		if !ok {
			return condErrors.New(condErrors.ErrorTypeShape, "must be a tree (table.column)")
		}
		if _, ok := cc.Config.trees[f.Name()]; !ok {
			return condErrors.New(condErrors.ErrorTypeReference, "%s must be defined before using in a function", f.Name())
		}
	case "regex_match", "regex_sub":
		r, ok := arg.(*ast.Regex)
		if !ok || r.Substitution != (kind == "regex_sub") {
			if kind == "regex_sub" {
				return condErrors.New(condErrors.ErrorTypeShape, "must be a regex substitution")
			}
			return condErrors.New(condErrors.ErrorTypeShape, "must be a regex match")
		}
		if _, err := r.Compile(); err != nil {
			return condErrors.New(condErrors.ErrorTypeShape, "%v", err)
		}
	}
	return nil
}

func checkFieldRef(c *Config, f *ast.FieldRef) *condErrors.Error {
	t, ok := c.tables.Get(f.Table)
	if !ok {
		return &condErrors.Error{
			Type:       condErrors.ErrorTypeReference,
			Message:    fmt.Sprintf("unrecognized table '%s'", f.Table),
			Suggestion: condErrors.SuggestName(f.Table, c.tables.Names()),
		}
	}
	if !t.HasColumn(f.Column) {
		return &condErrors.Error{
			Type:       condErrors.ErrorTypeReference,
			Message:    fmt.Sprintf("unrecognized column '%s' for table '%s'", f.Column, f.Table),
			Suggestion: condErrors.SuggestName(f.Column, t.Columns),
		}
	}
	return nil
}

func unknownDatatype(c *Config, name string) *condErrors.Error {
	return &condErrors.Error{
		Type:       condErrors.ErrorTypeReference,
		Message:    fmt.Sprintf("unrecognized datatype '%s'", name),
		Suggestion: condErrors.SuggestName(name, c.DatatypeNames()),
	}
}
