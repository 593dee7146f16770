package valve

import (
	"fmt"
	"regexp"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
)

// Datatype is a named pattern that a value must match. A datatype also
// requires every pattern of its parent chain.
type Datatype struct {
	Name        string
	Parent      string
	Description string
	Level       report.Level
	Match       *ast.Regex // nil when the datatype has no pattern of its own
	Replace     *ast.Regex // substitution used to suggest a fix
	Builtin     bool
	RowID       int // row in the datatype table, 0 for built-ins

	match   *regexp.Regexp
	replace *regexp.Regexp
}

// Matches reports whether value satisfies this datatype's own pattern.
func (d *Datatype) Matches(value string) bool {
	return d.match == nil || d.match.MatchString(value)
}

// Suggest returns the replacement suggested for a failing value, or "".
func (d *Datatype) Suggest(value string) string {
	if d.Replace == nil || d.replace == nil {
		return ""
	}
	return d.Replace.Substitute(d.replace, value)
}

// message is the text reported when value fails the pattern.
func (d *Datatype) message() string {
	if d.Description != "" {
		return d.Description
	}
	return d.Name
}

func (d *Datatype) compile() error {
	if d.Match != nil {
		re, err := d.Match.Compile()
		if err != nil {
			return fmt.Errorf("match: %w", err)
		}
		d.match = re
	}
	if d.Replace != nil {
		if !d.Replace.Substitution {
			return fmt.Errorf("replace: %s is not a substitution", ast.String(d.Replace))
		}
		re, err := d.Replace.Compile()
		if err != nil {
			return fmt.Errorf("replace: %w", err)
		}
		d.replace = re
	}
	return nil
}

func mustBuiltin(name, pattern, description string) *Datatype {
	d := &Datatype{
		Name:        name,
		Description: description,
		Level:       report.LevelError,
		Match:       &ast.Regex{Pattern: pattern},
		Builtin:     true,
	}
	if err := d.compile(); err != nil {
		panic(err)
	}
	return d
}

// builtinDatatypes returns fresh copies of the datatypes every
// configuration starts with.
func builtinDatatypes() map[string]*Datatype {
	return map[string]*Datatype{
		"blank": mustBuiltin("blank", `^$`, "an empty string"),
		"datatype_label": mustBuiltin("datatype_label", `^[A-Za-z][A-Za-z0-9_-]+$`,
			"a word that starts with a letter and may contain dashes and underscores"),
		"regex":     mustBuiltin("regex", `^\/.+\/[a-z]*$`, "a regex match"),
		"regex_sub": mustBuiltin("regex_sub", `^s\/.+\/.*\/[a-z]*$`, "a regex substitution"),
	}
}

// Ancestors returns the named datatype followed by its parent chain up to
// the root. A missing datatype or a parent cycle is an error.
func (c *Config) Ancestors(name string) ([]*Datatype, error) {
	var chain []*Datatype
	seen := make(map[string]bool)
	for name != "" {
		if seen[name] {
			return nil, fmt.Errorf("datatype %q has a cyclic parent chain", name)
		}
		seen[name] = true
		d, ok := c.datatypes[name]
		if !ok {
			return nil, fmt.Errorf("unrecognized datatype %q", name)
		}
		chain = append(chain, d)
		name = d.Parent
	}
	return chain, nil
}
