package valve

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/table"
	"valve-hq/valve/pkg/tree"
)

// Names of the configuration tables.
const (
	DatatypeTable = "datatype"
	FieldTable    = "field"
	RuleTable     = "rule"

	// Wildcard binds a field condition to every table.
	Wildcard = "*"
)

// Field binds a condition to a column.
type Field struct {
	Table     string
	Column    string
	Condition ast.Node
	RowID     int // row in the field table
}

// RuleID is the identifier reported with violations from this field.
func (f *Field) RuleID() string {
	return "field:" + strconv.Itoa(f.RowID)
}

// Rule applies Then to ThenColumn whenever When holds for WhenColumn in
// the same row.
type Rule struct {
	Table      string
	WhenColumn string
	When       ast.Node
	ThenColumn string
	Then       ast.Node
	Level      report.Level // "" keeps each violation's own level
	Message    string
	RowID      int // row in the rule table
}

// RuleID is the identifier reported with violations from this rule.
func (r *Rule) RuleID() string {
	return "rule:" + strconv.Itoa(r.RowID)
}

// Config is the validated configuration a run evaluates data against.
// It is read-only once Configure returns and safe for concurrent use.
type Config struct {
	tables    *table.Set
	datatypes map[string]*Datatype
	fields    map[string]map[string]*Field
	rules     map[string]map[string][]*Rule
	trees     map[string]*tree.Tree
	functions *Registry
	locator   *report.Locator
	logger    *slog.Logger

	// setup holds violations found while building trees. They are located
	// in data tables and reported with those tables.
	setup map[string][]report.Violation

	index   sync.Map // "table\x00column" -> map[string][]int
	regexes sync.Map // *ast.Regex -> *regexp.Regexp
}

func newConfig(tables *table.Set, rowStart int, functions *Registry, logger *slog.Logger) *Config {
	return &Config{
		tables:    tables,
		datatypes: builtinDatatypes(),
		fields:    make(map[string]map[string]*Field),
		rules:     make(map[string]map[string][]*Rule),
		trees:     make(map[string]*tree.Tree),
		functions: functions,
		locator:   report.NewLocator(tables, rowStart),
		logger:    logger,
		setup:     make(map[string][]report.Violation),
	}
}

// Tables returns the tables the configuration was built over.
func (c *Config) Tables() *table.Set { return c.tables }

// RowStart returns the row number of the first data row.
func (c *Config) RowStart() int { return c.locator.RowStart }

// Locator returns the cell addresser for this configuration.
func (c *Config) Locator() *report.Locator { return c.locator }

// Functions returns the function registry.
func (c *Config) Functions() *Registry { return c.functions }

// Datatype returns the named datatype.
func (c *Config) Datatype(name string) (*Datatype, bool) {
	d, ok := c.datatypes[name]
	return d, ok
}

// DatatypeNames returns every datatype name, sorted.
func (c *Config) DatatypeNames() []string {
	names := make([]string, 0, len(c.datatypes))
	for name := range c.datatypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the condition bound to tableName.column, falling back to
// a wildcard binding.
func (c *Config) Field(tableName, column string) (*Field, bool) {
	if f, ok := c.fields[tableName][column]; ok {
		return f, true
	}
	f, ok := c.fields[Wildcard][column]
	return f, ok
}

// Rules returns the rules triggered by tableName.column, in table order.
func (c *Config) Rules(tableName, column string) []*Rule {
	return c.rules[tableName][column]
}

// Tree returns a tree by its table.column name.
func (c *Config) Tree(name string) (*tree.Tree, bool) {
	t, ok := c.trees[name]
	return t, ok
}

// TreeNames returns every tree name, sorted.
func (c *Config) TreeNames() []string {
	names := make([]string, 0, len(c.trees))
	for name := range c.trees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DataTables returns the names of the tables that are validated: every
// table except the configuration tables, in set order.
func (c *Config) DataTables() []string {
	var names []string
	for _, name := range c.tables.Names() {
		if !report.ConfigTables[name] {
			names = append(names, name)
		}
	}
	return names
}

// violation builds a located violation with the default level.
func (c *Config) violation(tableName, column string, rowIdx int, message string) report.Violation {
	return c.locator.New(tableName, column, rowIdx, report.LevelError, message)
}

// columnIndex maps each non-blank value of tableName.column to the
// 0-based rows holding it. It is built on first use.
func (c *Config) columnIndex(tableName, column string) map[string][]int {
	key := tableName + "\x00" + column
	if idx, ok := c.index.Load(key); ok {
		return idx.(map[string][]int)
	}
	idx := make(map[string][]int)
	if t, ok := c.tables.Get(tableName); ok {
		for i, row := range t.Rows {
			if v := row[column]; v != "" {
				idx[v] = append(idx[v], i)
			}
		}
	}
	actual, _ := c.index.LoadOrStore(key, idx)
	return actual.(map[string][]int)
}

// compile returns the compiled form of a regex literal, caching it.
func (c *Config) compile(r *ast.Regex) (*regexp.Regexp, error) {
	if re, ok := c.regexes.Load(r); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := r.Compile()
	if err != nil {
		return nil, err
	}
	c.regexes.Store(r, re)
	return re, nil
}
