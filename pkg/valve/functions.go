package valve

import (
	"fmt"
	"sort"
	"sync"

	"valve-hq/valve/pkg/condition/ast"
	"valve-hq/valve/pkg/report"
)

// Function is a condition function such as any(...) or in(...).
type Function interface {
	// Name is the identifier used in condition text.
	Name() string

	// Usage is a short signature shown in help output.
	Usage() string

	// Check verifies the arguments while the configuration is built.
	Check(cc *CheckContext, args []ast.Node) error

	// Validate evaluates the function against one cell.
	Validate(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error)
}

// ValidateFunc is the signature of a function's evaluation step.
type ValidateFunc func(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error)

// CheckContext is what a function sees while its arguments are checked.
type CheckContext struct {
	Config *Config
	Table  string
	Column string

	// TopLevel is set when the call is the whole condition rather than an
	// argument of another call.
	TopLevel bool

	// Source is the configuration cell holding the condition.
	Source ast.Location
}

func (cc *CheckContext) location() ast.Location {
	return cc.Source
}

// shapedFunc is a Function whose arguments are checked against a Shape.
type shapedFunc struct {
	name     string
	usage    string
	shape    Shape
	check    func(cc *CheckContext, args []ast.Node) error
	validate ValidateFunc
}

func (f *shapedFunc) Name() string  { return f.name }
func (f *shapedFunc) Usage() string { return f.usage }

func (f *shapedFunc) Check(cc *CheckContext, args []ast.Node) error {
	if f.check != nil {
		return f.check(cc, args)
	}
	return f.shape.Check(cc, f.name, args)
}

func (f *shapedFunc) Validate(ec *EvalContext, args []ast.Node, table, column string, rowIdx int, value string) ([]report.Violation, error) {
	return f.validate(ec, args, table, column, rowIdx, value)
}

// FuncOf builds a Function from an argument shape and an evaluation step.
func FuncOf(name, usage string, shape []string, validate ValidateFunc) (Function, error) {
	if validate == nil {
		return nil, &RegistrationError{Name: name, Message: "a validate function is required"}
	}
	s, err := ParseShape(shape...)
	if err != nil {
		return nil, &RegistrationError{Name: name, Message: err.Error()}
	}
	if usage == "" {
		usage = name + "(...)"
	}
	return &shapedFunc{name: name, usage: usage, shape: s, validate: validate}, nil
}

// Registry maps function names to implementations.
type Registry struct {
	mu      sync.RWMutex
	funcs   map[string]Function
	builtin map[string]bool
}

// NewRegistry returns a registry holding the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{
		funcs:   make(map[string]Function),
		builtin: make(map[string]bool),
	}
	for _, fn := range builtinFunctions() {
		r.funcs[fn.Name()] = fn
		r.builtin[fn.Name()] = true
	}
	return r
}

// Register adds a custom function. Built-in and already registered names
// are rejected.
func (r *Registry) Register(fn Function) error {
	if fn == nil {
		return &RegistrationError{Message: "function is nil"}
	}
	name := fn.Name()
	if !ast.IsLabel(name) {
		return &RegistrationError{Name: name, Message: "name must be a bare label"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.IsBuiltin(name) {
		return &RegistrationError{Name: name, Message: fmt.Sprintf("cannot use builtin function name '%s'", name)}
	}
	if _, ok := r.funcs[name]; ok {
		return &RegistrationError{Name: name, Message: "already registered"}
	}
	r.funcs[name] = fn
	return nil
}

// Lookup returns the named function.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// IsBuiltin reports whether name is a built-in function. The builtin set
// is fixed at construction, so no lock is taken.
func (r *Registry) IsBuiltin(name string) bool {
	return r.builtin[name]
}

// Names returns every registered function name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// builtinFunctions returns the functions every registry starts with.
func builtinFunctions() []Function {
	return []Function{
		&shapedFunc{name: "any", usage: "any(expression+)", shape: MustParseShape("expression+"), validate: validateAny},
		&shapedFunc{name: "concat", usage: "concat(value+)", shape: MustParseShape("(expression or string)+"), validate: validateConcat},
		&shapedFunc{name: "distinct", usage: "distinct(expression, field*)", shape: MustParseShape("expression", "field*"), validate: validateDistinct},
		&shapedFunc{name: "in", usage: "in(value+)", shape: MustParseShape("(string or field)+"), validate: validateIn},
		&shapedFunc{name: "list", usage: "list(str, expression)", shape: MustParseShape("string", "expression"), validate: validateList},
		&shapedFunc{name: "lookup", usage: "lookup(table, column, column)", check: checkLookup, validate: validateLookup},
		&shapedFunc{name: "not", usage: "not(expression+)", shape: MustParseShape("expression+"), validate: validateNot},
		&shapedFunc{name: "sub", usage: "sub(regex, expression)", shape: MustParseShape("regex_sub", "expression"), validate: validateSub},
		&shapedFunc{name: "tree", usage: "tree(column, [treename, split=str])", check: checkTree, validate: validateTree},
		&shapedFunc{name: "under", usage: "under(treename, str, [direct=bool])", shape: MustParseShape("tree", "string", "named:direct?"), validate: validateUnder},
	}
}
