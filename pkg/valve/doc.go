// Package valve validates tables against conditions declared in
// configuration tables.
//
// Three tables drive a run:
//
//	datatype  datatype, parent, match, level, description, replace
//	field     table, column, condition
//	rule      table, when column, when condition, then column, then condition, level, description
//
// Configure reads them into a Config: a registry of inheritable regex
// datatypes, one condition per (table, column), when/then rules, and the
// label hierarchies declared with tree(...). Problems with the
// configuration itself are returned as violations located in the
// configuration tables, and a configuration with such problems is never
// used to validate data.
//
// ValidateTable then walks every row of a data table, evaluating field
// conditions and firing rules, and returns located violations.
// Validate ties the two together for a whole table set and is the usual
// entry point:
//
//	tables, _ := table.Load(ctx, []string{"config/", "data/"}, table.LoadOptions{})
//	res, err := valve.Validate(ctx, tables, valve.Options{RowStart: 2})
//	if err != nil {
//	    return err
//	}
//	for _, v := range res.Violations {
//	    fmt.Println(v)
//	}
//
// # Functions
//
// The built-in functions are any, concat, distinct, in, list, lookup,
// not, sub, tree and under. Additional functions can be registered
// through Options.Functions; they are shape-checked like built-ins.
package valve
