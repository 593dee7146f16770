// Valve validates delimited tables against a configuration that is itself
// written as tables: datatypes, per-column conditions and conditional
// rules.
//
// Usage:
//
//	# Validate a directory of tables and write the problems to a file
//	valve validate -o problems.tsv tables/
//
//	# Write only the rows with new messages to distinct/
//	valve validate -d distinct/ -o problems.tsv tables/
//
//	# Check a condition without any tables
//	valve parse 'any(blank, in(code.code))'
//
//	# Re-validate whenever a table changes
//	valve watch --config valve.yaml tables/
//
//	# Validate every hour and keep the results
//	valve schedule --cron @hourly --record tables/
//
//	# Show recorded runs
//	valve history
package main

func main() {
	Execute()
}
