// Package runner performs complete validation runs for the valve command:
// load the input tables, validate them, write the violation table and any
// distinct tables, record the run in the history store and update metrics.
//
// Every run gets a UUID that is attached to its log records and stored
// with it. A runner used by watch or schedule mode can skip runs whose
// inputs have the same content fingerprint as the previous run.
package runner
