// Package watch re-runs validation when input tables change.
//
// Directories given as inputs are watched directly; for individual files
// the parent directory is watched so that editors which replace files by
// renaming are still seen. Events are filtered by extension, hidden files
// are ignored, and bursts of events are collapsed by a Debouncer into a
// single callback carrying every changed path.
package watch
