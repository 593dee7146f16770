// Package table holds delimited tables in memory and moves them to and
// from disk.
//
// A Table is a named, ordered list of rows. Every row maps each column
// header to its cell text; cells missing from a short record read as "".
// Tables are named after their file, without directory or extension, so
// data/datatype.tsv becomes the table "datatype".
//
// Load reads many files concurrently and returns them as an ordered Set
// whose iteration order is the order the paths were given in. Directories
// are expanded to the .csv and .tsv files they directly contain.
package table
