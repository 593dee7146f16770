package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/store"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is aligned plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
	// FormatTSV is tab separated output.
	FormatTSV OutputFormat = "tsv"
)

// Tabular is data that can be rendered as a header and rows.
type Tabular interface {
	Header() []string
	Records() [][]string
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data Tabular) error
}

// TextFormatter aligns columns with a tabwriter.
type TextFormatter struct{}

// FormatTo writes data to w in aligned columns.
func (f *TextFormatter) FormatTo(w io.Writer, data Tabular) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, field)
		}
		fmt.Fprintln(tw)
	}
	writeRow(data.Header())
	for _, rec := range data.Records() {
		writeRow(rec)
	}
	return tw.Flush()
}

// JSONFormatter formats output as JSON. The data itself is encoded, not
// its records.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data Tabular) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats output as delimited records with a header row.
type CSVFormatter struct {
	Comma rune
}

// FormatTo writes data to w in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data Tabular) error {
	csvWriter := csv.NewWriter(w)
	if f.Comma != 0 {
		csvWriter.Comma = f.Comma
	}
	if err := csvWriter.Write(data.Header()); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(data.Records()); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	case FormatTSV:
		return &CSVFormatter{Comma: '\t'}
	default:
		return &TextFormatter{}
	}
}

// Violations renders validation results.
type Violations []report.Violation

// Header returns the violation table header.
func (vs Violations) Header() []string { return report.Header }

// Records returns one record per violation.
func (vs Violations) Records() [][]string {
	out := make([][]string, len(vs))
	for i, v := range vs {
		out[i] = v.Record()
	}
	return out
}

// MarshalJSON encodes an empty list as [] rather than null.
func (vs Violations) MarshalJSON() ([]byte, error) {
	if vs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]report.Violation(vs))
}

// Runs renders run history.
type Runs []*store.Run

// Header returns the run table header.
func (rs Runs) Header() []string {
	return []string{"id", "started", "trigger", "outcome", "errors", "warnings", "infos", "duration", "fingerprint"}
}

// Records returns one record per run.
func (rs Runs) Records() [][]string {
	out := make([][]string, len(rs))
	for i, r := range rs {
		out[i] = []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Trigger,
			r.Outcome,
			strconv.Itoa(r.Errors),
			strconv.Itoa(r.Warnings),
			strconv.Itoa(r.Infos),
			r.Duration.String(),
			store.FormatFingerprint(r.Fingerprint),
		}
	}
	return out
}
