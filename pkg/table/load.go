package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoTables is returned when no input path yields a table file.
var ErrNoTables = errors.New("no table files found")

// LoadOptions controls Load.
type LoadOptions struct {
	// Parallelism bounds concurrent file reads (default: 4)
	Parallelism int

	// Logger receives per-file debug output (defaults to slog.Default())
	Logger *slog.Logger
}

// Delimiter returns the field separator for path: tab for .tsv, comma otherwise.
func Delimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

func isTableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}

// ExpandPaths replaces every directory in paths with the .csv and .tsv
// files directly inside it, sorted by name. Plain files are kept as given.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !isTableFile(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}

// Load expands paths and reads every table file concurrently. The returned
// set preserves the expanded path order. Two files with the same base name
// are an error.
func Load(ctx context.Context, paths []string, opts LoadOptions) (*Set, error) {
	files, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoTables
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Parallelism
	if limit <= 0 {
		limit = 4
	}

	tables := make([]*Table, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := LoadFile(path)
			if err != nil {
				return err
			}
			logger.Debug("loaded table",
				"table", t.Name,
				"path", path,
				"rows", len(t.Rows),
				"columns", len(t.Columns),
			)
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := NewSet()
	for _, t := range tables {
		if err := set.Add(t); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// LoadFile reads a single delimited file. A leading byte order mark is
// removed and header names are NFC-normalized.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}

	t, err := Parse(bytes.NewReader(data), NameFromPath(path), Delimiter(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse table %s: %w", path, err)
	}
	t.Path = path
	t.Fingerprint = xxh3.Hash(data)
	return t, nil
}

// Parse reads a delimited table from r.
func Parse(r io.Reader, name string, delimiter rune) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	if delimiter == '\t' {
		cr.LazyQuotes = true
	}

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{Name: name}, nil
	}
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		col := norm.NFC.String(strings.TrimSpace(h))
		if col == "" {
			return nil, fmt.Errorf("column %d has an empty header", i+1)
		}
		if seen[col] {
			return nil, fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = true
		columns[i] = col
	}

	t := &Table{Name: name, Columns: columns}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
