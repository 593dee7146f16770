package table

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Set is an ordered collection of uniquely named tables.
type Set struct {
	order  []string
	tables map[string]*Table
}

// NewSet returns a set containing tables in the given order.
// It panics on duplicate names; use Add to handle them as errors.
func NewSet(tables ...*Table) *Set {
	s := &Set{tables: make(map[string]*Table)}
	for _, t := range tables {
		if err := s.Add(t); err != nil {
			panic(err)
		}
	}
	return s
}

// Add appends t to the set.
func (s *Set) Add(t *Table) error {
	if s.tables == nil {
		s.tables = make(map[string]*Table)
	}
	if existing, ok := s.tables[t.Name]; ok {
		if existing.Path != "" && t.Path != "" {
			return fmt.Errorf("duplicate table name %q from %s and %s", t.Name, existing.Path, t.Path)
		}
		return fmt.Errorf("duplicate table name %q", t.Name)
	}
	s.tables[t.Name] = t
	s.order = append(s.order, t.Name)
	return nil
}

// Get returns the named table.
func (s *Set) Get(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Has reports whether the set contains the named table.
func (s *Set) Has(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// Names returns table names in insertion order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Tables returns the tables in insertion order.
func (s *Set) Tables() []*Table {
	out := make([]*Table, len(s.order))
	for i, name := range s.order {
		out[i] = s.tables[name]
	}
	return out
}

// Len returns the number of tables.
func (s *Set) Len() int {
	return len(s.order)
}

// Fingerprint combines the fingerprints of every table, in order, into one
// hash. Two sets loaded from identical files share a fingerprint.
func (s *Set) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, name := range s.order {
		_, _ = h.WriteString(name)
		binary.LittleEndian.PutUint64(buf[:], s.tables[name].Fingerprint)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
