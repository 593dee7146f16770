// Package tree stores parent/child hierarchies read from table columns.
//
// Labels are interned once and edges are kept as index lists, so a node
// may have several parents and walking ancestors never copies strings.
// A label is a member of the tree when it has been added as a child;
// parents that never appear as children are referenced but not members.
package tree

import "strings"

// Tree is a named multi-parent hierarchy.
type Tree struct {
	name    string
	index   map[string]int
	labels  []string
	parents [][]int
	member  []bool
	order   []int // members in insertion order
}

// New returns an empty tree.
func New(name string) *Tree {
	return &Tree{name: name, index: make(map[string]int)}
}

// Name is the tree's table.column name.
func (t *Tree) Name() string {
	return t.name
}

func (t *Tree) intern(label string) int {
	if i, ok := t.index[label]; ok {
		return i
	}
	i := len(t.labels)
	t.index[label] = i
	t.labels = append(t.labels, label)
	t.parents = append(t.parents, nil)
	t.member = append(t.member, false)
	return i
}

// Add makes label a member of the tree.
func (t *Tree) Add(label string) {
	i := t.intern(label)
	if !t.member[i] {
		t.member[i] = true
		t.order = append(t.order, i)
	}
}

// AddEdge records parent as a parent of child, adding child as a member.
// Repeated edges are stored once.
func (t *Tree) AddEdge(child, parent string) {
	t.Add(child)
	c := t.index[child]
	p := t.intern(parent)
	for _, existing := range t.parents[c] {
		if existing == p {
			return
		}
	}
	t.parents[c] = append(t.parents[c], p)
}

// Has reports whether label is a member.
func (t *Tree) Has(label string) bool {
	i, ok := t.index[label]
	return ok && t.member[i]
}

// Labels returns the members in insertion order.
func (t *Tree) Labels() []string {
	out := make([]string, len(t.order))
	for i, idx := range t.order {
		out[i] = t.labels[idx]
	}
	return out
}

// Len returns the number of members.
func (t *Tree) Len() int {
	return len(t.order)
}

// Parents returns the direct parents of label.
func (t *Tree) Parents(label string) []string {
	i, ok := t.index[label]
	if !ok {
		return nil
	}
	out := make([]string, len(t.parents[i]))
	for j, p := range t.parents[i] {
		out[j] = t.labels[p]
	}
	return out
}

// Merge copies every member and edge of other into t.
func (t *Tree) Merge(other *Tree) {
	for _, idx := range other.order {
		label := other.labels[idx]
		t.Add(label)
		for _, p := range other.parents[idx] {
			t.AddEdge(label, other.labels[p])
		}
	}
}

// HasAncestor reports whether ancestor can be reached from node by
// following parent edges. With direct set only immediate parents count;
// otherwise a node is its own ancestor. Cycles are tolerated.
func (t *Tree) HasAncestor(ancestor, node string, direct bool) bool {
	if !direct && node == ancestor {
		return true
	}
	start, ok := t.index[node]
	if !ok {
		return false
	}
	target, ok := t.index[ancestor]
	if !ok {
		return false
	}

	if direct {
		for _, p := range t.parents[start] {
			if p == target {
				return true
			}
		}
		return false
	}

	visited := make([]bool, len(t.labels))
	stack := []int{start}
	visited[start] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range t.parents[n] {
			if p == target {
				return true
			}
			if !visited[p] {
				visited[p] = true
				stack = append(stack, p)
			}
		}
	}
	return false
}

// Cycle returns a path that starts and ends at the same label, or nil if
// the tree is acyclic.
func (t *Tree) Cycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(t.labels))
	var path []int

	var visit func(n int) []int
	visit = func(n int) []int {
		color[n] = grey
		path = append(path, n)
		for _, p := range t.parents[n] {
			switch color[p] {
			case grey:
				for i, x := range path {
					if x == p {
						return append(append([]int(nil), path[i:]...), p)
					}
				}
			case white:
				if c := visit(p); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return nil
	}

	for _, idx := range t.order {
		if color[idx] != white {
			continue
		}
		if c := visit(idx); c != nil {
			out := make([]string, len(c))
			for i, n := range c {
				out[i] = t.labels[n]
			}
			return out
		}
	}
	return nil
}

// String renders each member with its parents, for debugging.
func (t *Tree) String() string {
	var sb strings.Builder
	sb.WriteString(t.name)
	sb.WriteString(" {")
	for i, idx := range t.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.labels[idx])
		if ps := t.Parents(t.labels[idx]); len(ps) > 0 {
			sb.WriteString(" -> ")
			sb.WriteString(strings.Join(ps, "|"))
		}
	}
	sb.WriteString("}")
	return sb.String()
}
