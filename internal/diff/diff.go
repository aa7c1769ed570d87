// Package diff compares two filing documents and reports path-addressed changes.
//
// Diff(a, b, ...) treats a as the updated document and b as the baseline: a
// node's OldValue comes from b and its NewValue from a. Output order is
// deterministic: members of a in document order, then members only present in
// b in b's order; list strategies report in list order.
package diff

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"filer/pkg/document"
)

// Segment is one step of a Path: an object member or a list position.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns a member segment.
func Key(k string) Segment { return Segment{Key: k} }

// Index returns a list position segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// Path addresses a value from the document root.
type Path []Segment

// Append returns a new path; the receiver is never aliased.
func (p Path) Append(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.IsIndex {
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

// MarshalJSON renders the path as an array of keys and indices.
func (p Path) MarshalJSON() ([]byte, error) {
	out := make([]any, len(p))
	for i, s := range p {
		if s.IsIndex {
			out[i] = s.Index
		} else {
			out[i] = s.Key
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the array form written by MarshalJSON.
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Path, 0, len(raw))
	for i, r := range raw {
		switch v := r.(type) {
		case float64:
			if v < 0 || v != math.Trunc(v) {
				return fmt.Errorf("path segment %d: %v is not a list index", i, v)
			}
			out = append(out, Index(int(v)))
		case string:
			out = append(out, Key(v))
		default:
			return fmt.Errorf("path segment %d: unexpected %T", i, r)
		}
	}
	*p = out
	return nil
}

// Node is one structural change. A nil OldValue means the value was added,
// a nil NewValue that it was removed.
type Node struct {
	Path     Path `json:"path"`
	OldValue any  `json:"oldValue"`
	NewValue any  `json:"newValue"`
}

// ListDiff compares two arrays found at path. Strategies call back into the
// Differ to compare matched elements.
type ListDiff func(d *Differ, a, b []any, path Path) []Node

// Differ carries the comparison settings through a recursive walk.
type Differ struct {
	ignored  map[string]struct{}
	listDiff ListDiff
}

// New returns a Differ. A nil listDiff selects DiffListWithID.
func New(ignoredKeys []string, listDiff ListDiff) *Differ {
	ignored := make(map[string]struct{}, len(ignoredKeys))
	for _, k := range ignoredKeys {
		ignored[k] = struct{}{}
	}
	if listDiff == nil {
		listDiff = DiffListWithID
	}
	return &Differ{ignored: ignored, listDiff: listDiff}
}

// Diff compares a (updated) against b (baseline).
func Diff(a, b any, ignoredKeys []string, listDiff ListDiff) []Node {
	return New(ignoredKeys, listDiff).Compare(a, b, nil)
}

// Compare diffs two values found at path.
func (d *Differ) Compare(a, b any, path Path) []Node {
	if document.Equal(a, b) {
		return nil
	}
	switch av := a.(type) {
	case *document.Object:
		if bv, ok := b.(*document.Object); ok {
			return d.compareObjects(av, bv, path)
		}
	case []any:
		if bv, ok := b.([]any); ok {
			return d.listDiff(d, av, bv, path)
		}
	}
	return []Node{{Path: path, OldValue: b, NewValue: a}}
}

func (d *Differ) compareObjects(a, b *document.Object, path Path) []Node {
	var nodes []Node
	for _, key := range a.Keys() {
		if d.isIgnored(key) {
			continue
		}
		av, _ := a.Get(key)
		bv, ok := b.Get(key)
		if !ok {
			nodes = append(nodes, Node{Path: path.Append(Key(key)), NewValue: av})
			continue
		}
		nodes = append(nodes, d.Compare(av, bv, path.Append(Key(key)))...)
	}
	for _, key := range b.Keys() {
		if d.isIgnored(key) || a.Has(key) {
			continue
		}
		bv, _ := b.Get(key)
		nodes = append(nodes, Node{Path: path.Append(Key(key)), OldValue: bv})
	}
	return nodes
}

func (d *Differ) isIgnored(key string) bool {
	_, ok := d.ignored[key]
	return ok
}

// DiffListWithID matches list elements by their "id" member. Matched pairs
// are compared recursively; unmatched elements of a are reported as added and
// unmatched elements of b as removed, each as one whole-element node.
// Elements without an id are matched by equality.
func DiffListWithID(d *Differ, a, b []any, path Path) []Node {
	var nodes []Node
	matched := make([]bool, len(b))

	for i, item := range a {
		j := findMatch(item, b, matched)
		if j < 0 {
			nodes = append(nodes, Node{Path: path.Append(Index(i)), NewValue: item})
			continue
		}
		matched[j] = true
		nodes = append(nodes, d.Compare(item, b[j], path.Append(Index(i)))...)
	}
	for j, item := range b {
		if !matched[j] {
			nodes = append(nodes, Node{Path: path.Append(Index(j)), OldValue: item})
		}
	}
	return nodes
}

// DiffListByIndex compares elements position by position.
func DiffListByIndex(d *Differ, a, b []any, path Path) []Node {
	var nodes []Node
	for i := 0; i < len(a) || i < len(b); i++ {
		p := path.Append(Index(i))
		switch {
		case i >= len(b):
			nodes = append(nodes, Node{Path: p, NewValue: a[i]})
		case i >= len(a):
			nodes = append(nodes, Node{Path: p, OldValue: b[i]})
		default:
			nodes = append(nodes, d.Compare(a[i], b[i], p)...)
		}
	}
	return nodes
}

func findMatch(item any, candidates []any, taken []bool) int {
	id, hasID := elementID(item)
	for j, c := range candidates {
		if taken[j] {
			continue
		}
		if hasID {
			if cid, ok := elementID(c); ok && document.Equal(id, cid) {
				return j
			}
			continue
		}
		if _, ok := elementID(c); !ok && document.Equal(item, c) {
			return j
		}
	}
	return -1
}

func elementID(v any) (any, bool) {
	obj, ok := v.(*document.Object)
	if !ok {
		return nil, false
	}
	id, ok := obj.Get("id")
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}
