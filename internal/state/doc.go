package state

import (
	"encoding/json"
	"strings"

	"github.com/iancoleman/orderedmap"
)

// Doc is one node of the replicated state tree: an insertion-ordered map of
// string keys to scalars (float64, int, string, bool) or nested *Doc values.
// Insertion order is preserved so snapshots, diffs, and client mirrors all
// iterate collections the same way.
type Doc struct {
	m *orderedmap.OrderedMap
}

// NewDoc returns an empty document node.
func NewDoc() *Doc {
	return &Doc{m: orderedmap.New()}
}

// Set stores value under key, replacing any previous value. Accepted value
// types are float64, int, string, bool, and *Doc.
func (d *Doc) Set(key string, value any) *Doc {
	d.m.Set(key, value)
	return d
}

// Get returns the value stored under key.
func (d *Doc) Get(key string) (any, bool) {
	return d.m.Get(key)
}

// Child returns the nested document under key, or nil when the key is absent
// or holds a scalar.
func (d *Doc) Child(key string) *Doc {
	v, ok := d.m.Get(key)
	if !ok {
		return nil
	}
	child, _ := v.(*Doc)
	return child
}

// Delete removes key from the document. Deleting a missing key is a no-op.
func (d *Doc) Delete(key string) {
	d.m.Delete(key)
}

// Keys lists the document's keys in insertion order.
func (d *Doc) Keys() []string {
	return d.m.Keys()
}

// Len returns the number of keys.
func (d *Doc) Len() int {
	return len(d.m.Keys())
}

// Clone deep-copies the document. Scalars are copied by value; nested
// documents are cloned recursively.
func (d *Doc) Clone() *Doc {
	out := NewDoc()
	for _, key := range d.m.Keys() {
		v, _ := d.m.Get(key)
		if child, ok := v.(*Doc); ok {
			out.Set(key, child.Clone())
			continue
		}
		out.Set(key, v)
	}
	return out
}

// MarshalJSON renders the document as an ordered JSON object.
func (d *Doc) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.m)
}

// lookup walks a slash-joined path and returns the parent document of the
// final segment plus that segment's key.
func (d *Doc) lookup(path string) (parent *Doc, key string, ok bool) {
	segments := strings.Split(path, "/")
	node := d
	for i := 0; i < len(segments)-1; i++ {
		node = node.Child(segments[i])
		if node == nil {
			return nil, "", false
		}
	}
	return node, segments[len(segments)-1], true
}

// scalarEqual reports whether two stored scalar values are the same. Numeric
// values are written as float64 throughout the tree, so plain comparison is
// sufficient; mismatched dynamic types are never equal.
func scalarEqual(a, b any) bool {
	return a == b
}
