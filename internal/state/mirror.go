package state

import "strings"

// Listener receives collection membership callbacks from a Mirror. Any field
// may be nil. OnChange also fires when a value nested under the entry changes,
// so per-entity UI code never has to rescan the whole collection.
type Listener struct {
	OnAdd    func(key string, value any)
	OnChange func(key string, value any)
	OnRemove func(key string)
}

// Mirror is the client-side counterpart of a room's state tree. It is seeded
// with a full snapshot and then applies patch batches in arrival order,
// reproducing the server document exactly and notifying collection listeners
// as entries come and go.
type Mirror struct {
	root      *Doc
	listeners map[string][]Listener
}

// NewMirror returns a mirror with an empty document.
func NewMirror() *Mirror {
	return &Mirror{root: NewDoc(), listeners: make(map[string][]Listener)}
}

// Reset replaces the mirrored document with a full snapshot.
func (m *Mirror) Reset(snapshot *Doc) {
	m.root = snapshot.Clone()
}

// Root exposes the mirrored document.
func (m *Mirror) Root() *Doc {
	return m.root
}

// Listen registers collection callbacks for the document at path ("" for the
// root). Callbacks fire for direct entries of that document.
func (m *Mirror) Listen(path string, l Listener) {
	m.listeners[path] = append(m.listeners[path], l)
}

// Apply mutates the mirrored document with one patch batch, firing listeners
// after each individual patch lands.
func (m *Mirror) Apply(patches []Patch) {
	for _, p := range patches {
		m.applyOne(p)
	}
}

func (m *Mirror) applyOne(p Patch) {
	segments := strings.Split(p.Path, "/")
	node := m.root
	for i := 0; i < len(segments)-1; i++ {
		child := node.Child(segments[i])
		if child == nil {
			if p.Op == OpRemove {
				return
			}
			child = NewDoc()
			node.Set(segments[i], child)
		}
		node = child
	}
	key := segments[len(segments)-1]

	switch p.Op {
	case OpAdd, OpReplace:
		node.Set(key, importValue(p.Value))
	case OpRemove:
		node.Delete(key)
	}
	m.notify(p, segments)
}

// notify fires listeners whose path is a prefix of the patch path. A patch on
// a direct child raises add/change/remove for that key; a deeper patch raises
// a change for the collection entry it lives under.
func (m *Mirror) notify(p Patch, segments []string) {
	for listenPath, listeners := range m.listeners {
		var rel []string
		if listenPath == "" {
			rel = segments
		} else {
			prefix := strings.Split(listenPath, "/")
			if len(segments) <= len(prefix) {
				continue
			}
			matched := true
			for i, seg := range prefix {
				if segments[i] != seg {
					matched = false
					break
				}
			}
			if !matched {
				continue
			}
			rel = segments[len(prefix):]
		}

		entryKey := rel[0]
		direct := len(rel) == 1
		target := m.root
		if listenPath != "" {
			target, _, _ = m.root.lookup(listenPath + "/" + entryKey)
			if target == nil {
				continue
			}
		}
		value, exists := target.Get(entryKey)

		for _, l := range listeners {
			switch {
			case direct && p.Op == OpAdd:
				if l.OnAdd != nil {
					l.OnAdd(entryKey, value)
				}
			case direct && p.Op == OpRemove:
				if l.OnRemove != nil {
					l.OnRemove(entryKey)
				}
			default:
				if l.OnChange != nil && exists {
					l.OnChange(entryKey, value)
				}
			}
		}
	}
}

// importValue converts a patch value back into tree form. Patches produced in
// process carry *Doc values directly; patches decoded from JSON arrive as
// map[string]any and lose ordering, which is acceptable on the consuming side.
func importValue(v any) any {
	switch tv := v.(type) {
	case *Doc:
		return tv.Clone()
	case map[string]any:
		doc := NewDoc()
		for key, val := range tv {
			doc.Set(key, importValue(val))
		}
		return doc
	default:
		return v
	}
}
