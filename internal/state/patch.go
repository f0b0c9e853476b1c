package state

// Op identifies the kind of mutation a patch carries.
type Op string

const (
	// OpAdd introduces a key that did not exist in the previous snapshot.
	OpAdd Op = "add"
	// OpReplace overwrites the value of an existing key.
	OpReplace Op = "replace"
	// OpRemove deletes a key.
	OpRemove Op = "remove"
)

// Patch is one diff entry against the previously broadcast snapshot. Path is
// the slash-joined key path from the tree root; Value is absent for removes.
type Patch struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// diff appends the patches that transform prev into next, walking both
// documents in next's key order so patch order is deterministic.
func diff(prev, next *Doc, prefix string, out []Patch) []Patch {
	for _, key := range next.Keys() {
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}
		nv, _ := next.Get(key)
		pv, existed := prev.Get(key)
		if !existed {
			out = append(out, Patch{Op: OpAdd, Path: path, Value: exportValue(nv)})
			continue
		}
		nextChild, nextIsDoc := nv.(*Doc)
		prevChild, prevIsDoc := pv.(*Doc)
		switch {
		case nextIsDoc && prevIsDoc:
			out = diff(prevChild, nextChild, path, out)
		case !nextIsDoc && !prevIsDoc:
			if !scalarEqual(pv, nv) {
				out = append(out, Patch{Op: OpReplace, Path: path, Value: nv})
			}
		default:
			// Shape changed between scalar and subtree.
			out = append(out, Patch{Op: OpReplace, Path: path, Value: exportValue(nv)})
		}
	}
	for _, key := range prev.Keys() {
		if _, still := next.Get(key); still {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}
		out = append(out, Patch{Op: OpRemove, Path: path})
	}
	return out
}

// exportValue deep-copies a value for inclusion in a patch so later server
// mutations cannot alias into an already-emitted diff.
func exportValue(v any) any {
	if child, ok := v.(*Doc); ok {
		return child.Clone()
	}
	return v
}
