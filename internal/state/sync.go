package state

import "encoding/json"

// Sync tracks the last snapshot broadcast to clients for one room and turns
// each committed mutation batch into a minimal ordered patch list. A room has
// exactly one Sync and commits from its own goroutine, so Sync needs no
// locking.
type Sync struct {
	base *Doc
}

// NewSync starts from an empty baseline; the first Commit therefore reports
// the entire document as adds.
func NewSync() *Sync {
	return &Sync{base: NewDoc()}
}

// Commit diffs next against the last broadcast snapshot, retains a deep copy
// of next as the new baseline, and returns the patches in document order. An
// unchanged document yields an empty slice.
func (s *Sync) Commit(next *Doc) []Patch {
	patches := diff(s.base, next, "", nil)
	if len(patches) > 0 {
		s.base = next.Clone()
	}
	return patches
}

// Snapshot returns a deep copy of the current baseline, suitable for seeding
// a newly attached session before it starts receiving diffs.
func (s *Sync) Snapshot() *Doc {
	return s.base.Clone()
}

// SnapshotJSON renders the current baseline as ordered JSON.
func (s *Sync) SnapshotJSON() ([]byte, error) {
	return json.Marshal(s.base)
}
