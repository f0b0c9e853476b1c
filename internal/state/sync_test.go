package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playersDoc(entries map[string]float64, order []string) *Doc {
	players := NewDoc()
	for _, id := range order {
		players.Set(id, NewDoc().Set("x", entries[id]))
	}
	return players
}

func TestCommitEmptyBaselineReportsAdds(t *testing.T) {
	sync := NewSync()

	root := NewDoc()
	root.Set("phase", "waiting")
	root.Set("players", playersDoc(map[string]float64{"player-1": 40}, []string{"player-1"}))

	patches := sync.Commit(root)
	require.Len(t, patches, 2)
	assert.Equal(t, OpAdd, patches[0].Op)
	assert.Equal(t, "phase", patches[0].Path)
	assert.Equal(t, OpAdd, patches[1].Op)
	assert.Equal(t, "players", patches[1].Path)
}

func TestCommitUnchangedDocumentEmitsNothing(t *testing.T) {
	sync := NewSync()
	root := NewDoc().Set("phase", "waiting").Set("countdown", float64(0))
	require.NotEmpty(t, sync.Commit(root))

	again := NewDoc().Set("phase", "waiting").Set("countdown", float64(0))
	assert.Empty(t, sync.Commit(again))
}

func TestCommitEmitsMinimalDiff(t *testing.T) {
	sync := NewSync()
	first := NewDoc()
	first.Set("phase", "playing")
	first.Set("players", playersDoc(map[string]float64{"player-1": 40, "player-2": 60}, []string{"player-1", "player-2"}))
	sync.Commit(first)

	second := NewDoc()
	second.Set("phase", "playing")
	second.Set("players", playersDoc(map[string]float64{"player-1": 55}, []string{"player-1"}))

	patches := sync.Commit(second)
	require.Len(t, patches, 2)
	assert.Equal(t, Patch{Op: OpReplace, Path: "players/player-1/x", Value: 55.0}, patches[0])
	assert.Equal(t, Patch{Op: OpRemove, Path: "players/player-2"}, patches[1])
}

func TestCommitBaselineUnchangedWhenDiffEmpty(t *testing.T) {
	sync := NewSync()
	sync.Commit(NewDoc().Set("tick", float64(1)))
	sync.Commit(NewDoc().Set("tick", float64(1)))

	patches := sync.Commit(NewDoc().Set("tick", float64(2)))
	require.Len(t, patches, 1)
	assert.Equal(t, OpReplace, patches[0].Op)
}

// Applying the first snapshot plus every subsequent diff in order must
// reconstruct the exact server document at each step.
func TestMirrorRoundTrip(t *testing.T) {
	sync := NewSync()
	mirror := NewMirror()

	build := func(phase string, xs map[string]float64, order []string, ballX float64) *Doc {
		root := NewDoc()
		root.Set("phase", phase)
		root.Set("players", playersDoc(xs, order))
		root.Set("ball", NewDoc().Set("x", ballX).Set("y", 50.0))
		return root
	}

	steps := []*Doc{
		build("waiting", map[string]float64{"player-1": 40}, []string{"player-1"}, 400),
		build("waiting", map[string]float64{"player-1": 40, "player-2": 60}, []string{"player-1", "player-2"}, 400),
		build("playing", map[string]float64{"player-1": 42, "player-2": 60}, []string{"player-1", "player-2"}, 412.5),
		build("playing", map[string]float64{"player-2": 61}, []string{"player-2"}, 0),
	}

	// Session joins after the first commit: snapshot, then diffs.
	sync.Commit(steps[0])
	mirror.Reset(sync.Snapshot())

	for _, next := range steps[1:] {
		patches := sync.Commit(next)
		mirror.Apply(patches)

		want, err := json.Marshal(next)
		require.NoError(t, err)
		got, err := json.Marshal(mirror.Root())
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	}
}

func TestMirrorCollectionListeners(t *testing.T) {
	sync := NewSync()
	mirror := NewMirror()
	mirror.Reset(sync.Snapshot())

	var added, changed, removed []string
	mirror.Listen("players", Listener{
		OnAdd:    func(key string, _ any) { added = append(added, key) },
		OnChange: func(key string, _ any) { changed = append(changed, key) },
		OnRemove: func(key string) { removed = append(removed, key) },
	})

	one := NewDoc().Set("players", playersDoc(map[string]float64{"player-1": 10}, []string{"player-1"}))
	mirror.Apply(sync.Commit(one))

	two := NewDoc().Set("players", playersDoc(map[string]float64{"player-1": 10, "player-2": 20}, []string{"player-1", "player-2"}))
	mirror.Apply(sync.Commit(two))

	three := NewDoc().Set("players", playersDoc(map[string]float64{"player-1": 15, "player-2": 20}, []string{"player-1", "player-2"}))
	mirror.Apply(sync.Commit(three))

	four := NewDoc().Set("players", playersDoc(map[string]float64{"player-1": 15}, []string{"player-1"}))
	mirror.Apply(sync.Commit(four))

	// The very first commit adds the whole players doc in one patch rooted
	// above the collection, so listener adds begin with player-2.
	assert.Equal(t, []string{"player-2"}, added)
	assert.Equal(t, []string{"player-1"}, changed)
	assert.Equal(t, []string{"player-2"}, removed)
}

func TestCloneIsDeep(t *testing.T) {
	root := NewDoc()
	root.Set("ball", NewDoc().Set("x", 1.0))
	clone := root.Clone()

	root.Child("ball").Set("x", 2.0)
	v, _ := clone.Child("ball").Get("x")
	assert.Equal(t, 1.0, v)
}
