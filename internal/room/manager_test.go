package room

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanMercier/gambleapp-sub000/internal/game"
)

func newTestManager() *Manager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewManager(logger)
}

func waitDone(t *testing.T, r *Room) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not dispose in time")
	}
}

func TestCreateRoomRejectsUnknownKind(t *testing.T) {
	mgr := newTestManager()
	_, err := mgr.CreateRoom(Options{Kind: "chess"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCreateLobbyRequiresGameKind(t *testing.T) {
	mgr := newTestManager()
	_, err := mgr.CreateRoom(Options{Kind: game.KindLobby})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCreateRoomFillsDefaultsFromRules(t *testing.T) {
	mgr := newTestManager()
	r, err := mgr.CreateRoom(Options{Kind: game.KindPong})
	require.NoError(t, err)
	defer r.Dispose("test cleanup")

	info := r.Info()
	assert.Equal(t, 2, info.MinPlayers)
	assert.Equal(t, 2, info.MaxPlayers)
	assert.Equal(t, 60, info.TickRate)
	assert.Equal(t, string(PhaseWaiting), info.Phase)
}

func TestGetAndListTrackLiveRooms(t *testing.T) {
	mgr := newTestManager()
	a, err := mgr.CreateRoom(Options{Kind: game.KindPong})
	require.NoError(t, err)
	b, err := mgr.CreateRoom(Options{Kind: game.KindDrop})
	require.NoError(t, err)
	defer a.Dispose("test cleanup")
	defer b.Dispose("test cleanup")

	got, ok := mgr.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	infos := mgr.List()
	require.Len(t, infos, 2)
	assert.LessOrEqual(t, infos[0].ID, infos[1].ID, "listing is sorted for stable output")
}

func TestCreateSimulationRoomReservesRosterCapacity(t *testing.T) {
	mgr := newTestManager()
	id, err := mgr.CreateSimulationRoom(game.KindDrop, []string{"ada", "bob", "carol"})
	require.NoError(t, err)

	r, ok := mgr.Get(id)
	require.True(t, ok)
	defer r.Dispose("test cleanup")
	assert.Equal(t, 3, r.Info().MaxPlayers)
}

func TestCreateSimulationRoomWrapsFailure(t *testing.T) {
	mgr := newTestManager()
	_, err := mgr.CreateSimulationRoom("bogus", []string{"ada"})
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestEmptyRoomDisposesAfterGraceAndLeavesRegistry(t *testing.T) {
	mgr := newTestManager()
	r, err := mgr.CreateRoom(Options{Kind: game.KindPong, EmptyGrace: 10 * time.Millisecond})
	require.NoError(t, err)

	waitDone(t, r)
	_, ok := mgr.Get(r.ID)
	assert.False(t, ok, "disposed rooms are removed from the registry")
}

func TestShutdownDisposesEveryRoom(t *testing.T) {
	mgr := newTestManager()
	a, err := mgr.CreateRoom(Options{Kind: game.KindPong})
	require.NoError(t, err)
	b, err := mgr.CreateRoom(Options{Kind: game.KindDrop})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	mgr.Shutdown(ctx)

	waitDone(t, a)
	waitDone(t, b)
	assert.Empty(t, mgr.List())
}
