package room

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RyanMercier/gambleapp-sub000/internal/game"
)

// Manager tracks every live room in the process. Rooms run independently;
// the manager only mediates creation, lookup, and removal.
type Manager struct {
	mu    sync.RWMutex
	log   *logrus.Entry
	rooms map[string]*Room
}

// NewManager returns an empty room registry.
func NewManager(logger *logrus.Logger) *Manager {
	return &Manager{
		log:   logger.WithField("component", "rooms"),
		rooms: make(map[string]*Room),
	}
}

// CreateRoom builds a room of the requested kind, starts its loop, and
// registers it. Zero-valued capacity and countdown options are filled from
// the game's rules.
func (m *Manager) CreateRoom(opts Options) (*Room, error) {
	var rules game.Rules
	switch opts.Kind {
	case game.KindLobby:
		gameRules, ok := game.NewRules(opts.GameKind)
		if !ok {
			return nil, fmt.Errorf("%w: lobby for %q", ErrUnknownKind, opts.GameKind)
		}
		applyDefaults(&opts, gameRules)
	case game.KindPong, game.KindDrop:
		var ok bool
		rules, ok = game.NewRules(opts.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
		}
		applyDefaults(&opts, rules)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
	if opts.EmptyGrace <= 0 {
		opts.EmptyGrace = defaultEmptyGrace
	}

	id := uuid.NewString()
	r := newRoom(id, opts, rules, m, m.log)

	m.mu.Lock()
	m.rooms[id] = r
	m.mu.Unlock()

	go r.run()
	m.log.WithFields(logrus.Fields{"room": id, "kind": string(opts.Kind)}).Info("room created")
	return r, nil
}

// CreateSimulationRoom is the matchmaking handoff entry point: a lobby calls
// it with the committed roster once its countdown expires.
func (m *Manager) CreateSimulationRoom(kind game.Kind, roster []string) (string, error) {
	r, err := m.CreateRoom(Options{Kind: kind, Roster: roster})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	return r.ID, nil
}

// Get looks up a live room by id.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// List summarizes every live room, ordered by id for stable output.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// remove drops a disposed room from the registry.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
}

// Shutdown disposes every room and waits for them to drain or the context to
// expire.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		r.Dispose("server shutdown")
	}
	for _, r := range rooms {
		select {
		case <-r.Done():
		case <-ctx.Done():
			return
		}
	}
}

func applyDefaults(opts *Options, rules game.Rules) {
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = rules.MinPlayers()
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = rules.MaxPlayers()
	}
	if len(opts.Roster) > opts.MaxPlayers {
		opts.MaxPlayers = len(opts.Roster)
	}
	if opts.CountdownSeconds <= 0 {
		opts.CountdownSeconds = rules.CountdownSeconds()
	}
}
