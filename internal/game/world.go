package game

import (
	"fmt"
	"math/rand"

	"github.com/RyanMercier/gambleapp-sub000/internal/state"
)

// Player is the per-session gameplay entity owned by a room. Which fields are
// meaningful depends on the room's rules: Pong uses PaddleY and Score, Drop
// uses X and Alive. Ready belongs to the lobby cycle and resets with it.
type Player struct {
	ID    string
	Name  string
	Slot  int
	Ready bool
	Alive bool
	Score int

	// Drop: stick lateral position and latest steering target.
	X       float64
	TargetX float64

	// Pong: paddle center and latest requested center.
	PaddleY float64
	TargetY float64
}

// Ball is the Pong projectile. While Visible is false the ball is waiting to
// be re-served and skips physics and collision.
type Ball struct {
	X       float64
	Y       float64
	VX      float64
	VY      float64
	Radius  float64
	Visible bool
}

// Plate is a falling hazard in the Drop game.
type Plate struct {
	ID     string
	X      float64
	Y      float64
	VY     float64
	Radius float64
}

// World is the entity arena for one room: players in join order plus the
// game-specific transient entities. It is owned by the room goroutine and
// never shared.
type World struct {
	Field   Field
	Tick    uint64
	Ball    *Ball
	Plates  []*Plate
	Winner  string
	players map[string]*Player
	order   []string
	nextID  int
	rng     *rand.Rand
}

// NewWorld creates an empty arena with a per-room random source.
func NewWorld(field Field, seed int64) *World {
	return &World{
		Field:   field,
		players: make(map[string]*Player),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// AddPlayer registers a player at the end of the join order.
func (w *World) AddPlayer(id, name string) *Player {
	p := &Player{ID: id, Name: name, Slot: len(w.order), Alive: true}
	w.players[id] = p
	w.order = append(w.order, id)
	return p
}

// RemovePlayer drops a player from the arena. Unknown ids are a no-op.
func (w *World) RemovePlayer(id string) {
	if _, ok := w.players[id]; !ok {
		return
	}
	delete(w.players, id)
	for i, pid := range w.order {
		if pid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	for i, pid := range w.order {
		w.players[pid].Slot = i
	}
}

// Player looks up a player by id.
func (w *World) Player(id string) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// Players returns the players in join order.
func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.players[id])
	}
	return out
}

// PlayerCount returns the number of registered players.
func (w *World) PlayerCount() int {
	return len(w.order)
}

// AliveCount returns how many players are still alive.
func (w *World) AliveCount() int {
	n := 0
	for _, p := range w.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// NextPlateID mints a stable id for a freshly spawned plate.
func (w *World) NextPlateID() string {
	w.nextID++
	return fmt.Sprintf("plate-%d", w.nextID)
}

// RemovePlate deletes the plate at index i, preserving order.
func (w *World) RemovePlate(i int) {
	w.Plates = append(w.Plates[:i], w.Plates[i+1:]...)
}

// Rand exposes the room-local random source.
func (w *World) Rand() *rand.Rand {
	return w.rng
}

// ProjectLobby writes the roster-only view lobby rooms replicate: names and
// ready flags, no kinematics.
func (w *World) ProjectLobby(root *state.Doc) {
	w.projectPlayers(root, playerFields{})
}

// projectPlayers writes the players collection into the state tree. Rules
// pass the field set relevant to their game so diffs stay small.
func (w *World) projectPlayers(root *state.Doc, fields playerFields) {
	players := state.NewDoc()
	for _, p := range w.Players() {
		entry := state.NewDoc()
		entry.Set("name", p.Name)
		entry.Set("ready", p.Ready)
		entry.Set("alive", p.Alive)
		if fields.score {
			entry.Set("score", float64(p.Score))
		}
		if fields.x {
			entry.Set("x", p.X)
		}
		if fields.paddleY {
			entry.Set("paddleY", p.PaddleY)
		}
		players.Set(p.ID, entry)
	}
	root.Set("players", players)
}

type playerFields struct {
	score   bool
	x       bool
	paddleY bool
}
