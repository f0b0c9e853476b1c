package game

import (
	"time"

	"github.com/RyanMercier/gambleapp-sub000/internal/state"
)

// Kind identifies a room variant.
type Kind string

const (
	KindLobby Kind = "lobby"
	KindPong  Kind = "pong"
	KindDrop  Kind = "drop"
)

// ParseKind validates a kind string received from a client.
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindLobby, KindPong, KindDrop:
		return Kind(value), true
	default:
		return "", false
	}
}

// Input is the latest buffered positional intent for one player. Only one
// intent per player survives between ticks; a newer intent overwrites the
// older one field-by-field.
type Input struct {
	HasTargetX bool
	TargetX    float64
	HasPaddleY bool
	PaddleY    float64
	Died       bool
}

// Merge folds a newer intent into the buffered one, latest wins per field.
func (in Input) Merge(next Input) Input {
	if next.HasTargetX {
		in.HasTargetX = true
		in.TargetX = next.TargetX
	}
	if next.HasPaddleY {
		in.HasPaddleY = true
		in.PaddleY = next.PaddleY
	}
	if next.Died {
		in.Died = true
	}
	return in
}

// Result records how a round ended. WinnerID is empty when nobody won.
type Result struct {
	WinnerID string
	Message  string
}

// Rules is the pluggable strategy a simulation room runs: entity setup,
// per-tick update, and termination detection for one game variant.
type Rules interface {
	Kind() Kind
	TickRate() int
	MinPlayers() int
	MaxPlayers() int
	CountdownSeconds() int

	// Init places the round's entities when the phase enters playing.
	Init(w *World)
	// Reset returns every player entity to its pre-round attributes when the
	// room cycles back to waiting.
	Reset(w *World)
	// Apply consumes one player's buffered intent at the start of a tick.
	Apply(w *World, p *Player, in Input)
	// Step advances the simulation by dt seconds.
	Step(w *World, dt float64)
	// CheckEnd reports the round result once a terminal condition holds. It
	// is also re-evaluated on membership changes during play.
	CheckEnd(w *World) (Result, bool)
}

// HazardSpawner is implemented by rules that want a slower secondary timer
// spawning transient hazards while the room is playing.
type HazardSpawner interface {
	SpawnInterval() time.Duration
	SpawnHazard(w *World)
}

// Projector renders the game-specific portion of the room's state tree.
type Projector interface {
	Project(w *World, root *state.Doc)
}

// FieldFor returns the play field used by a room kind. Lobbies report the
// field of the game they feed so clients can size their preview.
func FieldFor(kind Kind) Field {
	switch kind {
	case KindPong:
		return PongField()
	case KindDrop:
		return DropField()
	default:
		return DropField()
	}
}

// NewRules constructs the rule set for a simulation room kind.
func NewRules(kind Kind) (Rules, bool) {
	switch kind {
	case KindPong:
		return &PongRules{}, true
	case KindDrop:
		return &DropRules{}, true
	default:
		return nil, false
	}
}
