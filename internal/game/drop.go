package game

import (
	"time"

	"github.com/RyanMercier/gambleapp-sub000/internal/state"
)

const (
	dropTickRate = 30
	dropFieldW   = 800.0
	dropFieldH   = 600.0

	stickHalf  = 14.0  // player collision half extent
	stickSpeed = 260.0 // pixels per second toward the steering target

	plateGravity   = 220.0 // downward acceleration, pixels per second²
	plateMinSpeed  = 60.0
	plateMaxSpeed  = 140.0
	plateFallCap   = 600.0
	plateMinRadius = 12.0
	plateMaxRadius = 28.0
	plateInterval  = 2 * time.Second
)

// DropRules drives the survival game: plates rain down and the last player
// standing wins.
type DropRules struct{}

func (r *DropRules) Kind() Kind            { return KindDrop }
func (r *DropRules) TickRate() int         { return dropTickRate }
func (r *DropRules) MinPlayers() int       { return 2 }
func (r *DropRules) MaxPlayers() int       { return 6 }
func (r *DropRules) CountdownSeconds() int { return 3 }

// DropField is the fixed play field for the survival game.
func DropField() Field {
	return Field{Width: dropFieldW, Height: dropFieldH}
}

func (r *DropRules) Init(w *World) {
	w.Plates = nil
	count := w.PlayerCount()
	for i, p := range w.Players() {
		p.Alive = true
		p.Score = 0
		p.X = w.Field.Width * float64(i+1) / float64(count+1)
		p.X = w.Field.ClampX(p.X, stickHalf)
		p.TargetX = p.X
	}
}

func (r *DropRules) Reset(w *World) {
	w.Plates = nil
	w.Winner = ""
	for _, p := range w.Players() {
		p.Ready = false
		p.Alive = true
		p.Score = 0
		p.X = w.Field.Width / 2
		p.TargetX = p.X
	}
}

func (r *DropRules) Apply(w *World, p *Player, in Input) {
	if in.HasTargetX {
		p.TargetX = w.Field.ClampX(in.TargetX, stickHalf)
	}
	if in.Died {
		p.Alive = false
	}
}

func (r *DropRules) Step(w *World, dt float64) {
	for _, p := range w.Players() {
		if !p.Alive {
			continue
		}
		p.X = approach(p.X, p.TargetX, stickSpeed*dt)
		p.X = w.Field.ClampX(p.X, stickHalf)
	}

	floor := w.Field.Height - stickHalf
	for i := len(w.Plates) - 1; i >= 0; i-- {
		plate := w.Plates[i]
		plate.VY += plateGravity * dt
		if plate.VY > plateFallCap {
			plate.VY = plateFallCap
		}
		plate.Y += plate.VY * dt

		if plate.Y-plate.Radius > w.Field.Height {
			w.RemovePlate(i)
			continue
		}

		for _, p := range w.Players() {
			if !p.Alive {
				continue
			}
			if circleRectOverlap(plate.X, plate.Y, plate.Radius, p.X, floor, stickHalf, stickHalf) {
				p.Alive = false
				w.RemovePlate(i)
				break
			}
		}
	}
}

// SpawnInterval satisfies HazardSpawner; the room schedules plate spawns on
// its own timer while the phase is playing.
func (r *DropRules) SpawnInterval() time.Duration {
	return plateInterval
}

// SpawnHazard drops a new plate at a random horizontal offset along the top
// edge with speed and size drawn from bounded ranges.
func (r *DropRules) SpawnHazard(w *World) {
	rng := w.Rand()
	radius := plateMinRadius + rng.Float64()*(plateMaxRadius-plateMinRadius)
	w.Plates = append(w.Plates, &Plate{
		ID:     w.NextPlateID(),
		X:      w.Field.ClampX(rng.Float64()*w.Field.Width, radius),
		Y:      radius,
		VY:     plateMinSpeed + rng.Float64()*(plateMaxSpeed-plateMinSpeed),
		Radius: radius,
	})
}

func (r *DropRules) CheckEnd(w *World) (Result, bool) {
	if w.AliveCount() > 1 {
		return Result{}, false
	}
	for _, p := range w.Players() {
		if p.Alive {
			return Result{WinnerID: p.ID, Message: p.Name + " survived"}, true
		}
	}
	return Result{Message: "nobody survived"}, true
}

func (r *DropRules) Project(w *World, root *state.Doc) {
	w.projectPlayers(root, playerFields{x: true})
	plates := state.NewDoc()
	for _, plate := range w.Plates {
		entry := state.NewDoc()
		entry.Set("x", w.Field.ClampX(plate.X, 0))
		entry.Set("y", w.Field.ClampY(plate.Y, 0))
		entry.Set("radius", plate.Radius)
		plates.Set(plate.ID, entry)
	}
	root.Set("plates", plates)
}
