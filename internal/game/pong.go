package game

import (
	"math"

	"github.com/RyanMercier/gambleapp-sub000/internal/state"
)

const (
	pongTickRate   = 60
	pongFieldW     = 800.0
	pongFieldH     = 600.0
	pongScoreLimit = 5

	paddleMargin     = 30.0  // paddle center distance from the side wall
	paddleHalfWidth  = 6.0
	paddleHalfHeight = 50.0
	paddleSpeed      = 420.0 // pixels per second toward the requested center

	ballRadius     = 8.0
	ballServeSpeed = 300.0
	ballSpeedup    = 1.05 // per paddle contact
	ballMaxSpeed   = 900.0
	ballMaxDeflect = 260.0 // vertical speed added at full paddle offset
	serveDelaySec  = 1.0
)

// PongRules drives the two-player paddle game: first to the score limit wins.
type PongRules struct {
	serveTicks int
	serveDir   float64
}

func (r *PongRules) Kind() Kind            { return KindPong }
func (r *PongRules) TickRate() int         { return pongTickRate }
func (r *PongRules) MinPlayers() int       { return 2 }
func (r *PongRules) MaxPlayers() int       { return 2 }
func (r *PongRules) CountdownSeconds() int { return 3 }

// PongField is the fixed play field for the paddle game.
func PongField() Field {
	return Field{Width: pongFieldW, Height: pongFieldH}
}

func (r *PongRules) Init(w *World) {
	for _, p := range w.Players() {
		p.Alive = true
		p.Score = 0
		p.PaddleY = w.Field.Height / 2
		p.TargetY = p.PaddleY
	}
	r.serveTicks = 0
	r.serveDir = 1
	w.Ball = &Ball{Radius: ballRadius}
	r.serve(w, r.serveDir)
}

func (r *PongRules) Reset(w *World) {
	w.Ball = nil
	w.Winner = ""
	for _, p := range w.Players() {
		p.Ready = false
		p.Alive = true
		p.Score = 0
		p.PaddleY = w.Field.Height / 2
		p.TargetY = p.PaddleY
	}
}

func (r *PongRules) Apply(w *World, p *Player, in Input) {
	if in.HasPaddleY {
		p.TargetY = w.Field.ClampY(in.PaddleY, paddleHalfHeight)
	}
	if in.Died {
		p.Alive = false
	}
}

func (r *PongRules) Step(w *World, dt float64) {
	for _, p := range w.Players() {
		p.PaddleY = approach(p.PaddleY, p.TargetY, paddleSpeed*dt)
		p.PaddleY = w.Field.ClampY(p.PaddleY, paddleHalfHeight)
	}

	ball := w.Ball
	if ball == nil {
		return
	}
	if !ball.Visible {
		if r.serveTicks > 0 {
			r.serveTicks--
			if r.serveTicks == 0 {
				r.serve(w, r.serveDir)
			}
		}
		return
	}

	ball.X += ball.VX * dt
	ball.Y += ball.VY * dt

	// Reflective bounce off the horizontal walls.
	if ball.Y-ball.Radius <= 0 {
		ball.Y = ball.Radius
		ball.VY = math.Abs(ball.VY)
	} else if ball.Y+ball.Radius >= w.Field.Height {
		ball.Y = w.Field.Height - ball.Radius
		ball.VY = -math.Abs(ball.VY)
	}

	for _, p := range w.Players() {
		r.collidePaddle(w, p, ball)
	}

	if ball.X-ball.Radius <= 0 {
		r.score(w, sideRight)
	} else if ball.X+ball.Radius >= w.Field.Width {
		r.score(w, sideLeft)
	}
}

const (
	sideLeft  = 0
	sideRight = 1
)

func paddleX(w *World, side int) float64 {
	if side == sideLeft {
		return paddleMargin
	}
	return w.Field.Width - paddleMargin
}

// collidePaddle reflects the ball off a paddle, deflecting it by the contact
// offset, speeding it up, and nudging it clear so the next tick cannot hit
// the same paddle again.
func (r *PongRules) collidePaddle(w *World, p *Player, ball *Ball) {
	px := paddleX(w, p.Slot)
	if !circleRectOverlap(ball.X, ball.Y, ball.Radius, px, p.PaddleY, paddleHalfWidth, paddleHalfHeight) {
		return
	}
	// Only catch a ball moving into the paddle.
	if p.Slot == sideLeft && ball.VX >= 0 {
		return
	}
	if p.Slot == sideRight && ball.VX <= 0 {
		return
	}

	offset := (ball.Y - p.PaddleY) / paddleHalfHeight
	offset = clamp(offset, -1, 1)

	ball.VX = -ball.VX * ballSpeedup
	ball.VY += offset * ballMaxDeflect

	speed := math.Hypot(ball.VX, ball.VY)
	if speed > ballMaxSpeed {
		scale := ballMaxSpeed / speed
		ball.VX *= scale
		ball.VY *= scale
	}

	// Nudge outside the paddle face.
	if p.Slot == sideLeft {
		ball.X = px + paddleHalfWidth + ball.Radius + 1
	} else {
		ball.X = px - paddleHalfWidth - ball.Radius - 1
	}
}

// score credits the scoring side, hides the ball, and schedules the delayed
// re-serve toward the side that conceded.
func (r *PongRules) score(w *World, side int) {
	for _, p := range w.Players() {
		if p.Slot == side {
			p.Score++
		}
	}
	ball := w.Ball
	ball.Visible = false
	ball.VX = 0
	ball.VY = 0
	ball.X = w.Field.Width / 2
	ball.Y = w.Field.Height / 2
	r.serveTicks = int(serveDelaySec * pongTickRate)
	if side == sideLeft {
		r.serveDir = 1
	} else {
		r.serveDir = -1
	}
}

// serve centers the ball and launches it horizontally with a small random
// vertical component.
func (r *PongRules) serve(w *World, dir float64) {
	ball := w.Ball
	ball.X = w.Field.Width / 2
	ball.Y = w.Field.Height / 2
	ball.VX = dir * ballServeSpeed
	ball.VY = (w.Rand().Float64()*2 - 1) * ballServeSpeed * 0.4
	ball.Visible = true
}

func (r *PongRules) CheckEnd(w *World) (Result, bool) {
	players := w.Players()
	if len(players) < 2 {
		if len(players) == 1 {
			return Result{WinnerID: players[0].ID, Message: players[0].Name + " wins by forfeit"}, true
		}
		return Result{Message: "all players left"}, true
	}
	for _, p := range players {
		if p.Score >= pongScoreLimit {
			return Result{WinnerID: p.ID, Message: p.Name + " wins"}, true
		}
	}
	return Result{}, false
}

func (r *PongRules) Project(w *World, root *state.Doc) {
	w.projectPlayers(root, playerFields{score: true, paddleY: true})
	ball := state.NewDoc()
	if w.Ball != nil {
		ball.Set("x", w.Field.ClampX(w.Ball.X, 0))
		ball.Set("y", w.Field.ClampY(w.Ball.Y, 0))
		ball.Set("visible", w.Ball.Visible)
	} else {
		ball.Set("x", w.Field.Width/2)
		ball.Set("y", w.Field.Height/2)
		ball.Set("visible", false)
	}
	root.Set("ball", ball)
}

// approach moves current toward target by at most step.
func approach(current, target, step float64) float64 {
	if math.Abs(target-current) <= step {
		return target
	}
	if target > current {
		return current + step
	}
	return current - step
}
