package game

import "math"

// Field holds the play-field bounds for one room. Every position written to
// the state tree is clamped inside these bounds.
type Field struct {
	Width  float64
	Height float64
}

// ClampX bounds an x coordinate so a body with the given half-extent stays
// inside the field.
func (f Field) ClampX(x, half float64) float64 {
	return clamp(x, half, f.Width-half)
}

// ClampY bounds a y coordinate so a body with the given half-extent stays
// inside the field.
func (f Field) ClampY(y, half float64) float64 {
	return clamp(y, half, f.Height-half)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// circleRectOverlap reports whether a circle at (cx, cy) intersects the
// axis-aligned box centered at (rx, ry) with the given half extents.
func circleRectOverlap(cx, cy, radius, rx, ry, halfW, halfH float64) bool {
	nearestX := clamp(cx, rx-halfW, rx+halfW)
	nearestY := clamp(cy, ry-halfH, ry+halfH)
	dx := cx - nearestX
	dy := cy - nearestY
	return dx*dx+dy*dy <= radius*radius
}
