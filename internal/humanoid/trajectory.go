// internal/humanoid/trajectory.go
package humanoid

import (
	"math/rand"
	"time"
)

const (
	// controlOffset bounds how far the curve's control point may wander
	// from the midpoint of the movement, per axis.
	controlOffset = 100.0
	// jitterAmplitude is the per-step positional noise in pixels.
	jitterAmplitude = 2.0
	// minSteps and maxSteps bound how many samples a movement produces.
	minSteps = 10
	maxSteps = 20
)

// Trajectory generates a curved cursor path from start to end as a quadratic
// Bezier curve with per-step jitter and human pacing: slow near the endpoints,
// fast through the middle. The final point lands exactly on end.
func Trajectory(rng *rand.Rand, start, end Vector2D) []TimedPoint {
	dist := start.Dist(end)

	// Longer movements get more intermediate samples, clamped so even a
	// cross-screen move stays within a believable sample count.
	steps := minSteps + int(dist/100)
	if steps > maxSteps {
		steps = maxSteps
	}

	control := start.Midpoint(end).Add(Vector2D{
		X: (rng.Float64()*2 - 1) * controlOffset,
		Y: (rng.Float64()*2 - 1) * controlOffset,
	})

	path := make([]TimedPoint, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)

		// Quadratic Bezier: P(t) = (1-t)^2*P0 + 2(1-t)t*C + t^2*P1.
		omt := 1.0 - t
		pos := start.Mul(omt * omt).
			Add(control.Mul(2 * omt * t)).
			Add(end.Mul(t * t))

		if i < steps {
			pos = pos.Add(Vector2D{
				X: (rng.Float64()*2 - 1) * jitterAmplitude,
				Y: (rng.Float64()*2 - 1) * jitterAmplitude,
			})
		} else {
			pos = end
		}

		path = append(path, TimedPoint{Pos: pos, Pause: stepPause(rng, t)})
	}

	return path
}

// stepPause returns the dwell time after a step at curve position t. The
// first and last fifths of the movement are slower than the middle, which
// approximates acceleration out of and deceleration into the endpoints.
func stepPause(rng *rand.Rand, t float64) time.Duration {
	if t < 0.2 || t > 0.8 {
		return time.Duration(5+rng.Intn(11)) * time.Millisecond
	}
	return time.Duration(1+rng.Intn(5)) * time.Millisecond
}
