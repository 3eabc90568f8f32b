// internal/humanoid/behavior.go
package humanoid

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Planner decides what incidental activity to perform on a freshly loaded
// page: a curved mouse movement, a reading scroll, both, or neither. Plans
// are generated up front so they can be inspected in tests without a
// browser.
type Planner struct {
	rng      *rand.Rand
	viewport Vector2D
	cursor   Vector2D
}

// NewPlanner creates a Planner for a viewport of the given dimensions. The
// cursor starts at a random position in the upper half of the viewport, which
// is where it would plausibly sit after typing a URL.
func NewPlanner(rng *rand.Rand, width, height int) *Planner {
	vp := Vector2D{X: float64(width), Y: float64(height)}
	return &Planner{
		rng:      rng,
		viewport: vp,
		cursor:   Vector2D{X: vp.X * rng.Float64(), Y: vp.Y * rng.Float64() * 0.5},
	}
}

// Cursor returns the planner's current cursor position.
func (p *Planner) Cursor() Vector2D {
	return p.cursor
}

// Plan produces the interaction sequence for one page visit and advances the
// tracked cursor position. The draws are independent: 60% of visits get a
// mouse movement and 40% get a reading scroll, so some visits do both and
// some do nothing at all. A mouse movement occasionally picks up a small
// stray wheel event, the way a real trackpad brush does.
func (p *Planner) Plan() []Action {
	var actions []Action
	if p.rng.Float64() < 0.6 {
		actions = append(actions, p.planMouseMove())
		if p.rng.Float64() < 0.1 {
			actions = append(actions, p.planStrayScroll())
		}
	}
	if p.rng.Float64() < 0.4 {
		actions = append(actions, p.planScroll())
	}
	return actions
}

func (p *Planner) planMouseMove() Action {
	// Keep the target away from the viewport edges.
	target := Vector2D{
		X: 40 + p.rng.Float64()*(p.viewport.X-80),
		Y: 40 + p.rng.Float64()*(p.viewport.Y-80),
	}
	path := Trajectory(p.rng, p.cursor, target)
	p.cursor = target
	return Action{Kind: ActionMouseMove, Path: path}
}

// planScroll scrolls 100-400px down the page in wheel increments, then
// scrolls part of the way back up about 30% of the time.
func (p *Planner) planScroll() Action {
	total := 100 + p.rng.Float64()*300

	var steps []ScrollStep
	remaining := total
	for remaining > 0 {
		delta := 80 + p.rng.Float64()*60
		if delta > remaining {
			delta = remaining
		}
		steps = append(steps, ScrollStep{DeltaY: delta, Pause: p.scrollPause()})
		remaining -= delta
	}

	if p.rng.Float64() < 0.3 {
		back := total * (0.3 + p.rng.Float64()*0.4)
		for back > 0 {
			delta := 80 + p.rng.Float64()*60
			if delta > back {
				delta = back
			}
			steps = append(steps, ScrollStep{DeltaY: -delta, Pause: p.scrollPause()})
			back -= delta
		}
	}

	return Action{Kind: ActionScroll, Steps: steps, At: p.cursor}
}

func (p *Planner) planStrayScroll() Action {
	return Action{
		Kind: ActionScroll,
		Steps: []ScrollStep{{
			DeltaY: 30 + p.rng.Float64()*50,
			Pause:  p.scrollPause(),
		}},
		At: p.cursor,
	}
}

func (p *Planner) scrollPause() time.Duration {
	return time.Duration(100+p.rng.Intn(401)) * time.Millisecond
}

// Perform executes a plan against the executor. Interaction is cosmetic:
// failures are logged at debug level and never propagate, so a dropped input
// event cannot fail a page visit. Context cancellation stops the plan early.
func Perform(ctx context.Context, exec Executor, actions []Action, logger *zap.Logger) {
	for _, action := range actions {
		if ctx.Err() != nil {
			return
		}
		var err error
		switch action.Kind {
		case ActionMouseMove:
			err = performMove(ctx, exec, action.Path)
		case ActionScroll:
			err = performScroll(ctx, exec, action.At, action.Steps)
		}
		if err != nil {
			if logger != nil {
				logger.Debug("Interaction step failed",
					zap.String("action", string(action.Kind)),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func performMove(ctx context.Context, exec Executor, path []TimedPoint) error {
	for _, pt := range path {
		if err := exec.DispatchMouseEvent(ctx, MouseEventData{
			Type: MouseMove,
			X:    pt.Pos.X,
			Y:    pt.Pos.Y,
		}); err != nil {
			return err
		}
		if err := exec.Sleep(ctx, pt.Pause); err != nil {
			return err
		}
	}
	return nil
}

func performScroll(ctx context.Context, exec Executor, at Vector2D, steps []ScrollStep) error {
	for _, step := range steps {
		if err := exec.DispatchMouseEvent(ctx, MouseEventData{
			Type:   MouseWheel,
			X:      at.X,
			Y:      at.Y,
			DeltaY: step.DeltaY,
		}); err != nil {
			return err
		}
		if err := exec.Sleep(ctx, step.Pause); err != nil {
			return err
		}
	}
	return nil
}
