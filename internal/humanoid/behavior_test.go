// internal/humanoid/behavior_test.go
package humanoid

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingExecutor captures dispatched events instead of driving a browser.
type recordingExecutor struct {
	events  []MouseEventData
	slept   time.Duration
	failAt  int
	dispErr error
}

func (r *recordingExecutor) DispatchMouseEvent(_ context.Context, data MouseEventData) error {
	if r.dispErr != nil && len(r.events) >= r.failAt {
		return r.dispErr
	}
	r.events = append(r.events, data)
	return nil
}

func (r *recordingExecutor) Sleep(_ context.Context, d time.Duration) error {
	r.slept += d
	return nil
}

func TestPlanDrawsMoveAndScrollIndependently(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := NewPlanner(rng, 1920, 1080)

	const visits = 2000
	moves, reads, both := 0, 0, 0
	for i := 0; i < visits; i++ {
		actions := p.Plan()
		hasMove, hasRead := false, false
		for _, a := range actions {
			switch a.Kind {
			case ActionMouseMove:
				hasMove = true
				assert.NotEmpty(t, a.Path)
			case ActionScroll:
				assert.NotEmpty(t, a.Steps)
				// Reading scrolls cover at least 100px; a stray wheel
				// event after a move never does.
				var down float64
				for _, s := range a.Steps {
					if s.DeltaY > 0 {
						down += s.DeltaY
					}
				}
				if down >= 100 {
					hasRead = true
				}
			}
		}
		if hasMove {
			moves++
		}
		if hasRead {
			reads++
		}
		if hasMove && hasRead {
			both++
		}
	}

	// Independent 60%/40% draws, with generous slack for the sample size.
	assert.InDelta(t, 0.6, float64(moves)/visits, 0.06)
	assert.InDelta(t, 0.4, float64(reads)/visits, 0.06)
	assert.InDelta(t, 0.24, float64(both)/visits, 0.06,
		"a visit should sometimes move the mouse and scroll")
}

func TestPlanScrollDistancesWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	p := NewPlanner(rng, 1366, 768)

	for i := 0; i < 100; i++ {
		for _, action := range p.Plan() {
			if action.Kind != ActionScroll {
				continue
			}
			var down float64
			for _, step := range action.Steps {
				if step.DeltaY > 0 {
					down += step.DeltaY
				}
				assert.GreaterOrEqual(t, step.Pause, 100*time.Millisecond)
				assert.LessOrEqual(t, step.Pause, 500*time.Millisecond)
			}
			assert.LessOrEqual(t, down, 400.0+1e-9)
		}
	}
}

func TestPlanMoveTargetsStayInViewport(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p := NewPlanner(rng, 1280, 720)

	for i := 0; i < 100; i++ {
		for _, action := range p.Plan() {
			if action.Kind != ActionMouseMove {
				continue
			}
			end := action.Path[len(action.Path)-1].Pos
			assert.GreaterOrEqual(t, end.X, 0.0)
			assert.LessOrEqual(t, end.X, 1280.0)
			assert.GreaterOrEqual(t, end.Y, 0.0)
			assert.LessOrEqual(t, end.Y, 720.0)
		}
	}
}

func TestPlanAdvancesCursor(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	p := NewPlanner(rng, 1920, 1080)

	before := p.Cursor()
	for i := 0; i < 20; i++ {
		p.Plan()
	}
	// At least one of twenty plans is a mouse move, which relocates the cursor.
	assert.NotEqual(t, before, p.Cursor())
}

func TestPerformDispatchesWholePlan(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := NewPlanner(rng, 1920, 1080)
	exec := &recordingExecutor{}

	actions := p.Plan()
	Perform(context.Background(), exec, actions, zaptest.NewLogger(t))

	var want int
	for _, a := range actions {
		want += len(a.Path) + len(a.Steps)
	}
	assert.Len(t, exec.events, want)
}

func TestPerformSwallowsExecutorErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	p := NewPlanner(rng, 1920, 1080)
	exec := &recordingExecutor{failAt: 3, dispErr: errors.New("tab gone")}

	// Must not panic or propagate.
	Perform(context.Background(), exec, p.Plan(), zaptest.NewLogger(t))
	assert.LessOrEqual(t, len(exec.events), 3)
}

func TestPerformStopsOnCancelledContext(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	p := NewPlanner(rng, 1920, 1080)
	exec := &recordingExecutor{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Perform(ctx, exec, p.Plan(), zaptest.NewLogger(t))

	assert.Empty(t, exec.events)
}

func TestScrollEventsCarryCursorPosition(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	p := NewPlanner(rng, 1920, 1080)
	exec := &recordingExecutor{}

	for i := 0; i < 50; i++ {
		Perform(context.Background(), exec, p.Plan(), zaptest.NewLogger(t))
	}

	sawWheel := false
	for _, ev := range exec.events {
		if ev.Type == MouseWheel {
			sawWheel = true
			assert.False(t, ev.X == 0 && ev.Y == 0, "wheel event at origin")
		}
	}
	require.True(t, sawWheel, "no scroll action in 50 plans")
}
