// internal/humanoid/types.go
package humanoid

import "time"

// MouseEventType identifies the kind of mouse event dispatched to the
// browser. The strings align with the CDP Input domain.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseEventData holds everything the executor needs to dispatch one mouse
// event. The structure is transport agnostic so tests can record events
// without a browser.
type MouseEventData struct {
	Type MouseEventType
	X    float64
	Y    float64
	// DeltaX and DeltaY carry scroll distances for MouseWheel events.
	// Positive DeltaY scrolls the page down.
	DeltaX float64
	DeltaY float64
}

// TimedPoint is one step of a cursor trajectory: where the cursor lands and
// how long to dwell before the next step.
type TimedPoint struct {
	Pos   Vector2D
	Pause time.Duration
}

// ActionKind discriminates the steps of an interaction plan.
type ActionKind string

const (
	// ActionMouseMove traces a curved cursor path to a random point.
	ActionMouseMove ActionKind = "mouse_move"
	// ActionScroll emits a sequence of wheel events.
	ActionScroll ActionKind = "scroll"
)

// ScrollStep is one wheel event within a scroll action, with the pause that
// follows it.
type ScrollStep struct {
	// DeltaY is the vertical scroll distance in pixels. Positive moves the
	// viewport down the page.
	DeltaY float64
	Pause  time.Duration
}

// Action is a single planned interaction. Exactly one of Path or Steps is
// populated, matching Kind. At is the cursor position wheel events are
// dispatched from.
type Action struct {
	Kind  ActionKind
	Path  []TimedPoint
	Steps []ScrollStep
	At    Vector2D
}
