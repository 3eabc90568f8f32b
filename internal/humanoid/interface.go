// internal/humanoid/interface.go
package humanoid

import (
	"context"
	"time"
)

// Executor is the low-level surface the interaction simulator drives. The
// production implementation dispatches CDP input events; tests substitute a
// recorder.
type Executor interface {
	// DispatchMouseEvent sends one mouse event to the page.
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error

	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}
