// internal/humanoid/executor.go
package humanoid

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// CDPExecutor dispatches interaction events through a chromedp browsing
// context. It is stateless; the context passed to each call selects the tab.
type CDPExecutor struct{}

// NewCDPExecutor returns an Executor backed by the CDP Input domain.
func NewCDPExecutor() *CDPExecutor {
	return &CDPExecutor{}
}

func (e *CDPExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	params := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y)
	if data.Type == MouseWheel {
		params = params.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
	}
	return chromedp.Run(ctx, params)
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
