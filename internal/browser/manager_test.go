// internal/browser/manager_test.go
package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTabCloseIsIdempotent(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	cancels := 0
	tab := &Tab{
		cancel: func() { cancels++ },
		wg:     &wg,
	}

	tab.Close()
	tab.Close()
	tab.Close()

	assert.Equal(t, 1, cancels)

	// A second Close must not have called wg.Done again; Wait would panic
	// on a negative counter, so returning here proves the count is exact.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitgroup never drained")
	}
}

func TestTabCloseCancelsContext(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	tab := &Tab{Ctx: ctx, cancel: cancel, wg: &wg}

	tab.Close()
	assert.ErrorIs(t, tab.Ctx.Err(), context.Canceled)
}

func TestAllocatorContextSurvivesCallerCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())

	allocCtx, cancelAlloc := newAllocatorContext(parent, nil)
	defer cancelAlloc()

	// An interrupt cancels the command context; the browser process must
	// keep running so mid-navigation tabs can finish.
	cancelParent()
	assert.NoError(t, allocCtx.Err())

	cancelAlloc()
	select {
	case <-allocCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("allocator context never cancelled by its own cancel func")
	}
}
