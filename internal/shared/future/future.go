package future

import (
	"context"
	"sync"
)

// Future is a one-shot settlement primitive: it starts unsettled, settles
// exactly once, and stays settled forever. Resolve after the first call is a
// no-op, which lets independent producers race to settle without coordination.
type Future struct {
	once sync.Once
	done chan struct{}
}

// New returns an unsettled future.
func New() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve settles the future. Idempotent.
func (f *Future) Resolve() {
	f.once.Do(func() { close(f.done) })
}

// Done returns a channel closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsSettled reports whether the future has settled.
func (f *Future) IsSettled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until settlement or context cancellation.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
