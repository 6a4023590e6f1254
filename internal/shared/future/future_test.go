package future

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIsIdempotent(t *testing.T) {
	f := New()
	assert.False(t, f.IsSettled())

	f.Resolve()
	f.Resolve()

	assert.True(t, f.IsSettled())
	select {
	case <-f.Done():
	default:
		t.Fatal("done channel should be closed after resolve")
	}
}

func TestWaitBlocksUntilResolve(t *testing.T) {
	f := New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Resolve()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.Wait(ctx))
}

func TestWaitHonorsContext(t *testing.T) {
	f := New()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.IsSettled())
}
