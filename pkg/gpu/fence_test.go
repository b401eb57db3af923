package gpu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFence(t *testing.T) {
	t.Run("satisfied", func(t *testing.T) {
		f := satisfiedFence(nil)
		assert.True(t, f.Poll())
		assert.NoError(t, f.Wait(0))
		assert.NoError(t, f.Wait(time.Nanosecond))
		assert.NoError(t, f.Err())
	})

	t.Run("pending", func(t *testing.T) {
		f := newFence(nil)
		assert.False(t, f.Poll())
		assert.NoError(t, f.Err(), "no error while pending")

		go func() {
			time.Sleep(10 * time.Millisecond)
			f.signal(nil)
		}()
		require.NoError(t, f.Wait(0))
		assert.True(t, f.Poll())
	})

	t.Run("signalled once", func(t *testing.T) {
		f := newFence(nil)
		boom := errors.New("boom")
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.signal(boom)
			}()
		}
		wg.Wait()
		f.signal(nil)
		assert.Equal(t, boom, f.Wait(0))
		assert.Equal(t, boom, f.Err())
	})

	t.Run("poll never resets", func(t *testing.T) {
		f := satisfiedFence(nil)
		for i := 0; i < 3; i++ {
			assert.True(t, f.Poll())
		}
		select {
		case <-f.Done():
		default:
			t.Fatal("done channel should be closed")
		}
	})
}

func TestFenceTimeout(t *testing.T) {
	c := newTestContext(t)

	t.Run("wait", func(t *testing.T) {
		f := newFence(c)
		start := time.Now()
		err := f.Wait(20 * time.Millisecond)
		assert.True(t, errors.Is(err, ErrTimedOut), "got %v", err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
		assert.False(t, f.Poll(), "timing out does not satisfy the fence")

		// The work finishes later; the fence still reports it.
		f.signal(nil)
		assert.NoError(t, f.Wait(20*time.Millisecond))
	})

	t.Run("wait context", func(t *testing.T) {
		f := newFence(c)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := f.WaitContext(ctx)
		assert.True(t, errors.Is(err, ErrTimedOut), "got %v", err)
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

		f.signal(nil)
		assert.NoError(t, f.WaitContext(ctx), "satisfied fence ignores the context")
	})

	t.Run("deadline", func(t *testing.T) {
		f := newFence(c)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := f.WaitContext(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	})

	assert.Equal(t, int64(3), c.Stats().FenceTimeouts)
}
