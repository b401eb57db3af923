package gpu

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Fence signals completion of submitted device work. It moves from pending
// to satisfied exactly once and never resets.
type Fence struct {
	ctx  *Context
	done chan struct{}
	once sync.Once
	err  error
}

func newFence(c *Context) *Fence {
	return &Fence{ctx: c, done: make(chan struct{})}
}

// satisfiedFence returns a fence for work that needed no device submission.
func satisfiedFence(c *Context) *Fence {
	f := newFence(c)
	f.signal(nil)
	return f
}

// signal satisfies the fence with the result of the device work. Only the
// first call has an effect.
func (f *Fence) signal(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Poll reports whether the work has finished. It never blocks.
func (f *Fence) Poll() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the work finishes and returns its error. A timeout <= 0
// waits indefinitely; otherwise Wait gives up with ErrTimedOut. Giving up does
// not cancel the device work.
func (f *Fence) Wait(timeout time.Duration) error {
	if timeout <= 0 || f.Poll() {
		<-f.done
		return f.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.err
	case <-timer.C:
		f.timedOut()
		return errors.Wrapf(ErrTimedOut, "after %s", timeout)
	}
}

// WaitContext is Wait bounded by ctx instead of a timeout. When ctx ends first
// the error matches ErrTimedOut and unwraps to ctx.Err().
func (f *Fence) WaitContext(ctx context.Context) error {
	if f.Poll() {
		return f.err
	}
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		f.timedOut()
		return &waitError{cause: ctx.Err()}
	}
}

// Err returns the execution error of a satisfied fence, nil while pending.
func (f *Fence) Err() error {
	if !f.Poll() {
		return nil
	}
	return f.err
}

// Done returns a channel closed when the fence is satisfied.
func (f *Fence) Done() <-chan struct{} {
	return f.done
}

func (f *Fence) timedOut() {
	if f.ctx != nil {
		f.ctx.record(func(s *Stats) { s.FenceTimeouts++ })
	}
}
