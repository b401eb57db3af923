package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/pool"
)

// Mode is how a vector's memory is used by kernels.
type Mode int

const (
	// ModeMutable vectors are host-visible and may be kernel write targets.
	ModeMutable Mode = iota
	// ModeImmutable vectors are device-resident and read-only to kernels.
	ModeImmutable
)

func (m Mode) String() string {
	switch m {
	case ModeMutable:
		return "mutable"
	case ModeImmutable:
		return "immutable"
	default:
		return "unknown"
	}
}

// Vector is a fixed-length uint32 array in device memory.
//
// A mutable vector may be the write target of at most one in-flight
// dispatch. Reading it while that dispatch runs gives unspecified contents;
// wait on the dispatch fence first.
//
// Device memory outlives Release while an upload or dispatch still uses it.
type Vector struct {
	ctx    *Context
	buf    driver.Buffer // nil when n == 0
	n      int
	mode   Mode
	upload *Fence

	busy     atomic.Bool
	released atomic.Bool

	mu   sync.Mutex
	refs int // in-flight device commands using buf
}

// Upload copies data into a new mutable vector. The copy has completed when
// Upload returns. Empty data gives a zero-length vector without device memory.
func (c *Context) Upload(data []uint32) (*Vector, error) {
	v, fence, err := c.upload(data, ModeMutable)
	if err != nil {
		return nil, err
	}
	if err := fence.Wait(0); err != nil {
		v.Release()
		return nil, err
	}
	return v, nil
}

// UploadImmutable starts copying data into a new device-resident vector and
// returns the fence of that copy. Dispatching the vector before the fence is
// satisfied fails with ErrUploadPending. data may be reused once
// UploadImmutable returns.
func (c *Context) UploadImmutable(data []uint32) (*Vector, *Fence, error) {
	return c.upload(data, ModeImmutable)
}

func (c *Context) upload(data []uint32, mode Mode) (*Vector, *Fence, error) {
	if err := c.alive(); err != nil {
		return nil, nil, err
	}

	n := len(data)
	v := &Vector{ctx: c, n: n, mode: mode}
	if n == 0 {
		v.upload = satisfiedFence(c)
		return v, v.upload, nil
	}

	buf, err := c.device.Alloc(n)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "upload of %d elements", n)
	}
	v.buf = buf
	v.upload = newFence(c)
	v.refs = 1

	// The device may read the staging copy after we return.
	staging := pool.GetWords(n)
	copy(staging, data)
	err = buf.Write(staging, func(err error) {
		pool.PutWords(staging)
		v.upload.signal(err)
		v.unpin()
	})
	if err != nil {
		pool.PutWords(staging)
		buf.Release()
		return nil, nil, err
	}

	c.record(func(s *Stats) {
		s.Uploads++
		s.BytesUploaded += int64(n) * 4
	})
	return v, v.upload, nil
}

// Len returns the number of elements.
func (v *Vector) Len() int {
	return v.n
}

// Mode returns how the vector was uploaded.
func (v *Vector) Mode() Mode {
	return v.mode
}

// Uploaded returns the fence of the initial upload.
func (v *Vector) Uploaded() *Fence {
	return v.upload
}

// Read returns a host copy of the vector. An immutable vector's upload is
// waited on first.
func (v *Vector) Read() ([]uint32, error) {
	if v.released.Load() {
		return nil, errors.Wrap(ErrReleased, "read of vector")
	}
	out := make([]uint32, v.n)
	if v.n == 0 {
		return out, nil
	}
	if err := v.upload.Wait(0); err != nil {
		return nil, err
	}
	if err := v.buf.Read(out); err != nil {
		return nil, err
	}

	v.ctx.record(func(s *Stats) { s.BytesDownloaded += int64(v.n) * 4 })
	return out, nil
}

// Release frees the device memory. If an upload or dispatch still uses the
// vector, the memory is freed when the last of them completes. Safe to call
// twice.
func (v *Vector) Release() {
	v.mu.Lock()
	if v.released.Load() {
		v.mu.Unlock()
		return
	}
	v.released.Store(true)
	free := v.refs == 0
	v.mu.Unlock()
	if free {
		v.free()
	}
}

// pin keeps the device memory alive for one device command. It fails once
// the vector is released.
func (v *Vector) pin() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released.Load() {
		return false
	}
	v.refs++
	return true
}

func (v *Vector) unpin() {
	v.mu.Lock()
	v.refs--
	free := v.refs == 0 && v.released.Load()
	v.mu.Unlock()
	if free {
		v.free()
	}
}

func (v *Vector) free() {
	if v.buf != nil {
		v.buf.Release()
	}
}

// acquire marks the vector as the write target of a dispatch.
func (v *Vector) acquire() bool {
	return v.busy.CompareAndSwap(false, true)
}

func (v *Vector) releaseTarget() {
	v.busy.Store(false)
}
