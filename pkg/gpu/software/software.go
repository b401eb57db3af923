// Package software implements a compute device that executes kernels on the host.
//
// It follows the same execution model as a GPU queue so that code written
// against it behaves identically on real hardware:
//   - one in-order submission queue per device, bounded by QueueDepth
//   - uploads and kernel launches complete asynchronously and report through
//     the driver's done callbacks
//   - a launch is split into work-groups of GroupSize elements that run in
//     parallel, in no particular order, on up to Workers goroutines
//   - device memory is budgeted (MemoryLimitBytes) and allocation beyond the
//     budget fails with driver.ErrDeviceResource
//
// Kernels are "compiled" by validating the descriptor's source signature
// against its binding layout and then binding the descriptor's element rule.
package software

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
	"github.com/orneryd/gpublas/pkg/pool"
)

// Errors
var (
	ErrInvalidBuffer = errors.New("software: invalid buffer")
	ErrInvalidLaunch = errors.New("software: invalid launch")
)

// Config controls the software device.
type Config struct {
	// Workers is the number of work-groups executed concurrently.
	Workers int

	// QueueDepth bounds the number of pending submissions.
	QueueDepth int

	// MemoryLimitBytes caps device memory (0 = 1GB).
	MemoryLimitBytes uint64
}

const defaultMemoryLimit = 1 << 30

// DefaultConfig uses one worker per CPU and a queue of 64 submissions.
func DefaultConfig() Config {
	return Config{
		Workers:          runtime.NumCPU(),
		QueueDepth:       64,
		MemoryLimitBytes: defaultMemoryLimit,
	}
}

// IsAvailable always returns true: the software device needs no hardware.
func IsAvailable() bool {
	return true
}

// DeviceCount returns 1.
func DeviceCount() int {
	return 1
}

type command struct {
	run  func() error
	done func(error)
}

// Device is a host-executing compute device.
type Device struct {
	config Config
	info   driver.Info

	queue chan command
	quit  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	allocated atomic.Int64
}

var _ driver.Device = (*Device)(nil)

// NewDevice starts a software device and its queue goroutine.
func NewDevice(config Config) (*Device, error) {
	def := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.QueueDepth <= 0 {
		config.QueueDepth = def.QueueDepth
	}
	if config.MemoryLimitBytes == 0 {
		config.MemoryLimitBytes = def.MemoryLimitBytes
	}

	d := &Device{
		config: config,
		info: driver.Info{
			ID:           0,
			Name:         "Software Compute Device",
			Vendor:       "gpublas",
			Backend:      "software",
			MemoryBytes:  config.MemoryLimitBytes,
			ComputeUnits: config.Workers,
			MaxWorkGroup: kernels.GroupSize,
		},
		queue: make(chan command, config.QueueDepth),
		quit:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d, nil
}

// loop executes queued commands in submission order. Once the device is
// released nothing else starts; pending commands fail with ErrDeviceLost.
func (d *Device) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.quit:
			d.drain()
			return
		default:
		}
		select {
		case cmd := <-d.queue:
			cmd.done(cmd.run())
		case <-d.quit:
			d.drain()
			return
		}
	}
}

func (d *Device) drain() {
	for {
		select {
		case cmd := <-d.queue:
			cmd.done(errors.Wrap(driver.ErrDeviceLost, "software: device released"))
		default:
			return
		}
	}
}

func (d *Device) submit(cmd command) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.Wrap(driver.ErrDeviceLost, "software: device released")
	}
	select {
	case d.queue <- cmd:
		return nil
	default:
		return errors.Wrapf(driver.ErrSubmission, "software: queue full (%d pending)", cap(d.queue))
	}
}

// Info returns the device description.
func (d *Device) Info() driver.Info {
	return d.info
}

// Allocated returns the device memory currently in use, in bytes.
func (d *Device) Allocated() int64 {
	return d.allocated.Load()
}

// Release stops the queue. Work already running finishes; queued work fails.
func (d *Device) Release() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.quit)
	d.mu.Unlock()
	d.wg.Wait()
}

// Alloc reserves memory for n elements.
func (d *Device) Alloc(n int) (driver.Buffer, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidBuffer, "negative length %d", n)
	}
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, errors.Wrap(driver.ErrDeviceLost, "software: device released")
	}

	size := int64(n) * 4
	limit := int64(d.config.MemoryLimitBytes)
	for {
		cur := d.allocated.Load()
		if cur+size > limit {
			return nil, errors.Wrapf(driver.ErrDeviceResource,
				"software: %d bytes requested, %d of %d in use", size, cur, limit)
		}
		if d.allocated.CompareAndSwap(cur, cur+size) {
			break
		}
	}
	return &Buffer{device: d, mem: pool.GetWords(n), n: n}, nil
}

// Buffer is software device memory.
type Buffer struct {
	device   *Device
	mem      []uint32
	n        int
	released atomic.Bool
}

var _ driver.Buffer = (*Buffer)(nil)

// Len returns the number of elements.
func (b *Buffer) Len() int {
	return b.n
}

// Write queues a copy of data into device memory.
func (b *Buffer) Write(data []uint32, done func(error)) error {
	if b.released.Load() {
		return errors.Wrap(ErrInvalidBuffer, "write to released buffer")
	}
	if len(data) != b.n {
		return errors.Wrapf(ErrInvalidBuffer, "write of %d elements into buffer of %d", len(data), b.n)
	}
	return b.device.submit(command{
		run: func() error {
			copy(b.mem, data)
			return nil
		},
		done: done,
	})
}

// Read copies device memory into dst.
func (b *Buffer) Read(dst []uint32) error {
	if b.released.Load() {
		return errors.Wrap(ErrInvalidBuffer, "read from released buffer")
	}
	if len(dst) != b.n {
		return errors.Wrapf(ErrInvalidBuffer, "read of %d elements from buffer of %d", len(dst), b.n)
	}
	copy(dst, b.mem)
	return nil
}

// Release returns the memory to the device budget. Safe to call twice.
func (b *Buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.device.allocated.Add(-int64(b.n) * 4)
	pool.PutWords(b.mem)
	b.mem = nil
}
