// Package driver is the boundary between gpublas and a compute device.
//
// A backend (software, opencl) implements Device, Buffer and Program. The
// gpu package builds vectors, pipelines and fences on top of these
// interfaces and never talks to a device API directly.
//
// Completion is reported through callbacks: every asynchronous method takes a
// done func(error) that the backend calls exactly once, from any goroutine,
// when the device work has finished and its memory effects are visible to
// the host. A method that returns an error never calls done.
package driver

import (
	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/kernels"
)

// Errors shared by all backends. Backends wrap these so callers can test
// with errors.Is regardless of the device in use.
var (
	ErrNoComputeDevice     = errors.New("gpu: no compute-capable device")
	ErrDeviceResource      = errors.New("gpu: device memory allocation failed")
	ErrPipelineCompilation = errors.New("gpu: kernel compilation failed")
	ErrSubmission          = errors.New("gpu: work submission failed")
	ErrDeviceLost          = errors.Wrap(ErrSubmission, "device lost")
)

// Info describes a device.
type Info struct {
	ID           int
	Name         string
	Vendor       string
	Backend      string
	MemoryBytes  uint64
	ComputeUnits int
	MaxWorkGroup int
}

// MemoryMB returns the device memory in megabytes.
func (i Info) MemoryMB() int {
	return int(i.MemoryBytes / (1024 * 1024))
}

// Key identifies a device model for cached program artifacts.
func (i Info) Key() string {
	return i.Backend + ":" + i.Vendor + ":" + i.Name
}

// Device is an open compute device with a single in-order queue.
type Device interface {
	Info() Info

	// Alloc reserves device memory for n uint32 elements.
	Alloc(n int) (Buffer, error)

	// Compile builds desc into an executable program. artifact, if not nil,
	// is a previously returned Program.Artifact for the same device key and
	// descriptor digest; backends may use it to skip compilation and must
	// fall back to compiling from source if it is unusable.
	Compile(desc *kernels.Descriptor, artifact []byte) (Program, error)

	// Release closes the device. Queued and later work fails with ErrDeviceLost.
	Release()
}

// Buffer is device memory holding uint32 elements.
type Buffer interface {
	Len() int

	// Write queues a host to device copy of data, which must have Len
	// elements. The caller must not modify data until done is called.
	Write(data []uint32, done func(error)) error

	// Read copies device memory into dst, which must have Len elements.
	Read(dst []uint32) error

	Release()
}

// Launch is one kernel invocation.
type Launch struct {
	// Buffers in the descriptor's binding order.
	Buffers []Buffer
	// N is the element count passed to the kernel's bound check.
	N int
	// Push is the encoded scalar block.
	Push []byte
	// Groups is the number of work-groups of GroupSize elements.
	Groups    int
	GroupSize int
}

// Program is a compiled kernel.
type Program interface {
	Descriptor() *kernels.Descriptor

	// Artifact returns a serialized form suitable for Device.Compile, or nil
	// if the backend cannot cache programs.
	Artifact() []byte

	// Launch queues the kernel. done is called once all work-groups finished.
	Launch(l Launch, done func(error)) error

	Release()
}
