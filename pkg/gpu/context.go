// Package gpu offloads BLAS Level-1 vector arithmetic to a compute device.
//
// A Context owns one device, its submission queue and its compiled
// pipelines. Everything else hangs off it:
//
//	ctx, err := gpu.NewContext(nil)
//	if err != nil {
//		// ErrNoComputeDevice: nothing could be opened
//	}
//	defer ctx.Release()
//
//	// One call does upload, dispatch, wait, read back and release
//	y, err := gpu.Axpy(ctx, x, y, 2)
//
//	// Or drive the steps yourself
//	p, _ := ctx.Pipeline(kernels.Scale)
//	v, _ := ctx.Upload(data)
//	defer v.Release()
//	fence, _ := p.Dispatch(3, v)
//	if err := fence.Wait(time.Second); err != nil {
//		// ErrTimedOut, or the device error
//	}
//	out, _ := v.Read()
//
// There is no package-level state; independent contexts never share a
// device queue or a pipeline.
package gpu

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/gpu/opencl"
	"github.com/orneryd/gpublas/pkg/gpu/pipecache"
	"github.com/orneryd/gpublas/pkg/gpu/software"
)

// Context is an open compute device with its queue and pipeline table.
// It is safe for concurrent use.
type Context struct {
	backend Backend
	config  *Config
	device  driver.Device
	cache   *pipecache.Cache

	pipeMu    sync.Mutex
	pipelines map[string]*pipelineEntry

	released atomic.Bool

	// Stats
	mu    sync.RWMutex
	stats Stats
}

// Stats tracks device usage.
type Stats struct {
	Uploads           int64
	BytesUploaded     int64
	BytesDownloaded   int64
	Dispatches        int64
	WorkGroups        int64
	PipelineCompiles  int64
	PipelineCacheHits int64
	FenceTimeouts     int64
}

// NewContext opens a compute device.
//
// The backend is chosen from config.Backend:
//   - BackendOpenCL: the config.DeviceID-th OpenCL GPU
//   - BackendSoftware: the host-executing software device
//   - BackendAuto: OpenCL if a GPU is present
//
// If the chosen backend cannot be opened and config.FallbackToSoftware is
// true (default), the software device is used instead. When nothing opens,
// NewContext returns ErrNoComputeDevice.
func NewContext(config *Config) (*Context, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Context{
		config:    config,
		pipelines: make(map[string]*pipelineEntry),
	}
	if err := c.initBackend(); err != nil {
		return nil, err
	}

	cache, err := pipecache.Open(config.PipelineCacheDir)
	if err != nil {
		// Pipelines still compile; they just aren't persisted.
		klog.Warningf("gpu: pipeline cache disabled: %v", err)
	} else {
		c.cache = cache
	}

	info := c.device.Info()
	klog.Infof("gpu: using %s device %q (%s, %d MB, %d compute units)",
		c.backend, info.Name, info.Vendor, info.MemoryMB(), info.ComputeUnits)
	return c, nil
}

// initBackend opens the first backend that works.
func (c *Context) initBackend() error {
	var backends []Backend
	switch c.config.Backend {
	case BackendSoftware:
		backends = append(backends, BackendSoftware)
	case BackendOpenCL, BackendAuto:
		backends = append(backends, BackendOpenCL)
		if c.config.FallbackToSoftware {
			backends = append(backends, BackendSoftware)
		}
	}

	for _, backend := range backends {
		err := c.tryBackend(backend)
		if err == nil {
			return nil
		}
		klog.Warningf("gpu: %s backend unavailable: %v", backend, err)
	}
	return errors.Wrapf(ErrNoComputeDevice, "tried %v", backends)
}

// tryBackend attempts to open a specific backend.
func (c *Context) tryBackend(backend Backend) error {
	switch backend {
	case BackendOpenCL:
		return c.initOpenCL()
	case BackendSoftware:
		return c.initSoftware()
	default:
		return ErrNoComputeDevice
	}
}

// initOpenCL opens the configured OpenCL GPU.
func (c *Context) initOpenCL() error {
	if !opencl.IsAvailable() {
		return opencl.ErrOpenCLNotAvailable
	}

	device, err := opencl.NewDevice(c.config.DeviceID)
	if err != nil {
		return err
	}

	c.device = device
	c.backend = BackendOpenCL
	return nil
}

// initSoftware starts the software device.
func (c *Context) initSoftware() error {
	workers := c.config.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	device, err := software.NewDevice(software.Config{
		Workers:          workers,
		QueueDepth:       c.config.QueueDepth,
		MemoryLimitBytes: uint64(c.config.MemoryLimitMB) << 20,
	})
	if err != nil {
		return err
	}

	c.device = device
	c.backend = BackendSoftware
	return nil
}

// Release frees the device, its pipelines and the pipeline cache. Work still
// queued fails with ErrDeviceLost. Safe to call twice.
func (c *Context) Release() {
	if !c.released.CompareAndSwap(false, true) {
		return
	}

	c.pipeMu.Lock()
	for _, e := range c.pipelines {
		e.release()
	}
	c.pipelines = nil
	c.pipeMu.Unlock()

	c.device.Release()
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			klog.Warningf("gpu: closing pipeline cache: %v", err)
		}
	}
	klog.V(1).Infof("gpu: released %s device", c.backend)
}

func (c *Context) alive() error {
	if c.released.Load() {
		return errors.Wrap(ErrReleased, "context")
	}
	return nil
}

// Backend returns the active backend.
func (c *Context) Backend() Backend {
	return c.backend
}

// Device returns the underlying device.
func (c *Context) Device() driver.Device {
	return c.device
}

// Info describes the underlying device.
func (c *Context) Info() driver.Info {
	return c.device.Info()
}

// Config returns a copy of the configuration the context was opened with.
func (c *Context) Config() Config {
	return *c.config
}

// Stats returns usage statistics.
func (c *Context) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *Context) record(update func(s *Stats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
