package gpu

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Backend represents the compute backend.
type Backend string

const (
	BackendAuto     Backend = ""         // OpenCL if present, else software
	BackendSoftware Backend = "software" // Host execution, always available
	BackendOpenCL   Backend = "opencl"   // Cross-platform GPU (build tag opencl)
)

// Config holds compute context configuration options.
//
// Example:
//
//	// Production configuration
//	config := &gpu.Config{
//		Backend:            gpu.BackendOpenCL,
//		FallbackToSoftware: false, // Fail instead of running on the host
//		FenceTimeout:       5 * time.Second,
//		PipelineCacheDir:   "/var/cache/gpublas",
//	}
//
//	// Tests and development
//	config = gpu.DefaultConfig()
//	config.Backend = gpu.BackendSoftware
type Config struct {
	// Backend selects the compute backend (auto-detected if empty)
	Backend Backend `yaml:"backend"`

	// DeviceID selects a specific GPU (for multi-GPU systems)
	DeviceID int `yaml:"device_id"`

	// FallbackToSoftware uses the software device when no GPU opens
	FallbackToSoftware bool `yaml:"fallback_to_software"`

	// Workers bounds concurrent work-groups on the software device (0 = NumCPU)
	Workers int `yaml:"workers"`

	// QueueDepth bounds pending submissions on the software device
	QueueDepth int `yaml:"queue_depth"`

	// MemoryLimitMB caps software device memory (0 = 1024)
	MemoryLimitMB int `yaml:"memory_limit_mb"`

	// FenceTimeout bounds fence waits in Scale and Axpy (0 = wait forever)
	FenceTimeout time.Duration `yaml:"fence_timeout"`

	// PipelineCacheDir persists compiled pipelines (empty = in-memory)
	PipelineCacheDir string `yaml:"pipeline_cache_dir"`
}

// DefaultConfig returns defaults that work on any machine: the best
// available backend, software fallback, and fence waits without timeout.
func DefaultConfig() *Config {
	return &Config{
		Backend:            BackendAuto,
		DeviceID:           0,
		FallbackToSoftware: true,
		Workers:            0, // NumCPU
		QueueDepth:         64,
		MemoryLimitMB:      0, // 1GB
		FenceTimeout:       0,
		PipelineCacheDir:   "",
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their DefaultConfig values. Durations are written as strings ("2s").
//
//	backend: opencl
//	fallback_to_software: true
//	fence_timeout: 2s
//	pipeline_cache_dir: /var/cache/gpublas
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "gpu: load config")
	}
	defer f.Close()

	config := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return config, nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendSoftware, BackendOpenCL:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown backend %q", c.Backend)
	}
	if c.DeviceID < 0 {
		return errors.Wrapf(ErrInvalidConfig, "device_id %d is negative", c.DeviceID)
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers %d is negative", c.Workers)
	}
	if c.QueueDepth < 0 {
		return errors.Wrapf(ErrInvalidConfig, "queue_depth %d is negative", c.QueueDepth)
	}
	if c.MemoryLimitMB < 0 {
		return errors.Wrapf(ErrInvalidConfig, "memory_limit_mb %d is negative", c.MemoryLimitMB)
	}
	if c.FenceTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "fence_timeout %s is negative", c.FenceTimeout)
	}
	return nil
}
