//go:build !opencl || !(linux || windows || darwin)
// +build !opencl !linux,!windows,!darwin

// Package opencl provides cross-platform GPU acceleration using OpenCL.
// This is a stub implementation for systems without OpenCL support.
package opencl

import (
	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
)

// Errors
var (
	ErrOpenCLNotAvailable = errors.Wrap(driver.ErrNoComputeDevice, "opencl: OpenCL is not available (build without opencl tag)")
	ErrDeviceCreation     = errors.Wrap(driver.ErrNoComputeDevice, "opencl: failed to create OpenCL device")
	ErrInvalidBuffer      = errors.New("opencl: invalid buffer")
)

// Device represents an OpenCL GPU device (stub).
type Device struct{}

var _ driver.Device = (*Device)(nil)

// IsAvailable returns false on systems without OpenCL.
func IsAvailable() bool {
	return false
}

// DeviceCount returns 0 on systems without OpenCL.
func DeviceCount() int {
	return 0
}

// NewDevice returns an error on systems without OpenCL.
func NewDevice(deviceID int) (*Device, error) {
	return nil, ErrOpenCLNotAvailable
}

// Info returns an empty description.
func (d *Device) Info() driver.Info { return driver.Info{Backend: "opencl"} }

// Release is a no-op stub.
func (d *Device) Release() {}

// Alloc returns an error.
func (d *Device) Alloc(n int) (driver.Buffer, error) {
	return nil, ErrOpenCLNotAvailable
}

// Compile returns an error.
func (d *Device) Compile(desc *kernels.Descriptor, artifact []byte) (driver.Program, error) {
	return nil, ErrOpenCLNotAvailable
}
