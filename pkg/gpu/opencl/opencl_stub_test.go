//go:build !opencl || !(linux || windows || darwin)
// +build !opencl !linux,!windows,!darwin

package opencl

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
)

func TestIsAvailableStub(t *testing.T) {
	if IsAvailable() {
		t.Error("IsAvailable() should return false on stub")
	}
}

func TestDeviceCountStub(t *testing.T) {
	if DeviceCount() != 0 {
		t.Error("DeviceCount() should return 0 on stub")
	}
}

func TestNewDeviceStub(t *testing.T) {
	device, err := NewDevice(0)
	if err != ErrOpenCLNotAvailable {
		t.Errorf("NewDevice() error = %v, want ErrOpenCLNotAvailable", err)
	}
	if !errors.Is(err, driver.ErrNoComputeDevice) {
		t.Errorf("NewDevice() error should wrap ErrNoComputeDevice, got %v", err)
	}
	if device != nil {
		t.Error("NewDevice() should return nil device on stub")
	}
}

func TestDeviceMethodsStub(t *testing.T) {
	var device Device

	// These should not panic
	device.Release()

	if device.Info().Backend != "opencl" {
		t.Error("Info() should name the opencl backend")
	}
	if _, err := device.Alloc(4); err != ErrOpenCLNotAvailable {
		t.Errorf("Alloc() error = %v, want ErrOpenCLNotAvailable", err)
	}
	if _, err := device.Compile(kernels.Scale, nil); err != ErrOpenCLNotAvailable {
		t.Errorf("Compile() error = %v, want ErrOpenCLNotAvailable", err)
	}
}
