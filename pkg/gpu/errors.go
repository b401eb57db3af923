package gpu

import (
	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
)

// Errors
//
// Device-level errors come from the driver package and kernel errors from the
// kernels package; they are re-exported so callers only import gpu.
var (
	ErrNoComputeDevice     = driver.ErrNoComputeDevice
	ErrDeviceResource      = driver.ErrDeviceResource
	ErrPipelineCompilation = driver.ErrPipelineCompilation
	ErrSubmission          = driver.ErrSubmission
	ErrDeviceLost          = driver.ErrDeviceLost

	ErrUnsupportedOperation = kernels.ErrUnsupportedOperation
	ErrInvalidDescriptor    = kernels.ErrInvalidDescriptor

	ErrLengthMismatch  = errors.New("gpu: vector length mismatch")
	ErrTimedOut        = errors.New("gpu: fence wait timed out")
	ErrUploadPending   = errors.New("gpu: immutable upload has not completed")
	ErrVectorBusy      = errors.New("gpu: vector is the write target of an in-flight dispatch")
	ErrImmutableTarget = errors.New("gpu: immutable vector bound to a read-write binding")
	ErrReleased        = errors.New("gpu: use of a released handle")
	ErrInvalidConfig   = errors.New("gpu: invalid configuration")
)

// waitError is returned when a context ends a fence wait. It matches
// ErrTimedOut and unwraps to the context's error.
type waitError struct {
	cause error
}

func (e *waitError) Error() string {
	return ErrTimedOut.Error() + ": " + e.cause.Error()
}

func (e *waitError) Is(target error) bool {
	return target == ErrTimedOut
}

func (e *waitError) Unwrap() error {
	return e.cause
}
