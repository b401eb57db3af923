// Package opencl runs gpublas kernels on GPUs through OpenCL.
//
// It implements driver.Device for AMD, Intel and NVIDIA GPUs. The kernels'
// embedded .cl sources are built as OpenCL programs, one per descriptor, and
// vectors live in CL_MEM_READ_WRITE buffers of uint32.
//
// # Requirements
//
// For AMD GPUs on Linux:
//   - ROCm (Radeon Open Compute): https://rocm.docs.amd.com/
//   - Or AMD GPU drivers with OpenCL support
//
// For Intel GPUs:
//   - Intel oneAPI or Intel OpenCL runtime
//
// For NVIDIA GPUs:
//   - NVIDIA drivers with OpenCL support
//
// # Build Tags
//
// The cgo bridge is only compiled when the "opencl" build tag is present:
//
//	go build -tags opencl
//
// Without it the package is a stub: IsAvailable reports false and NewDevice
// returns ErrOpenCLNotAvailable, so gpu.NewContext falls back to the
// software device.
//
// # Environment Variables
//
// Linux (AMD ROCm):
//
//	export LD_LIBRARY_PATH=/opt/rocm/opencl/lib:$LD_LIBRARY_PATH
//
// # Execution Model
//
//   - One in-order command queue per device
//   - Buffer writes and kernel launches are enqueued without blocking; each
//     returns a cl_event that a goroutine waits on before calling done
//   - Host data is staged in C memory for the duration of a write
//   - A launch covers groups*groupSize work-items; kernels guard i < n
//   - Built programs expose their binary as the pipeline cache artifact, and
//     a cached binary that no longer loads is rebuilt from source
//
// # Example
//
//	device, err := opencl.NewDevice(0) // First OpenCL GPU
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer device.Release()
//
// Most callers never use this package directly:
//
//	ctx, err := gpu.NewContext(&gpu.Config{Backend: gpu.BackendOpenCL})
package opencl
