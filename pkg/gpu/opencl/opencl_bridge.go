//go:build opencl && (linux || windows || darwin)
// +build opencl
// +build linux windows darwin

// Package opencl provides cross-platform GPU acceleration using OpenCL.
package opencl

/*
#cgo linux CFLAGS: -I/opt/rocm/include -I/usr/include -DCL_TARGET_OPENCL_VERSION=120
#cgo linux LDFLAGS: -L/opt/rocm/lib -L/usr/lib/x86_64-linux-gnu -lOpenCL
#cgo darwin CFLAGS: -DCL_TARGET_OPENCL_VERSION=120
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows CFLAGS: -DCL_TARGET_OPENCL_VERSION=120
#cgo windows LDFLAGS: -lOpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
#include <string.h>
#include <stdio.h>

// Error handling
static char opencl_last_error[512] = {0};

static void opencl_set_error(const char* msg) {
    strncpy(opencl_last_error, msg, sizeof(opencl_last_error) - 1);
}

static const char* opencl_get_last_error() {
    return opencl_last_error;
}

static void opencl_clear_error() {
    opencl_last_error[0] = 0;
}

static const char* opencl_error_string(cl_int error) {
    switch (error) {
        case CL_SUCCESS: return "CL_SUCCESS";
        case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
        case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
        case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
        case CL_MEM_OBJECT_ALLOCATION_FAILURE: return "CL_MEM_OBJECT_ALLOCATION_FAILURE";
        case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
        case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
        case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
        case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
        case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
        case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
        case CL_INVALID_COMMAND_QUEUE: return "CL_INVALID_COMMAND_QUEUE";
        case CL_INVALID_MEM_OBJECT: return "CL_INVALID_MEM_OBJECT";
        case CL_INVALID_BINARY: return "CL_INVALID_BINARY";
        case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
        case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
        case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
        case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
        case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
        case CL_INVALID_ARG_VALUE: return "CL_INVALID_ARG_VALUE";
        case CL_INVALID_ARG_SIZE: return "CL_INVALID_ARG_SIZE";
        case CL_INVALID_KERNEL_ARGS: return "CL_INVALID_KERNEL_ARGS";
        case CL_INVALID_WORK_GROUP_SIZE: return "CL_INVALID_WORK_GROUP_SIZE";
        case CL_INVALID_EVENT: return "CL_INVALID_EVENT";
        case CL_EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST: return "CL_EXEC_STATUS_ERROR_FOR_EVENTS_IN_WAIT_LIST";
        default: return "Unknown OpenCL error";
    }
}

static void opencl_fail(const char* what, cl_int err) {
    char msg[512];
    snprintf(msg, sizeof(msg), "%s: %s", what, opencl_error_string(err));
    opencl_set_error(msg);
}

typedef struct {
    cl_platform_id platform;
    cl_device_id device;
    cl_context context;
    cl_command_queue queue;
    int device_id;
} OpenCLDevice;

typedef struct {
    cl_program program;
    cl_kernel kernel;
} OpenCLProgram;

// Get number of GPU devices across all platforms
static int opencl_get_device_count() {
    cl_uint num_platforms;
    cl_int err = clGetPlatformIDs(0, NULL, &num_platforms);
    if (err != CL_SUCCESS || num_platforms == 0) {
        return 0;
    }

    cl_platform_id* platforms = (cl_platform_id*)malloc(num_platforms * sizeof(cl_platform_id));
    clGetPlatformIDs(num_platforms, platforms, NULL);

    int total_devices = 0;
    for (cl_uint i = 0; i < num_platforms; i++) {
        cl_uint num_devices;
        err = clGetDeviceIDs(platforms[i], CL_DEVICE_TYPE_GPU, 0, NULL, &num_devices);
        if (err == CL_SUCCESS) {
            total_devices += num_devices;
        }
    }

    free(platforms);
    return total_devices;
}

// Get Nth GPU device across all platforms
static int opencl_get_device_by_index(int index, cl_platform_id* out_platform, cl_device_id* out_device) {
    cl_uint num_platforms;
    cl_int err = clGetPlatformIDs(0, NULL, &num_platforms);
    if (err != CL_SUCCESS || num_platforms == 0) {
        return -1;
    }

    cl_platform_id* platforms = (cl_platform_id*)malloc(num_platforms * sizeof(cl_platform_id));
    clGetPlatformIDs(num_platforms, platforms, NULL);

    int current_index = 0;
    for (cl_uint i = 0; i < num_platforms; i++) {
        cl_uint num_devices;
        err = clGetDeviceIDs(platforms[i], CL_DEVICE_TYPE_GPU, 0, NULL, &num_devices);
        if (err != CL_SUCCESS) continue;

        if (index < current_index + (int)num_devices) {
            cl_device_id* devices = (cl_device_id*)malloc(num_devices * sizeof(cl_device_id));
            clGetDeviceIDs(platforms[i], CL_DEVICE_TYPE_GPU, num_devices, devices, NULL);
            *out_platform = platforms[i];
            *out_device = devices[index - current_index];
            free(devices);
            free(platforms);
            return 0;
        }
        current_index += num_devices;
    }

    free(platforms);
    return -1;
}

static OpenCLDevice* opencl_create_device(int device_id) {
    OpenCLDevice* dev = (OpenCLDevice*)malloc(sizeof(OpenCLDevice));
    if (!dev) {
        opencl_set_error("Failed to allocate device struct");
        return NULL;
    }
    memset(dev, 0, sizeof(OpenCLDevice));
    dev->device_id = device_id;

    if (opencl_get_device_by_index(device_id, &dev->platform, &dev->device) != 0) {
        opencl_set_error("Device not found");
        free(dev);
        return NULL;
    }

    cl_int err;
    dev->context = clCreateContext(NULL, 1, &dev->device, NULL, NULL, &err);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to create context", err);
        free(dev);
        return NULL;
    }

    // In-order queue: submissions execute in the order they were enqueued.
    dev->queue = clCreateCommandQueue(dev->context, dev->device, 0, &err);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to create command queue", err);
        clReleaseContext(dev->context);
        free(dev);
        return NULL;
    }
    return dev;
}

static void opencl_release_device(OpenCLDevice* dev) {
    if (dev) {
        if (dev->queue) {
            clFinish(dev->queue);
            clReleaseCommandQueue(dev->queue);
        }
        if (dev->context) clReleaseContext(dev->context);
        free(dev);
    }
}

static const char* opencl_device_name(OpenCLDevice* dev, char* name, size_t len) {
    if (clGetDeviceInfo(dev->device, CL_DEVICE_NAME, len, name, NULL) != CL_SUCCESS) {
        return "Unknown";
    }
    return name;
}

static const char* opencl_device_vendor(OpenCLDevice* dev, char* vendor, size_t len) {
    if (clGetDeviceInfo(dev->device, CL_DEVICE_VENDOR, len, vendor, NULL) != CL_SUCCESS) {
        return "Unknown";
    }
    return vendor;
}

static size_t opencl_device_memory(OpenCLDevice* dev) {
    cl_ulong mem_size;
    if (clGetDeviceInfo(dev->device, CL_DEVICE_GLOBAL_MEM_SIZE, sizeof(mem_size), &mem_size, NULL) != CL_SUCCESS) {
        return 0;
    }
    return (size_t)mem_size;
}

static int opencl_compute_units(OpenCLDevice* dev) {
    cl_uint units;
    if (clGetDeviceInfo(dev->device, CL_DEVICE_MAX_COMPUTE_UNITS, sizeof(units), &units, NULL) != CL_SUCCESS) {
        return 0;
    }
    return (int)units;
}

static size_t opencl_max_work_group_size(OpenCLDevice* dev) {
    size_t max_size;
    if (clGetDeviceInfo(dev->device, CL_DEVICE_MAX_WORK_GROUP_SIZE, sizeof(max_size), &max_size, NULL) != CL_SUCCESS) {
        return 256; // Default fallback
    }
    return max_size;
}

// Programs

static OpenCLProgram* opencl_finish_program(OpenCLDevice* dev, cl_program program, const char* entry) {
    cl_int err = clBuildProgram(program, 1, &dev->device, NULL, NULL, NULL);
    if (err != CL_SUCCESS) {
        size_t log_size = 0;
        clGetProgramBuildInfo(program, dev->device, CL_PROGRAM_BUILD_LOG, 0, NULL, &log_size);
        char* log = (char*)malloc(log_size + 1);
        clGetProgramBuildInfo(program, dev->device, CL_PROGRAM_BUILD_LOG, log_size, log, NULL);
        log[log_size] = '\0';

        char msg[512];
        snprintf(msg, sizeof(msg), "Failed to build program: %s", log);
        opencl_set_error(msg);

        free(log);
        clReleaseProgram(program);
        return NULL;
    }

    cl_kernel kernel = clCreateKernel(program, entry, &err);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to create kernel", err);
        clReleaseProgram(program);
        return NULL;
    }

    OpenCLProgram* prog = (OpenCLProgram*)malloc(sizeof(OpenCLProgram));
    prog->program = program;
    prog->kernel = kernel;
    return prog;
}

static OpenCLProgram* opencl_build_program(OpenCLDevice* dev, const char* source, const char* entry) {
    cl_int err;
    size_t source_len = strlen(source);
    cl_program program = clCreateProgramWithSource(dev->context, 1, &source, &source_len, &err);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to create program", err);
        return NULL;
    }
    return opencl_finish_program(dev, program, entry);
}

static OpenCLProgram* opencl_load_program(OpenCLDevice* dev, const unsigned char* binary, size_t len, const char* entry) {
    cl_int err, status;
    cl_program program = clCreateProgramWithBinary(dev->context, 1, &dev->device, &len, &binary, &status, &err);
    if (err != CL_SUCCESS || status != CL_SUCCESS) {
        opencl_fail("Failed to load program binary", err != CL_SUCCESS ? err : status);
        if (program) clReleaseProgram(program);
        return NULL;
    }
    return opencl_finish_program(dev, program, entry);
}

static size_t opencl_program_binary_size(OpenCLProgram* prog) {
    size_t size = 0;
    if (clGetProgramInfo(prog->program, CL_PROGRAM_BINARY_SIZES, sizeof(size), &size, NULL) != CL_SUCCESS) {
        return 0;
    }
    return size;
}

static int opencl_program_binary(OpenCLProgram* prog, unsigned char* out) {
    unsigned char* binaries[1] = {out};
    return clGetProgramInfo(prog->program, CL_PROGRAM_BINARIES, sizeof(binaries), binaries, NULL) == CL_SUCCESS ? 0 : -1;
}

static void opencl_release_program(OpenCLProgram* prog) {
    if (prog) {
        if (prog->kernel) clReleaseKernel(prog->kernel);
        if (prog->program) clReleaseProgram(prog->program);
        free(prog);
    }
}

// Buffers

static cl_mem opencl_create_buffer(OpenCLDevice* dev, size_t count) {
    cl_int err;
    size_t size = count * sizeof(cl_uint);
    if (size == 0) size = sizeof(cl_uint);
    cl_mem mem = clCreateBuffer(dev->context, CL_MEM_READ_WRITE, size, NULL, &err);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to create buffer", err);
        return NULL;
    }
    return mem;
}

// Non-blocking write; host must stay valid until the event completes.
static int opencl_write_buffer(OpenCLDevice* dev, cl_mem mem, const void* host, size_t count, cl_event* event) {
    cl_int err = clEnqueueWriteBuffer(dev->queue, mem, CL_FALSE, 0, count * sizeof(cl_uint), host, 0, NULL, event);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to enqueue write", err);
        return -1;
    }
    clFlush(dev->queue);
    return 0;
}

static int opencl_read_buffer(OpenCLDevice* dev, cl_mem mem, void* host, size_t count) {
    cl_int err = clEnqueueReadBuffer(dev->queue, mem, CL_TRUE, 0, count * sizeof(cl_uint), host, 0, NULL, NULL);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to read buffer", err);
        return -1;
    }
    return 0;
}

static int opencl_launch(OpenCLDevice* dev, OpenCLProgram* prog, cl_mem* mems, int nmems,
                         cl_uint n, cl_uint a, size_t groups, size_t group_size, cl_event* event) {
    cl_int err = CL_SUCCESS;
    for (int i = 0; i < nmems; i++) {
        err |= clSetKernelArg(prog->kernel, i, sizeof(cl_mem), &mems[i]);
    }
    err |= clSetKernelArg(prog->kernel, nmems, sizeof(cl_uint), &n);
    err |= clSetKernelArg(prog->kernel, nmems + 1, sizeof(cl_uint), &a);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to set kernel args", err);
        return -1;
    }

    size_t global_size = groups * group_size;
    err = clEnqueueNDRangeKernel(dev->queue, prog->kernel, 1, NULL, &global_size, &group_size, 0, NULL, event);
    if (err != CL_SUCCESS) {
        opencl_fail("Failed to enqueue kernel", err);
        return -1;
    }
    clFlush(dev->queue);
    return 0;
}

// Blocks until the event completes; returns its final status.
static int opencl_wait_event(cl_event event) {
    cl_int err = clWaitForEvents(1, &event);
    cl_int status = CL_COMPLETE;
    if (err == CL_SUCCESS) {
        err = clGetEventInfo(event, CL_EVENT_COMMAND_EXECUTION_STATUS, sizeof(status), &status, NULL);
    }
    clReleaseEvent(event);
    if (err != CL_SUCCESS) return err;
    return status < 0 ? status : CL_SUCCESS;
}

static const char* opencl_status_string(int status) {
    return opencl_error_string((cl_int)status);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
)

// Errors
var (
	ErrOpenCLNotAvailable = errors.Wrap(driver.ErrNoComputeDevice, "opencl: OpenCL is not available on this system")
	ErrDeviceCreation     = errors.Wrap(driver.ErrNoComputeDevice, "opencl: failed to create OpenCL device")
	ErrInvalidBuffer      = errors.New("opencl: invalid buffer")
)

func lastError() string {
	msg := C.GoString(C.opencl_get_last_error())
	C.opencl_clear_error()
	return msg
}

// Device represents an OpenCL GPU device.
type Device struct {
	ptr  *C.OpenCLDevice
	info driver.Info
	mu   sync.Mutex
}

var _ driver.Device = (*Device)(nil)

// IsAvailable checks if OpenCL is available on this system.
func IsAvailable() bool {
	return DeviceCount() > 0
}

// DeviceCount returns the number of OpenCL GPU devices.
func DeviceCount() int {
	count := C.opencl_get_device_count()
	if count < 0 {
		return 0
	}
	return int(count)
}

// NewDevice opens the deviceID-th OpenCL GPU.
func NewDevice(deviceID int) (*Device, error) {
	if !IsAvailable() {
		return nil, ErrOpenCLNotAvailable
	}

	ptr := C.opencl_create_device(C.int(deviceID))
	if ptr == nil {
		return nil, errors.Wrapf(ErrDeviceCreation, "%s", lastError())
	}

	var name, vendor [256]C.char
	return &Device{
		ptr: ptr,
		info: driver.Info{
			ID:           deviceID,
			Name:         C.GoString(C.opencl_device_name(ptr, &name[0], C.size_t(len(name)))),
			Vendor:       C.GoString(C.opencl_device_vendor(ptr, &vendor[0], C.size_t(len(vendor)))),
			Backend:      "opencl",
			MemoryBytes:  uint64(C.opencl_device_memory(ptr)),
			ComputeUnits: int(C.opencl_compute_units(ptr)),
			MaxWorkGroup: int(C.opencl_max_work_group_size(ptr)),
		},
	}, nil
}

// Info returns the device description.
func (d *Device) Info() driver.Info {
	return d.info
}

// Release waits for queued work and frees the OpenCL device resources.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ptr != nil {
		C.opencl_release_device(d.ptr)
		d.ptr = nil
	}
}

// lock returns with d.mu held if the device is open.
func (d *Device) lock() error {
	d.mu.Lock()
	if d.ptr == nil {
		d.mu.Unlock()
		return errors.Wrap(driver.ErrDeviceLost, "opencl: device released")
	}
	return nil
}

// Alloc creates a device buffer for n elements.
func (d *Device) Alloc(n int) (driver.Buffer, error) {
	if err := d.lock(); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	mem := C.opencl_create_buffer(d.ptr, C.size_t(n))
	if mem == nil {
		return nil, errors.Wrapf(driver.ErrDeviceResource, "opencl: %s", lastError())
	}
	return &Buffer{mem: mem, n: n, device: d}, nil
}

// Compile builds desc from source, or from artifact when it is a program
// binary produced by this device model.
func (d *Device) Compile(desc *kernels.Descriptor, artifact []byte) (driver.Program, error) {
	if err := d.lock(); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()

	entry := C.CString(desc.Entry)
	defer C.free(unsafe.Pointer(entry))

	var ptr *C.OpenCLProgram
	if len(artifact) > 0 {
		bin := C.CBytes(artifact)
		ptr = C.opencl_load_program(d.ptr, (*C.uchar)(bin), C.size_t(len(artifact)), entry)
		C.free(bin)
		if ptr == nil {
			// Driver updates invalidate binaries; rebuild from source.
			lastError()
		}
	}
	if ptr == nil {
		src := C.CString(desc.Source)
		ptr = C.opencl_build_program(d.ptr, src, entry)
		C.free(unsafe.Pointer(src))
	}
	if ptr == nil {
		return nil, errors.Wrapf(driver.ErrPipelineCompilation, "opencl: %s: %s", desc.Key(), lastError())
	}

	p := &Program{ptr: ptr, desc: desc, device: d}
	if size := C.opencl_program_binary_size(ptr); size > 0 {
		out := C.malloc(size)
		if C.opencl_program_binary(ptr, (*C.uchar)(out)) == 0 {
			p.binary = C.GoBytes(out, C.int(size))
		}
		C.free(out)
	}
	return p, nil
}

// Buffer represents an OpenCL memory buffer of uint32 elements.
type Buffer struct {
	mem    C.cl_mem
	n      int
	device *Device
}

var _ driver.Buffer = (*Buffer)(nil)

// Len returns the number of elements.
func (b *Buffer) Len() int {
	return b.n
}

// Write stages data in C memory and enqueues a non-blocking copy.
func (b *Buffer) Write(data []uint32, done func(error)) error {
	if b.mem == nil {
		return errors.Wrap(ErrInvalidBuffer, "write to released buffer")
	}
	if len(data) != b.n {
		return errors.Wrapf(ErrInvalidBuffer, "write of %d elements into buffer of %d", len(data), b.n)
	}
	if b.n == 0 {
		go done(nil)
		return nil
	}
	if err := b.device.lock(); err != nil {
		return err
	}
	defer b.device.mu.Unlock()

	staging := C.malloc(C.size_t(len(data) * 4))
	copy(unsafe.Slice((*uint32)(staging), len(data)), data)

	var event C.cl_event
	if C.opencl_write_buffer(b.device.ptr, b.mem, staging, C.size_t(len(data)), &event) != 0 {
		C.free(staging)
		return errors.Wrapf(driver.ErrSubmission, "opencl: %s", lastError())
	}
	go func() {
		err := waitEvent(event)
		C.free(staging)
		done(err)
	}()
	return nil
}

// Read blocks until queued work finished and copies the buffer into dst.
func (b *Buffer) Read(dst []uint32) error {
	if b.mem == nil {
		return errors.Wrap(ErrInvalidBuffer, "read from released buffer")
	}
	if len(dst) != b.n {
		return errors.Wrapf(ErrInvalidBuffer, "read of %d elements from buffer of %d", len(dst), b.n)
	}
	if b.n == 0 {
		return nil
	}
	if err := b.device.lock(); err != nil {
		return err
	}
	defer b.device.mu.Unlock()

	staging := C.malloc(C.size_t(b.n * 4))
	defer C.free(staging)
	if C.opencl_read_buffer(b.device.ptr, b.mem, staging, C.size_t(b.n)) != 0 {
		return errors.Wrapf(ErrInvalidBuffer, "opencl: %s", lastError())
	}
	copy(dst, unsafe.Slice((*uint32)(staging), b.n))
	return nil
}

// Release frees the buffer resources.
func (b *Buffer) Release() {
	if b.mem != nil {
		C.clReleaseMemObject(b.mem)
		b.mem = nil
	}
}

// Program is a built OpenCL kernel.
type Program struct {
	ptr    *C.OpenCLProgram
	desc   *kernels.Descriptor
	binary []byte
	device *Device
}

var _ driver.Program = (*Program)(nil)

// Descriptor returns the kernel this program runs.
func (p *Program) Descriptor() *kernels.Descriptor {
	return p.desc
}

// Artifact returns the device program binary, if the driver exposes one.
func (p *Program) Artifact() []byte {
	return p.binary
}

// Launch enqueues the kernel and reports completion through done.
func (p *Program) Launch(l driver.Launch, done func(error)) error {
	if len(l.Buffers) != len(p.desc.Bindings) {
		return errors.Wrapf(ErrInvalidBuffer, "%s: %d buffers bound, want %d",
			p.desc.Name, len(l.Buffers), len(p.desc.Bindings))
	}
	a, err := kernels.DecodeScalar(l.Push)
	if err != nil {
		return errors.Wrapf(ErrInvalidBuffer, "%s: %v", p.desc.Name, err)
	}
	if l.Groups == 0 {
		go done(nil)
		return nil
	}

	mems := make([]C.cl_mem, len(l.Buffers))
	for i, b := range l.Buffers {
		cb, ok := b.(*Buffer)
		if !ok || cb.device != p.device || cb.mem == nil {
			return errors.Wrapf(ErrInvalidBuffer, "%s: binding %q is not live memory of this device",
				p.desc.Name, p.desc.Bindings[i].Name)
		}
		mems[i] = cb.mem
	}
	groupSize := l.GroupSize
	if groupSize <= 0 {
		groupSize = p.desc.GroupSize
	}

	if err := p.device.lock(); err != nil {
		return err
	}
	defer p.device.mu.Unlock()

	var event C.cl_event
	ret := C.opencl_launch(p.device.ptr, p.ptr, &mems[0], C.int(len(mems)),
		C.cl_uint(l.N), C.cl_uint(a), C.size_t(l.Groups), C.size_t(groupSize), &event)
	if ret != 0 {
		return errors.Wrapf(driver.ErrSubmission, "opencl: %s", lastError())
	}
	go func() { done(waitEvent(event)) }()
	return nil
}

// Release frees the kernel and program objects.
func (p *Program) Release() {
	if p.ptr != nil {
		C.opencl_release_program(p.ptr)
		p.ptr = nil
	}
}

func waitEvent(event C.cl_event) error {
	if status := C.opencl_wait_event(event); status != 0 {
		return errors.Wrapf(driver.ErrDeviceLost, "opencl: command failed: %s", C.GoString(C.opencl_status_string(status)))
	}
	return nil
}
