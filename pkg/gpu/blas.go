package gpu

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/kernels"
)

// Scale returns a*x[i] for every element, computed on c's device. Products
// wrap modulo 2^32.
//
// Example:
//
//	out, err := gpu.Scale(ctx, []uint32{0, 1, 2, 3, 4}, 2)
//	// out = [0 2 4 6 8]
func Scale(c *Context, x []uint32, a uint32) ([]uint32, error) {
	return run(c, kernels.Scale, a, x)
}

// Axpy returns a*x[i] + y[i] for every element, computed on c's device.
// x and y must have the same length; otherwise ErrLengthMismatch is returned
// before anything is uploaded. Results wrap modulo 2^32.
//
// Example:
//
//	out, err := gpu.Axpy(ctx, []uint32{5, 6, 7, 8, 9}, []uint32{0, 1, 2, 3, 4}, 2)
//	// out = [10 13 16 19 22]
func Axpy(c *Context, x, y []uint32, a uint32) ([]uint32, error) {
	if len(x) != len(y) {
		return nil, errors.Wrapf(ErrLengthMismatch, "axpy: len(x)=%d, len(y)=%d", len(x), len(y))
	}
	return run(c, kernels.Axpy, a, x, y)
}

// Scale is gpu.Scale on this context.
func (c *Context) Scale(x []uint32, a uint32) ([]uint32, error) {
	return Scale(c, x, a)
}

// Axpy is gpu.Axpy on this context.
func (c *Context) Axpy(x, y []uint32, a uint32) ([]uint32, error) {
	return Axpy(c, x, y, a)
}

// run uploads inputs (one per binding), dispatches desc, waits and reads back
// the written binding. Read-only bindings are uploaded as immutable vectors.
func run(c *Context, desc *kernels.Descriptor, a uint32, inputs ...[]uint32) ([]uint32, error) {
	if c == nil {
		return nil, errors.Wrap(ErrNoComputeDevice, "nil context")
	}
	p, err := c.Pipeline(desc)
	if err != nil {
		return nil, err
	}

	timeout := c.config.FenceTimeout
	vectors := make([]*Vector, 0, len(inputs))
	defer func() {
		// Memory still used by the device is freed when it completes.
		for _, v := range vectors {
			v.Release()
		}
	}()

	for i, data := range inputs {
		if desc.Bindings[i].Access == kernels.ReadOnly {
			v, fence, err := c.UploadImmutable(data)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, v)
			if err := fence.Wait(timeout); err != nil {
				return nil, err
			}
			continue
		}
		v, err := c.Upload(data)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}

	fence, err := p.Dispatch(a, vectors...)
	if err != nil {
		return nil, err
	}
	if err := fence.Wait(timeout); err != nil {
		klog.Warningf("gpu: %s over %d elements: %v", desc.Name, vectors[0].Len(), err)
		return nil, err
	}
	return vectors[desc.Writes()[0]].Read()
}

// Operations without a kernel. They exist so callers can probe for them;
// every call returns ErrUnsupportedOperation.

// Dot would return sum(x[i]*y[i]).
func Dot(c *Context, x, y []uint32) (uint32, error) {
	return 0, unsupported(kernels.KindDot)
}

// Asum would return sum(x[i]).
func Asum(c *Context, x []uint32) (uint32, error) {
	return 0, unsupported(kernels.KindAsum)
}

// Iamax would return the index of the largest element.
func Iamax(c *Context, x []uint32) (int, error) {
	return 0, unsupported(kernels.KindIamax)
}

// Gemv would return alpha*A*x + beta*y for a rows x cols matrix A.
func Gemv(c *Context, rows, cols int, a, x, y []uint32, alpha, beta uint32) ([]uint32, error) {
	return nil, unsupported(kernels.KindGemv)
}

// Gemm would return alpha*A*B + beta*C for an m x k matrix A and k x n matrix B.
func Gemm(c *Context, m, n, k int, a, b, cm []uint32, alpha, beta uint32) ([]uint32, error) {
	return nil, unsupported(kernels.KindGemm)
}

func unsupported(kind kernels.Kind) error {
	if _, err := kernels.Lookup(kind); err != nil {
		return err
	}
	return errors.Wrapf(ErrUnsupportedOperation, "%s", kind)
}
