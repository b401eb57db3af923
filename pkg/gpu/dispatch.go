package gpu

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
)

// dispatch is one submitted kernel invocation. It lives until its fence is
// satisfied.
type dispatch struct {
	id       uuid.UUID
	pipeline *Pipeline
	vectors  []*Vector
	targets  []*Vector
	pinned   []*Vector
	scalar   uint32
	fence    *Fence
}

// complete runs on the device's completion goroutine. Write targets are
// freed before the fence is signalled so that a waiter can dispatch on them
// again immediately. Vectors released while the kernel ran are freed here.
func (d *dispatch) complete(err error) {
	d.releaseTargets()
	d.unpin()
	if err != nil {
		klog.Warningf("gpu: dispatch %s (%s) failed: %v", d.id, d.pipeline.desc.Key(), err)
	} else {
		klog.V(2).Infof("gpu: dispatch %s complete", d.id)
	}
	d.fence.signal(err)
}

func (d *dispatch) releaseTargets() {
	for _, v := range d.targets {
		v.releaseTarget()
	}
	d.targets = nil
}

func (d *dispatch) unpin() {
	for _, v := range d.pinned {
		v.unpin()
	}
	d.pinned = nil
}

// Dispatch runs the pipeline's kernel over vectors, one per binding in
// declaration order, with scalar as the kernel's scalar parameter.
//
// All vectors must have the same length n. The work is split into
// ceil(n/GroupSize) work-groups that execute in parallel and in no particular
// order; the returned fence is satisfied when all of them have finished.
// With n == 0 nothing is submitted and the fence is already satisfied.
//
// Dispatches are not ordered against each other unless the caller waits on
// the earlier fence.
func (p *Pipeline) Dispatch(scalar uint32, vectors ...*Vector) (*Fence, error) {
	c, desc := p.ctx, p.desc
	if err := c.alive(); err != nil {
		return nil, err
	}
	if len(vectors) != len(desc.Bindings) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%s takes %d vectors, got %d",
			desc.Name, len(desc.Bindings), len(vectors))
	}

	n := 0
	for i, v := range vectors {
		binding := desc.Bindings[i]
		if v == nil || v.released.Load() {
			return nil, errors.Wrapf(ErrReleased, "%s: vector bound to %q", desc.Name, binding.Name)
		}
		if v.ctx != c {
			return nil, errors.Wrapf(ErrSubmission, "%s: vector bound to %q belongs to another context",
				desc.Name, binding.Name)
		}
		if i == 0 {
			n = v.n
		} else if v.n != n {
			return nil, errors.Wrapf(ErrLengthMismatch, "%s: %q has %d elements, %q has %d",
				desc.Name, desc.Bindings[0].Name, n, binding.Name, v.n)
		}
		if v.mode == ModeImmutable {
			if binding.Access == kernels.ReadWrite {
				return nil, errors.Wrapf(ErrImmutableTarget, "%s: %q", desc.Name, binding.Name)
			}
			if !v.upload.Poll() {
				return nil, errors.Wrapf(ErrUploadPending, "%s: %q", desc.Name, binding.Name)
			}
			if err := v.upload.Err(); err != nil {
				return nil, errors.Wrapf(err, "%s: upload of %q", desc.Name, binding.Name)
			}
		}
	}

	if n == 0 {
		c.record(func(s *Stats) { s.Dispatches++ })
		return satisfiedFence(c), nil
	}

	d := &dispatch{
		id:       uuid.New(),
		pipeline: p,
		vectors:  vectors,
		scalar:   scalar,
		fence:    newFence(c),
	}
	for _, i := range desc.Writes() {
		v := vectors[i]
		if !v.acquire() {
			d.releaseTargets()
			return nil, errors.Wrapf(ErrVectorBusy, "%s: %q", desc.Name, desc.Bindings[i].Name)
		}
		d.targets = append(d.targets, v)
	}
	for i, v := range vectors {
		if !v.pin() {
			d.releaseTargets()
			d.unpin()
			return nil, errors.Wrapf(ErrReleased, "%s: vector bound to %q", desc.Name, desc.Bindings[i].Name)
		}
		d.pinned = append(d.pinned, v)
	}

	bufs := make([]driver.Buffer, len(vectors))
	for i, v := range vectors {
		bufs[i] = v.buf
	}
	groups := kernels.Groups(n, desc.GroupSize)
	klog.V(2).Infof("gpu: dispatch %s: %s n=%d groups=%d a=%d", d.id, desc.Key(), n, groups, scalar)

	err := p.program.Launch(driver.Launch{
		Buffers:   bufs,
		N:         n,
		Push:      kernels.EncodeScalar(scalar),
		Groups:    groups,
		GroupSize: desc.GroupSize,
	}, d.complete)
	if err != nil {
		d.releaseTargets()
		d.unpin()
		if !errors.Is(err, ErrSubmission) {
			err = errors.Wrapf(ErrSubmission, "%s: %v", desc.Name, err)
		}
		return nil, err
	}

	c.record(func(s *Stats) {
		s.Dispatches++
		s.WorkGroups += int64(groups)
	})
	return d.fence, nil
}
