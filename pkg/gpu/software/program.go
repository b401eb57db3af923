package software

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/kernels"
)

const artifactMagic = "gpublas-software/1"

// Program is a validated kernel bound to its element rule.
type Program struct {
	device *Device
	desc   *kernels.Descriptor
}

var _ driver.Program = (*Program)(nil)

func artifactFor(desc *kernels.Descriptor) []byte {
	return []byte(artifactMagic + " " + desc.Entry + " " + desc.DigestHex())
}

// Compile validates desc. A matching artifact from an earlier session skips
// the source check.
func (d *Device) Compile(desc *kernels.Descriptor, artifact []byte) (driver.Program, error) {
	if desc == nil {
		return nil, errors.Wrap(driver.ErrPipelineCompilation, "software: nil descriptor")
	}
	if artifact != nil && string(artifact) == string(artifactFor(desc)) && desc.Element != nil {
		klog.V(2).Infof("software: %s loaded from cached artifact", desc.Key())
		return &Program{device: d, desc: desc}, nil
	}
	if artifact != nil {
		klog.Warningf("software: ignoring stale artifact for %s (%q)", desc.Key(),
			strings.SplitN(string(artifact), " ", 2)[0])
	}
	if err := desc.Validate(); err != nil {
		return nil, errors.Wrapf(driver.ErrPipelineCompilation, "software: %v", err)
	}
	return &Program{device: d, desc: desc}, nil
}

// Descriptor returns the kernel this program runs.
func (p *Program) Descriptor() *kernels.Descriptor {
	return p.desc
}

// Artifact returns the cacheable record of a successful validation.
func (p *Program) Artifact() []byte {
	return artifactFor(p.desc)
}

// Launch queues the kernel over l.Groups work-groups.
func (p *Program) Launch(l driver.Launch, done func(error)) error {
	if len(l.Buffers) != len(p.desc.Bindings) {
		return errors.Wrapf(ErrInvalidLaunch, "%s: %d buffers bound, want %d",
			p.desc.Name, len(l.Buffers), len(p.desc.Bindings))
	}
	a, err := kernels.DecodeScalar(l.Push)
	if err != nil {
		return errors.Wrapf(ErrInvalidLaunch, "%s: %v", p.desc.Name, err)
	}
	groupSize := l.GroupSize
	if groupSize <= 0 {
		groupSize = p.desc.GroupSize
	}
	buffers := make([]*Buffer, len(l.Buffers))
	for i, b := range l.Buffers {
		sb, ok := b.(*Buffer)
		if !ok || sb.device != p.device {
			return errors.Wrapf(ErrInvalidLaunch, "%s: binding %q is not memory of this device",
				p.desc.Name, p.desc.Bindings[i].Name)
		}
		if sb.released.Load() {
			return errors.Wrapf(ErrInvalidBuffer, "%s: binding %q was released", p.desc.Name, p.desc.Bindings[i].Name)
		}
		if sb.n < l.N {
			return errors.Wrapf(ErrInvalidLaunch, "%s: binding %q has %d elements, launch covers %d",
				p.desc.Name, p.desc.Bindings[i].Name, sb.n, l.N)
		}
		buffers[i] = sb
	}

	return p.device.submit(command{
		run: func() error {
			return p.execute(buffers, l.N, l.Groups, groupSize, a)
		},
		done: done,
	})
}

// execute runs all work-groups and returns when the last one finished.
func (p *Program) execute(buffers []*Buffer, n, groups, groupSize int, a uint32) error {
	mems := make([][]uint32, len(buffers))
	for i, b := range buffers {
		mems[i] = b.mem
	}
	element := p.desc.Element

	var g errgroup.Group
	g.SetLimit(p.device.config.Workers)
	for group := 0; group < groups; group++ {
		start := group * groupSize
		g.Go(func() error {
			end := start + groupSize
			if end > n {
				end = n
			}
			for i := start; i < end; i++ {
				element(i, mems, a)
			}
			return nil
		})
	}
	return g.Wait()
}

// Release is a no-op: software programs hold no device state.
func (p *Program) Release() {}
