package gpu

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/gpu/driver"
	"github.com/orneryd/gpublas/pkg/gpu/pipecache"
	"github.com/orneryd/gpublas/pkg/kernels"
)

// Pipeline is a kernel compiled for the context's device.
type Pipeline struct {
	ctx     *Context
	desc    *kernels.Descriptor
	program driver.Program
}

type pipelineEntry struct {
	once     sync.Once
	pipeline *Pipeline
	err      error
}

func (e *pipelineEntry) release() {
	if e.pipeline != nil {
		e.pipeline.program.Release()
	}
}

// Pipeline returns the compiled pipeline for desc, compiling it on first use.
// Each descriptor is compiled at most once per context: a failed compilation
// is remembered and its ErrPipelineCompilation error returned on every later
// call.
func (c *Context) Pipeline(desc *kernels.Descriptor) (*Pipeline, error) {
	if desc == nil {
		return nil, errors.Wrap(ErrInvalidDescriptor, "nil descriptor")
	}
	if err := c.alive(); err != nil {
		return nil, err
	}

	key := desc.Key() + "/" + desc.DigestHex()
	c.pipeMu.Lock()
	if c.pipelines == nil {
		c.pipeMu.Unlock()
		return nil, errors.Wrap(ErrReleased, "context")
	}
	e, ok := c.pipelines[key]
	if !ok {
		e = &pipelineEntry{}
		c.pipelines[key] = e
	}
	c.pipeMu.Unlock()

	e.once.Do(func() {
		e.pipeline, e.err = c.compile(desc)
	})
	return e.pipeline, e.err
}

func (c *Context) compile(desc *kernels.Descriptor) (*Pipeline, error) {
	cacheKey := pipecache.Key(c.device.Info().Key(), desc)

	var artifact []byte
	if c.cache != nil {
		cached, ok, err := c.cache.Get(cacheKey)
		if err != nil {
			klog.Warningf("gpu: pipeline cache lookup for %s: %v", desc.Key(), err)
		} else if ok {
			artifact = cached
		}
	}

	program, err := c.device.Compile(desc, artifact)
	c.record(func(s *Stats) {
		s.PipelineCompiles++
		if artifact != nil && err == nil {
			s.PipelineCacheHits++
		}
	})
	if err != nil {
		klog.Errorf("gpu: compiling %s: %v", desc.Key(), err)
		if !errors.Is(err, ErrPipelineCompilation) {
			err = errors.Wrapf(ErrPipelineCompilation, "%s: %v", desc.Key(), err)
		}
		return nil, err
	}

	if built := program.Artifact(); c.cache != nil && len(built) > 0 && !bytes.Equal(built, artifact) {
		if err := c.cache.Put(cacheKey, built); err != nil {
			klog.Warningf("gpu: pipeline cache store for %s: %v", desc.Key(), err)
		}
	}
	klog.V(2).Infof("gpu: compiled %s (cached artifact: %t)", desc.Key(), artifact != nil)
	return &Pipeline{ctx: c, desc: desc, program: program}, nil
}

// Descriptor returns the kernel the pipeline runs.
func (p *Pipeline) Descriptor() *kernels.Descriptor {
	return p.desc
}
