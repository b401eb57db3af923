package gpu

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpublas/pkg/gpu/opencl"
	"github.com/orneryd/gpublas/pkg/kernels"
)

// newTestContext opens a software context; opts adjust the config first.
func newTestContext(t *testing.T, opts ...func(*Config)) *Context {
	t.Helper()
	config := DefaultConfig()
	config.Backend = BackendSoftware
	config.Workers = 4
	for _, opt := range opts {
		opt(config)
	}
	c, err := NewContext(config)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func TestNewContext(t *testing.T) {
	t.Run("software", func(t *testing.T) {
		c := newTestContext(t)
		assert.Equal(t, BackendSoftware, c.Backend())
		assert.Equal(t, "software", c.Info().Backend)
		assert.Equal(t, 1024, c.Info().MemoryMB())
		assert.NotNil(t, c.Device())
		assert.Equal(t, 4, c.Config().Workers)
	})

	t.Run("auto falls back to software", func(t *testing.T) {
		if opencl.IsAvailable() {
			t.Skip("OpenCL device present")
		}
		c, err := NewContext(nil)
		require.NoError(t, err)
		defer c.Release()
		assert.Equal(t, BackendSoftware, c.Backend())
	})

	t.Run("no device without fallback", func(t *testing.T) {
		if opencl.IsAvailable() {
			t.Skip("OpenCL device present")
		}
		config := DefaultConfig()
		config.Backend = BackendOpenCL
		config.FallbackToSoftware = false
		c, err := NewContext(config)
		assert.Nil(t, c)
		assert.True(t, errors.Is(err, ErrNoComputeDevice), "got %v", err)
	})

	t.Run("invalid config", func(t *testing.T) {
		config := DefaultConfig()
		config.Backend = "cuda"
		_, err := NewContext(config)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
	})

	t.Run("memory limit", func(t *testing.T) {
		c := newTestContext(t, func(c *Config) { c.MemoryLimitMB = 1 })
		assert.Equal(t, 1, c.Info().MemoryMB())

		_, err := c.Upload(make([]uint32, 1<<18+1))
		assert.True(t, errors.Is(err, ErrDeviceResource), "got %v", err)
	})
}

func TestContextRelease(t *testing.T) {
	c := newTestContext(t)
	p, err := c.Pipeline(kernels.Scale)
	require.NoError(t, err)
	v, err := c.Upload([]uint32{1, 2})
	require.NoError(t, err)

	c.Release()
	c.Release()

	_, err = c.Upload([]uint32{1})
	assert.True(t, errors.Is(err, ErrReleased), "upload: %v", err)
	_, err = c.Pipeline(kernels.Axpy)
	assert.True(t, errors.Is(err, ErrReleased), "pipeline: %v", err)
	_, err = p.Dispatch(2, v)
	assert.True(t, errors.Is(err, ErrReleased), "dispatch: %v", err)
	_, err = Scale(c, []uint32{1}, 2)
	assert.True(t, errors.Is(err, ErrReleased), "scale: %v", err)

	v.Release()
}

func TestContextStats(t *testing.T) {
	c := newTestContext(t)
	assert.Equal(t, Stats{}, c.Stats())

	_, err := Scale(c, []uint32{0, 1, 2, 3, 4}, 2)
	require.NoError(t, err)
	_, err = Axpy(c, make([]uint32, 100), make([]uint32, 100), 3)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Uploads)
	assert.Equal(t, int64(4*(5+100+100)), stats.BytesUploaded)
	assert.Equal(t, int64(4*(5+100)), stats.BytesDownloaded)
	assert.Equal(t, int64(2), stats.Dispatches)
	assert.Equal(t, int64(1+2), stats.WorkGroups)
	assert.Equal(t, int64(2), stats.PipelineCompiles)
	assert.Equal(t, int64(0), stats.FenceTimeouts)
}
