package gpu

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpublas/pkg/gpu/software"
)

func TestUpload(t *testing.T) {
	c := newTestContext(t)

	t.Run("mutable", func(t *testing.T) {
		data := []uint32{3, 1, 4, 1, 5}
		v, err := c.Upload(data)
		require.NoError(t, err)
		defer v.Release()

		assert.Equal(t, 5, v.Len())
		assert.Equal(t, ModeMutable, v.Mode())
		assert.True(t, v.Uploaded().Poll(), "mutable uploads complete before return")

		data[0] = 99 // the vector holds its own copy
		out, err := v.Read()
		require.NoError(t, err)
		assert.Equal(t, []uint32{3, 1, 4, 1, 5}, out)
	})

	t.Run("immutable", func(t *testing.T) {
		v, fence, err := c.UploadImmutable([]uint32{7, 8, 9})
		require.NoError(t, err)
		defer v.Release()

		assert.Equal(t, ModeImmutable, v.Mode())
		assert.Same(t, fence, v.Uploaded())
		require.NoError(t, fence.Wait(0))

		out, err := v.Read()
		require.NoError(t, err)
		assert.Equal(t, []uint32{7, 8, 9}, out)
	})

	t.Run("empty", func(t *testing.T) {
		v, err := c.Upload(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, v.Len())
		assert.Nil(t, v.buf, "no device memory for empty vectors")

		out, err := v.Read()
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.NotNil(t, out)
		v.Release()

		iv, fence, err := c.UploadImmutable([]uint32{})
		require.NoError(t, err)
		assert.True(t, fence.Poll())
		assert.Equal(t, 0, iv.Len())
	})

	t.Run("release", func(t *testing.T) {
		v, err := c.Upload([]uint32{1})
		require.NoError(t, err)
		v.Release()
		v.Release()

		_, err = v.Read()
		assert.True(t, errors.Is(err, ErrReleased), "got %v", err)
	})
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "mutable", ModeMutable.String())
	assert.Equal(t, "immutable", ModeImmutable.String())
	assert.Equal(t, "unknown", Mode(9).String())
}

func TestReleaseDuringUpload(t *testing.T) {
	c := newTestContext(t, func(c *Config) { c.Workers = 1 })
	dev := c.Device().(*software.Device)

	v, fence, err := c.UploadImmutable(make([]uint32, 1<<20))
	require.NoError(t, err)
	v.Release()
	require.NoError(t, fence.Wait(5*time.Second))
	require.Eventually(t, func() bool { return dev.Allocated() == 0 }, 5*time.Second, time.Millisecond)

	v.Release()
	assert.Equal(t, int64(0), dev.Allocated())
}
