package pipecache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpublas/pkg/kernels"
)

func TestKey(t *testing.T) {
	key := string(Key("software:gpublas:Software Compute Device", kernels.Axpy))
	assert.Equal(t, "software:gpublas:Software Compute Device/axpy/v1/"+kernels.Axpy.DigestHex(), key)

	edited := *kernels.Axpy
	edited.Source += "\n"
	assert.NotEqual(t, key, string(Key("software:gpublas:Software Compute Device", &edited)),
		"source edits must change the key")
	assert.NotEqual(t, key, string(Key("opencl:AMD:gfx1030", kernels.Axpy)))
}

func TestInMemory(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	defer c.Close()

	key := Key("dev", kernels.Scale)
	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(key, []byte("artifact")))
	got, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("artifact"), got)

	require.NoError(t, c.Put(key, []byte("rebuilt")))
	got, _, _ = c.Get(key)
	assert.Equal(t, []byte("rebuilt"), got)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPersistent(t *testing.T) {
	dir := t.TempDir()
	key := Key("dev", kernels.Axpy)

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Put(key, []byte{1, 2, 3}))
	require.NoError(t, c.Close())

	c, err = Open(dir)
	require.NoError(t, err)
	defer c.Close()
	got, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestClosed(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err = c.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Put([]byte("k"), nil), ErrClosed)

	var nilCache *Cache
	_, _, err = nilCache.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseDuringLookups(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	key := Key("software", kernels.Scale)
	require.NoError(t, c.Put(key, []byte("artifact")))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, _, err := c.Get(key); err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
				if err := c.Put([]byte(fmt.Sprintf("k%d/%d", g, i)), nil); err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
			}
		}()
	}
	require.NoError(t, c.Close())
	wg.Wait()

	_, err = c.Len()
	assert.ErrorIs(t, err, ErrClosed)
}
