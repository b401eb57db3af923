// Package pool recycles the uint32 backing arrays used for device memory.
//
// The software device allocates one []uint32 per vector. Short-lived vectors
// (every Scale/Axpy call uploads, dispatches, reads back and releases) would
// otherwise churn the garbage collector, so released buffers go back into a
// pool keyed by power-of-two size class and are handed out again to the next
// allocation of a similar size.
//
// Usage:
//
//	words := pool.GetWords(n)
//	defer pool.PutWords(words)
//
//	// Use the slice...
//	copy(words, data)
package pool

import (
	"math/bits"
	"sync"
)

// PoolConfig configures pooling behavior.
//
// Fields:
//   - Enabled: Controls whether pooling is active (disable for debugging)
//   - MaxWords: Largest slice capacity, in elements, that is kept for reuse
//
// Example:
//
//	pool.Configure(pool.PoolConfig{
//		Enabled:  true,
//		MaxWords: 1 << 20, // keep slices up to 4MB
//	})
//
// ELI12:
//
// Think of the pool like a stack of empty boxes in sizes 1, 2, 4, 8, ...
// When you need a box for 100 things you take a 128 box off the stack
// instead of building a new one. When you are done you put it back. Boxes
// bigger than MaxWords are thrown away so the stack never eats the house.
type PoolConfig struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxWords limits the capacity of slices kept in the pool
	MaxWords int
}

// DefaultMaxWords keeps slices up to 64MB.
const DefaultMaxWords = 1 << 24

var globalConfig = PoolConfig{
	Enabled:  true,
	MaxWords: DefaultMaxWords,
}

// Configure sets global pool configuration.
//
// This function should be called once during application initialization,
// before any pooled slices are handed out. Calling it again drops all
// currently pooled slices.
//
// Thread Safety:
//
//	Not thread-safe. Call only during initialization.
func Configure(config PoolConfig) {
	globalConfig = config
	initPools()
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// One pool per power-of-two capacity class.
var wordPools [64]sync.Pool

func initPools() {
	wordPools = [64]sync.Pool{}
}

// sizeClass returns the smallest class c with 1<<c >= n.
func sizeClass(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// GetWords returns a slice of length n. Its contents are unspecified; callers
// overwrite it completely (uploads always write the whole buffer).
//
// Example:
//
//	words := pool.GetWords(len(data))
//	copy(words, data)
func GetWords(n int) []uint32 {
	if n <= 0 {
		return nil
	}
	if !globalConfig.Enabled || n > globalConfig.MaxWords {
		return make([]uint32, n)
	}
	class := sizeClass(n)
	if p, ok := wordPools[class].Get().(*[]uint32); ok && p != nil {
		return (*p)[:n]
	}
	return make([]uint32, n, 1<<class)
}

// PutWords returns a slice obtained from GetWords to the pool.
//
// Memory Safety:
//   - Don't use the slice after calling PutWords
//   - Slices above MaxWords, or whose capacity is not a size class, are dropped
func PutWords(words []uint32) {
	if !globalConfig.Enabled || words == nil {
		return
	}
	c := cap(words)
	if c > globalConfig.MaxWords || c&(c-1) != 0 {
		return
	}
	words = words[:0]
	wordPools[sizeClass(c)].Put(&words)
}
