// Package pipecache persists compiled pipeline artifacts in BadgerDB.
//
// Compiling a kernel is the expensive part of building a pipeline. The
// artifact a device produces (an OpenCL program binary, or the software
// device's validated descriptor stamp) is stored under a key that ties it to
// the device model and the exact kernel source:
//
//	<device key>/<kernel name>/v<version>/<source digest>
//
// Editing a kernel's source changes its digest, so stale artifacts are never
// looked up again. Drivers still treat a cached artifact as a hint and rebuild
// from source when it does not load.
//
// An empty directory opens an in-memory cache that lives as long as the
// process.
package pipecache

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/orneryd/gpublas/pkg/kernels"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("pipecache: closed")

// Cache stores pipeline artifacts. It is safe for concurrent use, including
// Close racing with lookups.
type Cache struct {
	mu sync.RWMutex
	db *badger.DB
}

// Open opens (or creates) the cache in dir. An empty dir keeps the cache in
// memory.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		// A handful of small artifacts; keep the memtables and compactors small.
		opts = opts.WithInMemory(true).
			WithMemTableSize(8 << 20).
			WithNumMemtables(2).
			WithNumCompactors(2)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "pipecache: open %q", dir)
	}
	return &Cache{db: db}, nil
}

// Key returns the cache key for desc compiled on the device model deviceKey.
func Key(deviceKey string, desc *kernels.Descriptor) []byte {
	return []byte(fmt.Sprintf("%s/%s/v%d/%s", deviceKey, desc.Name, desc.Version, desc.DigestHex()))
}

// Get returns the artifact stored for key. ok is false on a miss.
func (c *Cache) Get(key []byte) (artifact []byte, ok bool, err error) {
	if c == nil {
		return nil, false, ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, false, ErrClosed
	}
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		artifact, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "pipecache: get %s", key)
	}
	return artifact, true, nil
}

// Put stores artifact under key, replacing any previous value.
func (c *Cache) Put(key, artifact []byte) error {
	if c == nil {
		return ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return ErrClosed
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, artifact)
	})
	return errors.Wrapf(err, "pipecache: put %s", key)
}

// Len returns the number of stored artifacts.
func (c *Cache) Len() (int, error) {
	if c == nil {
		return 0, ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return 0, ErrClosed
	}
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the cache. Safe to call twice.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// badgerLogger routes badger's logs through klog; info and debug chatter is
// kept behind verbosity levels.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	klog.ErrorfDepth(1, "badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	klog.WarningfDepth(1, "badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	klog.V(3).Infof("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	klog.V(5).Infof("badger: "+format, args...)
}
