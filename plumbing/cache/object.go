package cache

import (
	"container/list"
	"sync"

	"github.com/vcsforge/gitcore/plumbing"
)

// ObjectLRU implements an object cache with an LRU eviction policy and a
// max size (measured in bytes of stored object content), safe for
// concurrent use.
type ObjectLRU struct {
	MaxSize FileSize

	mu         sync.Mutex
	actualSize FileSize
	ll         *list.List
	cache      map[plumbing.Hash]*list.Element
}

// NewObjectLRU creates a new ObjectLRU with the given maximum size.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{
		MaxSize: maxSize,
		ll:      list.New(),
		cache:   make(map[plumbing.Hash]*list.Element),
	}
}

// NewObjectLRUDefault creates a new ObjectLRU with the default cache size.
func NewObjectLRUDefault() *ObjectLRU {
	return NewObjectLRU(DefaultMaxSize)
}

// Put puts the given object into the cache. If the object is already
// in the cache, it is moved to the front along with its updated size.
// Oldest entries are evicted, as needed, to keep the cache within its
// max size.
func (c *ObjectLRU) Put(obj plumbing.EncodedObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := obj.Hash()
	if ee, ok := c.cache[key]; ok {
		c.ll.MoveToFront(ee)
		oldSize := ee.Value.(plumbing.EncodedObject).Size()
		ee.Value = obj
		c.actualSize -= FileSize(oldSize)
		c.actualSize += FileSize(obj.Size())
		return
	}

	ee := c.ll.PushFront(obj)
	c.cache[key] = ee
	c.actualSize += FileSize(obj.Size())

	for c.actualSize > c.MaxSize {
		last := c.ll.Back()
		if last == nil {
			break
		}

		lastObj := last.Value.(plumbing.EncodedObject)
		if lastObj.Hash() == key {
			break
		}

		c.ll.Remove(last)
		delete(c.cache, lastObj.Hash())
		c.actualSize -= FileSize(lastObj.Size())
	}
}

// Get returns an object by hash. Ok is false if not found.
func (c *ObjectLRU) Get(k plumbing.Hash) (plumbing.EncodedObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ee, ok := c.cache[k]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(ee)
	return ee.Value.(plumbing.EncodedObject), true
}

// Clear the content of this object cache.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = list.New()
	c.cache = make(map[plumbing.Hash]*list.Element)
	c.actualSize = 0
}
