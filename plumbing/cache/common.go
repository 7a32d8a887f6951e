package cache

import "github.com/vcsforge/gitcore/plumbing"

const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// FileSize represents the size of an object in bytes, used by the
// cache implementations to bound memory use.
type FileSize int64

const DefaultMaxSize FileSize = 96 * MiByte

// Object is a LRU cache of plumbing.EncodedObject, keyed by hash.
type Object interface {
	Put(o plumbing.EncodedObject)
	Get(k plumbing.Hash) (plumbing.EncodedObject, bool)
	Clear()
}

// Buffer is a LRU cache of byte slices, keyed by an arbitrary integer
// key (typically a packfile offset).
type Buffer interface {
	Put(k int64, b []byte)
	Get(k int64) ([]byte, bool)
	Clear()
}
