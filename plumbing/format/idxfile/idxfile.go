// Package idxfile implements encoding and decoding of packfile idx files.
package idxfile

import (
	"bytes"
	"errors"
	"io"
	"sort"

	"github.com/vcsforge/gitcore/plumbing"
)

const (
	fanout      = 256
	noMapping   = -1
	VersionSupported = 2
)

// idxHeader is the magic signature that begins every version-2 idx file.
var idxHeader = IdxHeader

// ErrUnsupportedVersion is returned when an idx file declares an unknown
// version number.
var ErrUnsupportedVersion = errors.New("unsupported version")

// ErrMalformedIdxFile is returned when an idx file is truncated or its
// internal structure does not match its declared counts.
var ErrMalformedIdxFile = errors.New("malformed index file")

// Index represents the contents of a packfile .idx file: a sorted object
// index keyed by hash, supporting lookups in either direction.
type Index interface {
	// Contains checks whether the given hash is in the index.
	Contains(h plumbing.Hash) (bool, error)
	// FindOffset finds the offset in the packfile for the object with
	// the given hash.
	FindOffset(h plumbing.Hash) (int64, error)
	// FindCRC32 finds the CRC32 of the object with the given hash.
	FindCRC32(h plumbing.Hash) (uint32, error)
	// FindHash finds the hash for the object with the given offset.
	FindHash(offset int64) (plumbing.Hash, error)
	// Count returns the number of entries in the index.
	Count() (int64, error)
	// Entries returns an iterator to all entries in the index, sorted by
	// hash.
	Entries() (EntryIter, error)
	// EntriesByOffset returns an iterator to all entries in the index,
	// sorted by offset.
	EntriesByOffset() (EntryIter, error)
}

// Entry is the in-memory representation of an idx file entry.
type Entry struct {
	Hash   plumbing.Hash
	CRC32  uint32
	Offset uint64
}

// EntryIter is an iterator over index entries.
type EntryIter interface {
	// Next returns the next entry, or io.EOF when exhausted.
	Next() (*Entry, error)
}

// MemoryIndex is a full in-memory representation of an idx file.
type MemoryIndex struct {
	Version uint32

	Fanout        [fanout]uint32
	FanoutMapping [fanout]int
	Names         [][]byte
	Offset32      [][]byte
	CRC32         [][]byte
	Offset64      []byte

	PackfileChecksum plumbing.Hash
	IdxChecksum      plumbing.Hash

	offsetHashCache offsetHashCache
	offsetIdxCache  offsetIdxPosCache
}

func (idx *MemoryIndex) bucketize(h plumbing.Hash) (int, bool) {
	b := h.Bytes()[0]
	pos := idx.FanoutMapping[b]
	return pos, pos != noMapping
}

// Contains implements Index.
func (idx *MemoryIndex) Contains(h plumbing.Hash) (bool, error) {
	_, err := idx.FindOffset(h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (idx *MemoryIndex) search(h plumbing.Hash) (bucket, row int, ok bool) {
	bucket, has := idx.bucketize(h)
	if !has {
		return 0, 0, false
	}

	hb := h.Bytes()
	names := idx.Names[bucket]
	n := len(names) / len(hb)

	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		cmp := bytes.Compare(names[mid*len(hb):mid*len(hb)+len(hb)], hb)
		switch {
		case cmp == 0:
			return bucket, mid, true
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	return bucket, 0, false
}

// FindOffset implements Index.
func (idx *MemoryIndex) FindOffset(h plumbing.Hash) (int64, error) {
	bucket, row, ok := idx.search(h)
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}

	offset := int64(beUint32(idx.Offset32[bucket][row*4 : row*4+4]))
	if offset&int64(0x80000000) != 0 && len(idx.Offset64) > 0 {
		idx64 := (offset &^ 0x80000000) * 8
		offset = int64(beUint64(idx.Offset64[idx64 : idx64+8]))
	}

	idx.offsetHashCache.Put(offset, h)
	return offset, nil
}

// FindCRC32 implements Index.
func (idx *MemoryIndex) FindCRC32(h plumbing.Hash) (uint32, error) {
	bucket, row, ok := idx.search(h)
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}

	return beUint32(idx.CRC32[bucket][row*4 : row*4+4]), nil
}

// FindHash implements Index.
func (idx *MemoryIndex) FindHash(offset int64) (plumbing.Hash, error) {
	if h, ok := idx.offsetHashCache.Get(offset); ok {
		return h, nil
	}

	var found plumbing.Hash
	var foundErr error = plumbing.ErrObjectNotFound

	it, err := idx.Entries()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return plumbing.ZeroHash, err
		}

		idx.offsetHashCache.Put(int64(e.Offset), e.Hash)
		if int64(e.Offset) == offset {
			found = e.Hash
			foundErr = nil
		}
	}

	return found, foundErr
}

// Count implements Index.
func (idx *MemoryIndex) Count() (int64, error) {
	return int64(idx.Fanout[fanout-1]), nil
}

// Entries implements Index, returning entries sorted by hash.
func (idx *MemoryIndex) Entries() (EntryIter, error) {
	return &memoryIndexIter{idx: idx}, nil
}

// EntriesByOffset implements Index, returning entries sorted by offset.
func (idx *MemoryIndex) EntriesByOffset() (EntryIter, error) {
	all, err := idx.allEntries()
	if err != nil {
		return nil, err
	}

	sortEntriesByOffset(all)
	return &sliceEntryIter{entries: all}, nil
}

func (idx *MemoryIndex) allEntries() ([]*Entry, error) {
	it, err := idx.Entries()
	if err != nil {
		return nil, err
	}

	var all []*Entry
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		all = append(all, e)
	}

	return all, nil
}

type memoryIndexIter struct {
	idx    *MemoryIndex
	bucket int
	row    int
}

func (it *memoryIndexIter) Next() (*Entry, error) {
	for it.bucket < fanout {
		pos := it.idx.FanoutMapping[it.bucket]
		if pos == noMapping {
			it.bucket++
			it.row = 0
			continue
		}

		names := it.idx.Names[pos]
		hashSize := it.idx.PackfileChecksum.Size()
		if hashSize == 0 {
			hashSize = 20
		}

		n := len(names) / hashSize
		if it.row >= n {
			it.bucket++
			it.row = 0
			continue
		}

		row := it.row
		it.row++

		hb := names[row*hashSize : row*hashSize+hashSize]
		h, _ := plumbing.FromBytes(hb)

		offset := int64(beUint32(it.idx.Offset32[pos][row*4 : row*4+4]))
		if offset&int64(0x80000000) != 0 && len(it.idx.Offset64) > 0 {
			idx64 := (offset &^ 0x80000000) * 8
			offset = int64(beUint64(it.idx.Offset64[idx64 : idx64+8]))
		}

		crc := beUint32(it.idx.CRC32[pos][row*4 : row*4+4])

		return &Entry{Hash: h, CRC32: crc, Offset: uint64(offset)}, nil
	}

	return nil, io.EOF
}

type sliceEntryIter struct {
	entries []*Entry
	pos     int
}

func (it *sliceEntryIter) Next() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, io.EOF
	}

	e := it.entries[it.pos]
	it.pos++
	return e, nil
}

func sortEntriesByOffset(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Offset < entries[j].Offset
	})
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
