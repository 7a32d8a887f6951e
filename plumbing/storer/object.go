package storer

import (
	"errors"
	"io"
	"time"

	"github.com/vcsforge/gitcore/plumbing"
)

// ErrStop is used to stop a ForEach function in an Iter
var ErrStop = errors.New("stop iter")

// EncodedObjectStorer generic storage of objects.
type EncodedObjectStorer interface {
	// NewEncodedObject returns a new EncodedObject, the real type of the
	// object can be a custom implementation or the default one, OnDiskObject.
	NewEncodedObject() plumbing.EncodedObject
	// SetEncodedObject saves an object into the storage, the object should
	// be create with the NewEncodedObject, method, and file if the type is
	// not supported.
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	// EncodedObject gets an object by hash with the given
	// plumbing.ObjectType. Implementors should return
	// (nil, plumbing.ErrObjectNotFound) if an object doesn't exist with
	// both the given hash and object type.
	//
	// Valid plumbing.ObjectType values are CommitObject, BlobObject, TagObject,
	// TreeObject and AnyObject. If plumbing.AnyObject is given, the object must
	// be looked up regardless of its type.
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	// IterEncodedObjects returns an iterator for all the objects in the
	// storage with the given plumbing.ObjectType. The iterator returned
	// can be used for canceling the iteration.
	IterEncodedObjects(plumbing.ObjectType) (EncodedObjectIter, error)
	// HasEncodedObject returns ErrObjNotFound if the object doesn't exist
	// without any further objects.
	HasEncodedObject(plumbing.Hash) error
	// EncodedObjectSize returns the plaintext size of the encoded object.
	EncodedObjectSize(plumbing.Hash) (int64, error)
}

// DeltaObjectStorer is an optional interface for EncodedObjectStorer that
// allows objects to be delta encoded, such as in a packfile.
type DeltaObjectStorer interface {
	// DeltaObject is the same as EncodedObject but allows for the resolution
	// of deltas and their base objects whenever possible.
	DeltaObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
}

// Transaction is an in-progress storage transaction. A transaction must end
// with a call to Commit or Rollback.
type Transaction interface {
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	Commit() error
	Rollback() error
}

// Transactioner is a storage that supports transactions.
type Transactioner interface {
	Begin() Transaction
}

// PackWriter is a io.Writer that can receive a whole packfile, generating
// the objects and the index for it.
type PackWriter interface {
	io.Writer
	io.Closer
}

// RawObjectWriter allows to write objects directly into the content-addressable
// store, for those storers that support it.
type RawObjectWriter interface {
	RawObjectWriter(typ plumbing.ObjectType, sz int64) (io.WriteCloser, error)
}

// PackfileWriter is a storer that allows to write a packfile directly onto
// the storer, without the need to decode the whole packfile in memory first.
type PackfileWriter interface {
	// PackfileWriter returns a writer for writing a packfile directly to
	// the storage. If the storer not implement PackfileWriter the objects
	// should be written using the Set method.
	PackfileWriter() (io.WriteCloser, error)
}

// LooseObjectStorer describes a storer that stores objects as loose objects
// on disk and can report and delete them individually.
type LooseObjectStorer interface {
	// ForEachObjectHash iterates over all the (loose) object hashes.
	ForEachObjectHash(func(plumbing.Hash) error) error
	// LooseObjectTime looks up the (m)time associated with the given loose
	// object, if any.
	LooseObjectTime(plumbing.Hash) (time.Time, error)
	// DeleteLooseObject deletes the given object from a repository's
	// object database.
	DeleteLooseObject(plumbing.Hash) error
}

// PackedObjectStorer describes a storer that stores objects as packfiles
// on disk and can report and delete packs individually.
type PackedObjectStorer interface {
	// ObjectPacks returns the list of hashes of the packs available in the
	// storage.
	ObjectPacks() ([]plumbing.Hash, error)
	// DeleteOldObjectPackAndIndex deletes the requested packfile and
	// associated index file if they exist and are older than the given
	// time.
	DeleteOldObjectPackAndIndex(plumbing.Hash, time.Time) error
}

// AlternatesStorer describes a storer that supports git alternates.
type AlternatesStorer interface {
	AddAlternate(remote string) error
}

// EncodedObjectIter is a generic closable interface for iterating over objects.
type EncodedObjectIter interface {
	Next() (plumbing.EncodedObject, error)
	ForEach(func(plumbing.EncodedObject) error) error
	Close()
}

// EncodedObjectLookupIter implements EncodedObjectIter. It iterates over a
// series of object hashes and yields their associated objects by calling
// the EncodedObject method of the given EncodedObjectStorer.
type EncodedObjectLookupIter struct {
	storer EncodedObjectStorer
	t      plumbing.ObjectType
	series []plumbing.Hash
	pos    int
}

// NewEncodedObjectLookupIter returns an object iterator given an
// EncodedObjectStorer and a slice of object hashes.
func NewEncodedObjectLookupIter(
	storer EncodedObjectStorer, t plumbing.ObjectType, series []plumbing.Hash) *EncodedObjectLookupIter {
	return &EncodedObjectLookupIter{storer: storer, t: t, series: series}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *EncodedObjectLookupIter) Next() (plumbing.EncodedObject, error) {
	if iter.pos >= len(iter.series) {
		return nil, io.EOF
	}

	obj, err := iter.storer.EncodedObject(iter.t, iter.series[iter.pos])
	if err != nil {
		return nil, err
	}

	iter.pos++
	return obj, nil
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stopped but no error is returned. The iterator is closed.
func (iter *EncodedObjectLookupIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return forEachIterator(iter, cb)
}

// Close releases any resources used by the iterator.
func (iter *EncodedObjectLookupIter) Close() {
	iter.pos = len(iter.series)
}

// EncodedObjectSliceIter implements EncodedObjectIter. It iterates over a
// series of objects stored in a slice.
type EncodedObjectSliceIter struct {
	series []plumbing.EncodedObject
}

// NewEncodedObjectSliceIter returns an object iterator for the given slice
// of objects.
func NewEncodedObjectSliceIter(series []plumbing.EncodedObject) *EncodedObjectSliceIter {
	return &EncodedObjectSliceIter{series: series}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *EncodedObjectSliceIter) Next() (plumbing.EncodedObject, error) {
	if len(iter.series) == 0 {
		return nil, io.EOF
	}

	obj := iter.series[0]
	iter.series = iter.series[1:]

	return obj, nil
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stopped but no error is returned. The iterator is closed.
func (iter *EncodedObjectSliceIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return forEachIterator(iter, cb)
}

// Close releases any resources used by the iterator.
func (iter *EncodedObjectSliceIter) Close() {
	iter.series = nil
}

// MultiEncodedObjectIter iterates over several EncodedObjectIter in sequence.
type MultiEncodedObjectIter struct {
	iters []EncodedObjectIter
	pos   int
}

// NewMultiEncodedObjectIter returns an object iterator that iterates over
// all the given object iterators in sequence.
func NewMultiEncodedObjectIter(iters []EncodedObjectIter) EncodedObjectIter {
	return &MultiEncodedObjectIter{iters: iters}
}

// Next returns the next object from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *MultiEncodedObjectIter) Next() (plumbing.EncodedObject, error) {
	for iter.pos < len(iter.iters) {
		o, err := iter.iters[iter.pos].Next()
		if err == io.EOF {
			iter.pos++
			continue
		}

		return o, err
	}

	return nil, io.EOF
}

// ForEach call the cb function for each object contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stopped but no error is returned. The iterator is closed.
func (iter *MultiEncodedObjectIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return forEachIterator(iter, cb)
}

// Close releases any resources used by the iterator.
func (iter *MultiEncodedObjectIter) Close() {
	for _, i := range iter.iters {
		i.Close()
	}
}

type nextObjectIter interface {
	Next() (plumbing.EncodedObject, error)
	Close()
}

func forEachIterator(iter nextObjectIter, cb func(plumbing.EncodedObject) error) error {
	defer iter.Close()
	for {
		obj, err := iter.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}
}
