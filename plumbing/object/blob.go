package object

import (
	"io"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// Blob is used to store arbitrary content in the repository, associated with
// it some keys that describe what it stores.
type Blob struct {
	Hash plumbing.Hash
	Size int64

	obj plumbing.EncodedObject
}

// ID returns the object ID of the blob, the SHA1 (or SHA256) of its content.
func (b *Blob) ID() plumbing.Hash {
	return b.Hash
}

// Type returns the type of the object, always plumbing.BlobObject.
func (b *Blob) Type() plumbing.ObjectType {
	return plumbing.BlobObject
}

// Decode transforms a plumbing.EncodedObject into a Blob struct.
func (b *Blob) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.BlobObject {
		return ErrUnsupportedObject
	}

	b.Hash = o.Hash()
	b.Size = o.Size()
	b.obj = o

	return nil
}

// Encode transforms a Blob into a plumbing.EncodedObject.
func (b *Blob) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.BlobObject)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	r, err := b.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(w, r)
	return err
}

// Reader returns a reader for the blob's content.
func (b *Blob) Reader() (io.ReadCloser, error) {
	return b.obj.Reader()
}

// BlobIter provides an iterator over Blob objects.
type BlobIter struct {
	storer.EncodedObjectIter
}

// NewBlobIter takes a storer.EncodedObjectStorer and a
// storer.EncodedObjectIter and returns a BlobIter that iterates over all
// blobs contained in the storer.EncodedObjectIter.
func NewBlobIter(_ storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *BlobIter {
	return &BlobIter{iter}
}

// Next moves the iterator to the next blob and returns it. If there are no
// more blobs, it returns io.EOF.
func (iter *BlobIter) Next() (*Blob, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeBlob(obj)
}

// ForEach runs cb for every blob contained in this iterator until an error
// happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *BlobIter) ForEach(cb func(*Blob) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		b, err := DecodeBlob(obj)
		if err != nil {
			return err
		}

		return cb(b)
	})
}
