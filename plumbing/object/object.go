// Package object implements the encoding and decoding of objects in the git
// object model: commits, trees, blobs and tags.
package object

import (
	"errors"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// ErrUnsupportedObject is returned when an unsupported object type is
// requested from a container that carries a different kind of object,
// e.g. asking a Tag pointing to a blob for its Tree.
var ErrUnsupportedObject = errors.New("unsupported object type")

// Object is implemented by any value that can be built from, and turned
// into, a plumbing.EncodedObject: Commit, Tree, Blob and Tag.
type Object interface {
	ID() plumbing.Hash
	Type() plumbing.ObjectType
	Decode(plumbing.EncodedObject) error
	Encode(plumbing.EncodedObject) error
}

// GetObject gets an object from an object storer and decodes it.
func GetObject(s storer.EncodedObjectStorer, h plumbing.Hash) (Object, error) {
	o, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeObject(s, o)
}

// DecodeObject decodes an encoded object into an Object, picking the
// concrete type that matches o.Type().
func DecodeObject(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (Object, error) {
	switch o.Type() {
	case plumbing.CommitObject:
		return DecodeCommit(s, o)
	case plumbing.TreeObject:
		return DecodeTree(s, o)
	case plumbing.BlobObject:
		return DecodeBlob(o)
	case plumbing.TagObject:
		return DecodeTag(s, o)
	default:
		return nil, plumbing.ErrInvalidType
	}
}

// DecodeCommit decodes an encoded object into a *Commit.
func DecodeCommit(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Commit, error) {
	c := &Commit{s: s}
	if err := c.Decode(o); err != nil {
		return nil, err
	}

	return c, nil
}

// DecodeTree decodes an encoded object into a *Tree.
func DecodeTree(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Tree, error) {
	t := &Tree{s: s}
	if err := t.Decode(o); err != nil {
		return nil, err
	}

	return t, nil
}

// DecodeBlob decodes an encoded object into a *Blob.
func DecodeBlob(o plumbing.EncodedObject) (*Blob, error) {
	b := &Blob{}
	if err := b.Decode(o); err != nil {
		return nil, err
	}

	return b, nil
}

// DecodeTag decodes an encoded object into a *Tag.
func DecodeTag(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Tag, error) {
	t := &Tag{s: s}
	if err := t.Decode(o); err != nil {
		return nil, err
	}

	return t, nil
}

// GetCommit gets a commit by hash from an object storer.
func GetCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (*Commit, error) {
	o, err := s.EncodedObject(plumbing.CommitObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeCommit(s, o)
}

// GetTree gets a tree by hash from an object storer.
func GetTree(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tree, error) {
	o, err := s.EncodedObject(plumbing.TreeObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeTree(s, o)
}

// GetBlob gets a blob by hash from an object storer.
func GetBlob(s storer.EncodedObjectStorer, h plumbing.Hash) (*Blob, error) {
	o, err := s.EncodedObject(plumbing.BlobObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeBlob(o)
}

// GetTag gets a tag by hash from an object storer.
func GetTag(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tag, error) {
	o, err := s.EncodedObject(plumbing.TagObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeTag(s, o)
}

// ObjectIter is a generic closable interface for iterating over objects.
type ObjectIter struct {
	storer.EncodedObjectIter
	s storer.EncodedObjectStorer
}

// NewObjectIter takes a storer.EncodedObjectStorer and an
// storer.EncodedObjectIter and returns an ObjectIter that iterates over all
// objects contained in the storer.EncodedObjectIter, decoding them.
func NewObjectIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *ObjectIter {
	return &ObjectIter{iter, s}
}

// Next moves the iterator to the next object and returns it. If there are
// no more objects, it returns io.EOF.
func (iter *ObjectIter) Next() (Object, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeObject(iter.s, obj)
}

// ForEach runs cb for every object contained in this iterator until an
// error happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *ObjectIter) ForEach(cb func(Object) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		o, err := DecodeObject(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(o)
	})
}

func objectAsCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (*Commit, error) {
	obj, err := s.EncodedObject(plumbing.CommitObject, h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrUnsupportedObject
		}

		return nil, err
	}

	return DecodeCommit(s, obj)
}

func objectAsTree(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tree, error) {
	obj, err := s.EncodedObject(plumbing.TreeObject, h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrUnsupportedObject
		}

		return nil, err
	}

	return DecodeTree(s, obj)
}

func objectAsBlob(s storer.EncodedObjectStorer, h plumbing.Hash) (*Blob, error) {
	obj, err := s.EncodedObject(plumbing.BlobObject, h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrUnsupportedObject
		}

		return nil, err
	}

	return DecodeBlob(obj)
}
