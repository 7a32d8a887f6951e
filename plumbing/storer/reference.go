package storer

import (
	"io"

	"github.com/vcsforge/gitcore/plumbing"
)

// ReferenceStorer is a generic storage of references.
type ReferenceStorer interface {
	SetReference(*plumbing.Reference) error
	// CheckAndSetReference sets the reference `new`, only if the reference
	// currently stored for the same name matches `old`. If `old` is nil, any
	// reference is accepted.
	CheckAndSetReference(new, old *plumbing.Reference) error
	Reference(plumbing.ReferenceName) (*plumbing.Reference, error)
	IterReferences() (ReferenceIter, error)
	RemoveReference(plumbing.ReferenceName) error
	CountLooseRefs() (int, error)
	PackRefs() error
}

// ReferenceIter is a generic closable interface for iterating over references.
type ReferenceIter interface {
	Next() (*plumbing.Reference, error)
	ForEach(func(*plumbing.Reference) error) error
	Close()
}

// ReferenceSliceIter implements ReferenceIter. It iterates over a series of
// references stored in a slice and allows repeated iteration over the same
// finite set of references.
type ReferenceSliceIter struct {
	series []*plumbing.Reference
	pos    int
}

// NewReferenceSliceIter returns a reference iterator for the given slice of
// objects.
func NewReferenceSliceIter(series []*plumbing.Reference) ReferenceIter {
	return &ReferenceSliceIter{series: series}
}

// Next returns the next reference from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *ReferenceSliceIter) Next() (*plumbing.Reference, error) {
	if iter.pos >= len(iter.series) {
		return nil, io.EOF
	}

	obj := iter.series[iter.pos]
	iter.pos++
	return obj, nil
}

// ForEach call the cb function for each reference contained on this iter
// until an error happens or the end of the iter is reached. If ErrStop is
// sent the iteration is stopped but no error is returned. The iterator is
// closed.
func (iter *ReferenceSliceIter) ForEach(cb func(*plumbing.Reference) error) error {
	defer iter.Close()
	for _, r := range iter.series {
		if err := cb(r); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}

	return nil
}

// Close releases any resources used by the iterator.
func (iter *ReferenceSliceIter) Close() {
	iter.pos = len(iter.series)
}

// ReferenceFilteredIter is a reference iterator that filters the references
// returned by a wrapped ReferenceIter using a predicate function.
type ReferenceFilteredIter struct {
	ff func(r *plumbing.Reference) bool
	i  ReferenceIter
}

// NewReferenceFilteredIter returns a reference iterator for the given
// underlying iterator, that only shows references that accomplish the
// provided function.
func NewReferenceFilteredIter(
	ff func(r *plumbing.Reference) bool, i ReferenceIter) ReferenceIter {
	return &ReferenceFilteredIter{ff, i}
}

// Next returns the next reference from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *ReferenceFilteredIter) Next() (*plumbing.Reference, error) {
	for {
		r, err := iter.i.Next()
		if err != nil {
			return nil, err
		}

		if iter.ff(r) {
			return r, nil
		}
	}
}

// ForEach call the cb function for each reference contained on this iter
// until an error happens or the end of the iter is reached. If ErrStop is
// sent the iteration is stopped but no error is returned. The iterator is
// closed.
func (iter *ReferenceFilteredIter) ForEach(cb func(*plumbing.Reference) error) error {
	defer iter.Close()
	for {
		r, err := iter.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if err := cb(r); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}

	return nil
}

// Close releases any resources used by the iterator.
func (iter *ReferenceFilteredIter) Close() {
	iter.i.Close()
}

// MultiReferenceIter iterates over several ReferenceIter in sequence.
type MultiReferenceIter struct {
	iters []ReferenceIter
	pos   int
}

// NewMultiReferenceIter returns a reference iterator that iterates over all
// the given reference iterators in sequence.
func NewMultiReferenceIter(iters []ReferenceIter) ReferenceIter {
	return &MultiReferenceIter{iters: iters}
}

// Next returns the next reference from the iterator. If the iterator has
// reached the end it will return io.EOF as an error.
func (iter *MultiReferenceIter) Next() (*plumbing.Reference, error) {
	for iter.pos < len(iter.iters) {
		r, err := iter.iters[iter.pos].Next()
		if err == io.EOF {
			iter.pos++
			continue
		}

		return r, err
	}

	return nil, io.EOF
}

// ForEach call the cb function for each reference contained on this iter
// until an error happens or the end of the iter is reached. If ErrStop is
// sent the iteration is stopped but no error is returned. The iterator is
// closed.
func (iter *MultiReferenceIter) ForEach(cb func(*plumbing.Reference) error) error {
	defer iter.Close()
	for {
		r, err := iter.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if err := cb(r); err != nil {
			if err == ErrStop {
				return nil
			}

			return err
		}
	}

	return nil
}

// Close releases any resources used by the iterator.
func (iter *MultiReferenceIter) Close() {
	for _, i := range iter.iters {
		i.Close()
	}
}

// maxResolveRecursion is the max number of recursion that ResolveReference
// will make to resolve a symbolic reference to a hash reference.
const maxResolveRecursion = 1024

// ResolveReference resolves a SymbolicReference to a HashReference, following
// any nested symbolic references until a hash reference is reached, bounded
// by maxResolveRecursion.
func ResolveReference(s ReferenceStorer, n plumbing.ReferenceName) (*plumbing.Reference, error) {
	r, err := s.Reference(n)
	if err != nil || r == nil {
		return r, err
	}

	return resolveReference(s, r, 0)
}

func resolveReference(s ReferenceStorer, r *plumbing.Reference, recursion int) (*plumbing.Reference, error) {
	if r.Type() != plumbing.SymbolicReference {
		return r, nil
	}

	if recursion > maxResolveRecursion {
		return nil, plumbing.ErrReferenceNotFound
	}

	t, err := s.Reference(r.Target())
	if err != nil {
		return nil, err
	}

	recursion++
	return resolveReference(s, t, recursion)
}
