package merkletrie

import (
	"io"

	"github.com/vcsforge/gitcore/utils/merkletrie/internal/frame"
	"github.com/vcsforge/gitcore/utils/merkletrie/noder"
)

// Iter is a stateful, depth-first iterator over the elements reachable
// from a noder.Noder. Next moves to the next sibling without
// descending into directories; Step descends into the last node
// returned if it is a directory that has not already been descended
// into, otherwise it behaves like Next.
type Iter struct {
	stack []*frame.Frame
	top   noder.Path

	last    noder.Noder
	stepped bool
}

// NewIter returns an iterator over the tree rooted at root. A nil root
// produces an iterator that is immediately exhausted.
func NewIter(root noder.Noder) (*Iter, error) {
	if root == nil {
		return &Iter{}, nil
	}

	f, err := frame.New(root)
	if err != nil {
		return nil, err
	}

	return &Iter{stack: []*frame.Frame{f}}, nil
}

// NewIterFromPath returns an iterator over the children of the last
// element of start. Every path the iterator returns is prefixed by
// start.
func NewIterFromPath(start noder.Path) (*Iter, error) {
	f, err := frame.New(start.Last())
	if err != nil {
		return nil, err
	}

	top := make(noder.Path, len(start))
	copy(top, start)

	return &Iter{stack: []*frame.Frame{f}, top: top}, nil
}

// Next returns the path to the next element, without descending into
// the last returned element even if it is a directory. It returns
// io.EOF once the tree has been fully visited.
func (iter *Iter) Next() (noder.Path, error) {
	return iter.advance()
}

// Step behaves like Next, except that if the last element it returned
// was a directory not yet descended into, it returns the path to that
// directory's first child instead of skipping over it.
func (iter *Iter) Step() (noder.Path, error) {
	if iter.last != nil && iter.last.IsDir() && !iter.stepped {
		iter.stepped = true

		f, err := frame.New(iter.last)
		if err != nil {
			return nil, err
		}

		iter.top = append(iter.top, iter.last)
		iter.stack = append(iter.stack, f)
	}

	return iter.advance()
}

func (iter *Iter) advance() (noder.Path, error) {
	if len(iter.stack) == 0 {
		return nil, io.EOF
	}

	current := iter.stack[len(iter.stack)-1]
	first, ok := current.First()
	if !ok {
		if len(iter.stack) > 1 {
			iter.stack = iter.stack[:len(iter.stack)-1]
			iter.top = iter.top[:len(iter.top)-1]
		} else {
			iter.stack = iter.stack[:len(iter.stack)-1]
		}

		return iter.advance()
	}

	current.Drop()

	iter.last = first
	iter.stepped = false

	path := make(noder.Path, len(iter.top)+1)
	copy(path, iter.top)
	path[len(path)-1] = first

	return path, nil
}
