package object

import (
	"io"
	"path"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

const startingStackSize = 8

// TreeWalker provides a means of walking through all of the entries in a
// Tree.
type TreeWalker struct {
	stack     []treeEntryIter
	recursive bool
	seen      map[plumbing.Hash]bool
	base      string

	s storer.EncodedObjectStorer
	t *Tree
}

// NewTreeWalker returns a new TreeWalker for the given tree.
//
// It is the caller's responsibility to call Close() when finished with the
// tree walker.
func NewTreeWalker(t *Tree, recursive bool, seen map[plumbing.Hash]bool) *TreeWalker {
	w := TreeWalker{
		stack:     make([]treeEntryIter, 0, startingStackSize),
		recursive: recursive,
		seen:      seen,
		base:      "",
		s:         t.s,
		t:         t,
	}
	w.stack = append(w.stack, treeEntryIter{t, 0})
	return &w
}

// Next returns the next object from the tree. Objects are returned in order
// and subtrees are included when the walker was created as recursive. After
// the last object has been returned further calls to Next() will return
// io.EOF.
//
// Objects that cannot be found in the underlying storer are skipped
// automatically.
func (w *TreeWalker) Next() (name string, entry TreeEntry, err error) {
	var t *Tree
	for {
		current := len(w.stack) - 1
		if current < 0 {
			err = io.EOF
			return
		}

		if current > maxTreeDepth {
			err = ErrMaxTreeDepth
			return
		}

		entry, err = w.stack[current].Next()
		if err == io.EOF {
			w.stack = w.stack[:current]
			w.base, _ = path.Split(w.base)
			w.base = path.Clean(w.base)
			continue
		}

		if err != nil {
			return
		}

		if entry.Mode == filemode.Submodule {
			err = nil
			continue
		}

		if entry.Mode == filemode.Dir && w.recursive && !w.seen[entry.Hash] {
			t, err = objectAsTree(w.s, entry.Hash)
		} else {
			t = nil
		}

		name = path.Join(w.base, entry.Name)

		if err != nil {
			return
		}

		break
	}

	if t != nil {
		if w.seen != nil {
			w.seen[entry.Hash] = true
		}
		w.stack = append(w.stack, treeEntryIter{t, 0})
		w.base = path.Join(w.base, entry.Name)
	}

	return
}

// Tree returns the tree that the tree walker most recently operated on.
func (w *TreeWalker) Tree() *Tree {
	current := len(w.stack) - 1
	if current < 0 {
		return nil
	}
	return w.stack[current].t
}

// Close releases any resources used by the TreeWalker.
func (w *TreeWalker) Close() {
	w.stack = nil
}

type treeEntryIter struct {
	t   *Tree
	pos int
}

func (i *treeEntryIter) Next() (TreeEntry, error) {
	if i.pos >= len(i.t.Entries) {
		return TreeEntry{}, io.EOF
	}

	i.pos++
	return i.t.Entries[i.pos-1], nil
}
