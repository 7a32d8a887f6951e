package object

import (
	"fmt"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/utils/merkletrie"
	"github.com/vcsforge/gitcore/utils/merkletrie/noder"
)

// treeNoder is a merkletrie.noder.Noder wrapper of a TreeEntry, used
// to compute the diff between two trees via the merkletrie package.
type treeNoder struct {
	parent *Tree
	name   string
	mode   filemode.FileMode
	hash   plumbing.Hash

	// root holds the tree this noder represents when it is the root
	// of a diff, as opposed to an entry found inside one.
	root *Tree
}

func newTreeNoder(t *Tree) noder.Noder {
	return &treeNoder{mode: filemode.Dir, root: t}
}

func (t *treeNoder) Hash() []byte {
	if t.root != nil {
		return t.root.Hash.Bytes()
	}

	fm := t.mode.Bytes()
	hb := t.hash.Bytes()
	h := make([]byte, 0, 20+len(fm))
	if len(hb) >= 20 {
		h = append(h, hb[:20]...)
	} else {
		h = append(h, hb...)
		h = append(h, make([]byte, 20-len(hb))...)
	}
	h = append(h, fm...)

	return h
}

func (t *treeNoder) Name() string {
	return t.name
}

func (t *treeNoder) IsDir() bool {
	return t.mode == filemode.Dir
}

// resolve returns the Tree this noder's children should be read from.
func (t *treeNoder) resolve() (*Tree, error) {
	if t.root != nil {
		return t.root, nil
	}

	return objectAsTree(t.parent.s, t.hash)
}

// Children returns the children of a tree-noder: the entries of the
// tree being represented, wrapped as treeNoders.
func (t *treeNoder) Children() ([]noder.Noder, error) {
	if t.mode != filemode.Dir {
		return noder.NoChildren, nil
	}

	if t.root == nil && t.hash == plumbing.ZeroHash {
		return noder.NoChildren, nil
	}

	tree, err := t.resolve()
	if err != nil {
		return nil, err
	}

	ret := make([]noder.Noder, len(tree.Entries))
	for i, entry := range tree.Entries {
		ret[i] = &treeNoder{
			parent: tree,
			name:   entry.Name,
			mode:   entry.Mode,
			hash:   entry.Hash,
		}
	}

	return ret, nil
}

func (t *treeNoder) NumChildren() (int, error) {
	if t.mode != filemode.Dir {
		return 0, nil
	}

	if t.root == nil && t.hash == plumbing.ZeroHash {
		return 0, nil
	}

	tree, err := t.resolve()
	if err != nil {
		return -1, err
	}

	return len(tree.Entries), nil
}

// Skip returns true for submodules, whose contents aren't tracked in
// this repository.
func (t *treeNoder) Skip() bool {
	return t.mode == filemode.Submodule
}

// newChange converts a merkletrie.Change into an object.Change.
func newChange(src merkletrie.Change) (*Change, error) {
	c := &Change{}

	var err error
	c.From, err = newChangeEntry(src.From)
	if err != nil {
		return nil, fmt.Errorf("generating 'from' entry: %s", err)
	}

	c.To, err = newChangeEntry(src.To)
	if err != nil {
		return nil, fmt.Errorf("generating 'to' entry: %s", err)
	}

	return c, nil
}

// newChangeEntry converts a noder.Path into an object.ChangeEntry,
// using the full joined path as the Name but the last path component
// for the Tree and TreeEntry.
func newChangeEntry(p noder.Path) (ChangeEntry, error) {
	if p == nil {
		return empty, nil
	}

	asTreeNoder, ok := p.Last().(*treeNoder)
	if !ok {
		return empty, fmt.Errorf("unable to convert noder.Path to object.ChangeEntry: %s", p)
	}

	return ChangeEntry{
		Name: p.String(),
		Tree: asTreeNoder.parent,
		TreeEntry: TreeEntry{
			Name: asTreeNoder.name,
			Mode: asTreeNoder.mode,
			Hash: asTreeNoder.hash,
		},
	}, nil
}

// newChanges converts merkletrie.Changes into object.Changes.
func newChanges(src merkletrie.Changes) (Changes, error) {
	ret := make(Changes, len(src))
	for i, c := range src {
		var err error
		ret[i], err = newChange(c)
		if err != nil {
			return nil, fmt.Errorf("generating changes: %s", err)
		}
	}

	return ret, nil
}
