package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

const (
	maxTreeDepth = 1024
)

var (
	// ErrMaxTreeDepth is returned when the maximum tree depth is exceeded
	// while walking a path, usually because of a cyclic tree.
	ErrMaxTreeDepth = errors.New("maximum tree depth exceeded")
	// ErrFileNotFound is returned when a path can't be resolved to a file
	// inside a Tree.
	ErrFileNotFound = errors.New("file not found")
	// ErrDirectoryNotFound is returned when an intermediate path component
	// can't be resolved to a directory inside a Tree.
	ErrDirectoryNotFound = errors.New("directory not found")
	// ErrEntryNotFound is returned when a name can't be found among a
	// Tree's direct entries.
	ErrEntryNotFound = errors.New("entry not found")
)

// TreeEntry represents a file or directory recorded in a Tree.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// Tree is equivalent to a directory, and holds a flat list of TreeEntry,
// each with a name and its own Hash and filemode.
type Tree struct {
	Entries []TreeEntry
	Hash    plumbing.Hash

	s storer.EncodedObjectStorer
	m map[string]*TreeEntry
}

// ID returns the object hash of the tree.
func (t *Tree) ID() plumbing.Hash {
	return t.Hash
}

// Type returns the type of the object, always plumbing.TreeObject.
func (t *Tree) Type() plumbing.ObjectType {
	return plumbing.TreeObject
}

// Decode transforms a plumbing.EncodedObject into a Tree struct.
func (t *Tree) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.TreeObject {
		return ErrUnsupportedObject
	}

	t.Hash = o.Hash()
	if o.Size() == 0 {
		t.Entries = nil
		t.m = nil
		return nil
	}

	reader, err := o.Reader()
	if err != nil {
		return err
	}
	defer func() {
		closeErr := reader.Close()
		if err == nil {
			err = closeErr
		}
	}()

	hashSize := t.Hash.Size()
	r := bufio.NewReader(reader)
	t.Entries = nil
	t.m = nil

	for {
		mode, err := r.ReadString(' ')
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		mode = strings.TrimSuffix(mode, " ")

		fm, err := filemode.New(mode)
		if err != nil {
			return err
		}

		name, err := r.ReadString(0)
		if err != nil {
			return err
		}
		name = strings.TrimSuffix(name, "\x00")

		buf := make([]byte, hashSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}

		hash, _ := plumbing.FromBytes(buf)
		t.Entries = append(t.Entries, TreeEntry{
			Name: name,
			Mode: fm,
			Hash: hash,
		})
	}

	return nil
}

// Encode transforms a Tree into a plumbing.EncodedObject.
func (t *Tree) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.TreeObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, entry := range t.Entries {
		if _, err := fmt.Fprintf(w, "%o %s", entry.Mode, entry.Name); err != nil {
			return err
		}

		if _, err := w.Write([]byte{0x00}); err != nil {
			return err
		}

		if _, err := w.Write(entry.Hash.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tree) buildMap() {
	if t.m != nil {
		return
	}

	t.m = make(map[string]*TreeEntry, len(t.Entries))
	for i := range t.Entries {
		t.m[t.Entries[i].Name] = &t.Entries[i]
	}
}

// File returns the hash of the file identified by the `path` argument.
// The path is interpreted as relative to the tree, split on "/".
func (t *Tree) File(path string) (*File, error) {
	e, err := t.FindEntry(path)
	if err != nil {
		return nil, ErrFileNotFound
	}

	if e.Mode == filemode.Dir {
		return nil, ErrFileNotFound
	}

	blob, err := GetBlob(t.s, e.Hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return NewFile(path, e.Mode, blob), nil
}

// Size returns the size of a file in the tree, given its path.
func (t *Tree) Size(path string) (int64, error) {
	e, err := t.FindEntry(path)
	if err != nil {
		return 0, err
	}

	return t.s.EncodedObjectSize(e.Hash)
}

// Tree returns the Tree identified by the `path` argument, interpreted as
// relative to this tree.
func (t *Tree) Tree(path string) (*Tree, error) {
	e, err := t.FindEntry(path)
	if err != nil {
		return nil, ErrDirectoryNotFound
	}

	if e.Mode == filemode.Dir {
		return objectAsTree(t.s, e.Hash)
	}

	return nil, ErrDirectoryNotFound
}

// TreeEntryFile returns the *File for a given TreeEntry.
func (t *Tree) TreeEntryFile(e *TreeEntry) (*File, error) {
	blob, err := GetBlob(t.s, e.Hash)
	if err != nil {
		return nil, err
	}

	return NewFile(e.Name, e.Mode, blob), nil
}

// FindEntry finds a TreeEntry by a relative path, traversing sub-trees as
// needed.
func (t *Tree) FindEntry(relpath string) (*TreeEntry, error) {
	pathParts := strings.Split(path.Clean(relpath), "/")

	var tree *Tree
	var err error

	tree = t
	for i, part := range pathParts {
		if i == len(pathParts)-1 {
			tree.buildMap()
			entry, ok := tree.m[part]
			if !ok {
				return nil, ErrEntryNotFound
			}

			return entry, nil
		}

		tree, err = tree.dir(part)
		if err != nil {
			return nil, ErrDirectoryNotFound
		}
	}

	return nil, ErrEntryNotFound
}

func (t *Tree) dir(baseName string) (*Tree, error) {
	t.buildMap()
	entry, ok := t.m[baseName]
	if !ok {
		return nil, ErrDirectoryNotFound
	}

	return objectAsTree(t.s, entry.Hash)
}

// Files returns a FileIter allowing to iterate over the Tree
func (t *Tree) Files() *FileIter {
	return NewFileIter(t.s, t)
}

// Diff returns a list of changes between this tree and the provided one.
func (t *Tree) Diff(to *Tree) (Changes, error) {
	return DiffTree(t, to)
}

// String is the string representation of a Tree. It is the content of the
// tree as git would print it, using `ls-tree`: mode, object type, name and
// hash, tab separated.
func (t *Tree) String() string {
	buf := bytes.NewBuffer(nil)
	for _, e := range t.Entries {
		typ := "blob"
		if e.Mode == filemode.Dir {
			typ = "tree"
		} else if e.Mode == filemode.Submodule {
			typ = "commit"
		}

		fmt.Fprintf(buf, "%06o %s %s\t%s\n", uint32(e.Mode), typ, e.Hash, e.Name)
	}

	return buf.String()
}

// TreeIter provides an iterator over Tree objects.
type TreeIter struct {
	storer.EncodedObjectIter
	s storer.EncodedObjectStorer
}

// NewTreeIter takes a storer.EncodedObjectStorer and a
// storer.EncodedObjectIter and returns a TreeIter that iterates over all
// trees contained in the storer.EncodedObjectIter.
func NewTreeIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TreeIter {
	return &TreeIter{iter, s}
}

// Next moves the iterator to the next tree and returns it. If there are no
// more trees, it returns io.EOF.
func (iter *TreeIter) Next() (*Tree, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeTree(iter.s, obj)
}

// ForEach runs cb for every tree contained in this iterator until an error
// happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *TreeIter) ForEach(cb func(*Tree) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		t, err := DecodeTree(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(t)
	})
}
