package fsnoder

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/vcsforge/gitcore/utils/merkletrie/noder"
)

// dir values represent directory-like noders in a merkle trie, built
// from the compact string DSL decoded by New.
type dir struct {
	name     string
	children map[string]noder.Noder // name to child
	hash     []byte                 // memoized
}

// newDir returns a noder representing a directory with the given name
// and children. Child names must be unique within the directory.
func newDir(name string, children []noder.Noder) (*dir, error) {
	d := &dir{
		name:     name,
		children: make(map[string]noder.Noder, len(children)),
	}

	for _, c := range children {
		if c.Name() == "" {
			return nil, fmt.Errorf("dirs cannot have no name unless they are the root")
		}
		if _, found := d.children[c.Name()]; found {
			return nil, fmt.Errorf("duplicated child name %q", c.Name())
		}
		d.children[c.Name()] = c
	}

	return d, nil
}

// The hash of a dir is the fnv64a hash of "dir " followed by, for each
// child in name order, the child's name, a space and the child's hash.
// The directory's own name plays no part in its hash: two differently
// named but otherwise identical directories hash the same, matching
// how their parent (not themselves) records the name.
func (d *dir) Hash() []byte {
	if d.hash == nil {
		h := fnv.New64a()
		h.Write([]byte("dir"))
		h.Write([]byte{dirElementSep})
		for _, c := range d.sortedChildren() {
			h.Write([]byte(c.Name()))
			h.Write([]byte{dirElementSep})
			h.Write(c.Hash())
		}
		d.hash = h.Sum(nil)
	}

	return d.hash
}

func (d *dir) sortedChildren() []noder.Noder {
	ret := make([]noder.Noder, 0, len(d.children))
	for _, c := range d.children {
		ret = append(ret, c)
	}
	sort.Sort(byName(ret))

	return ret
}

func (d *dir) Name() string {
	return d.name
}

func (d *dir) IsDir() bool {
	return true
}

func (d *dir) Children() ([]noder.Noder, error) {
	return d.sortedChildren(), nil
}

func (d *dir) NumChildren() (int, error) {
	return len(d.children), nil
}

func (d *dir) Skip() bool {
	return false
}

// String returns a string formatted as: name(child1 child2 ...), with
// children sorted by name and rendered recursively.
func (d *dir) String() string {
	var buf bytes.Buffer
	buf.WriteString(d.name)
	buf.WriteRune(dirStartMark)

	children := d.sortedChildren()
	for i, c := range children {
		if i != 0 {
			buf.WriteRune(dirElementSep)
		}
		fmt.Fprintf(&buf, "%s", c)
	}

	buf.WriteRune(dirEndMark)

	return buf.String()
}

// byName implements sort.Interface sorting noders by name.
type byName []noder.Noder

func (a byName) Len() int      { return len(a) }
func (a byName) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byName) Less(i, j int) bool {
	return a[i].Name() < a[j].Name()
}

const (
	dirStartMark  = '('
	dirEndMark    = ')'
	dirElementSep = ' '
)
