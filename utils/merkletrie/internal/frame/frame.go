// Package frame provides a sorted view of the children of a noder,
// used by the merkletrie differ to walk two trees in lock-step.
package frame

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vcsforge/gitcore/utils/merkletrie/noder"
)

// Frame holds the children of a noder sorted by name.
type Frame struct {
	elements []noder.Noder
}

// New returns a new Frame with the sorted children of n.
func New(n noder.Noder) (*Frame, error) {
	children, err := n.Children()
	if err != nil {
		return nil, fmt.Errorf("cannot get children of %q: %s", n.Name(), err)
	}

	f := &Frame{elements: children}
	sort.Sort(byName(f.elements))

	return f, nil
}

type byName []noder.Noder

func (a byName) Len() int           { return len(a) }
func (a byName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byName) Less(i, j int) bool { return a[i].Name() < a[j].Name() }

// Len returns the number of elements still in the frame.
func (f *Frame) Len() int {
	return len(f.elements)
}

// First returns the first element of the frame without removing it.
// The second return value is false if the frame is empty.
func (f *Frame) First() (noder.Noder, bool) {
	if len(f.elements) == 0 {
		return nil, false
	}

	return f.elements[0], true
}

// Drop removes the first element of the frame, if any.
func (f *Frame) Drop() {
	if len(f.elements) == 0 {
		return
	}

	f.elements = f.elements[1:]
}

// String returns the frame as a JSON-like array of quoted names, e.g.
// `["a", "b"]`.
func (f *Frame) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range f.elements {
		if i != 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%q", e.Name())
	}
	buf.WriteByte(']')

	return buf.String()
}
