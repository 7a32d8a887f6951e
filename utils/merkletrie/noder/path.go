package noder

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Path values represent a path in a tree and implement the Noder
// interface based on the last element of the path. This is used by
// the merkletrie differ to report element positions along with their
// chain of parent directories.
type Path []Noder

// String returns the path joined by "/", e.g. "a/b/c".
func (p Path) String() string {
	names := make([]string, len(p))
	for i, e := range p {
		names[i] = e.Name()
	}

	return strings.Join(names, "/")
}

// Last returns the last element of the path, or nil if the path is
// empty.
func (p Path) Last() Noder {
	if len(p) == 0 {
		return nil
	}

	return p[len(p)-1]
}

// Name returns the name of the last element of the path.
func (p Path) Name() string {
	return p.Last().Name()
}

// Hash returns the hash of the last element of the path.
func (p Path) Hash() []byte {
	return p.Last().Hash()
}

// IsDir returns if the last element of the path is a directory.
func (p Path) IsDir() bool {
	return p.Last().IsDir()
}

// Children returns the children of the last element of the path.
func (p Path) Children() ([]Noder, error) {
	return p.Last().Children()
}

// NumChildren returns the number of children of the last element of
// the path.
func (p Path) NumChildren() (int, error) {
	return p.Last().NumChildren()
}

// Skip returns if the last element of the path should be skipped.
func (p Path) Skip() bool {
	return p.Last().Skip()
}

// Compare returns an integer comparing two paths component by
// component, Unicode-normalizing each component name before
// comparing it. The result is negative if p < other, 0 if p == other,
// and positive if p > other. Paths of different length that share a
// common prefix compare by length, the shorter path sorting first.
func (p Path) Compare(other Path) int {
	max := len(p)
	if len(other) < max {
		max = len(other)
	}

	for i := 0; i < max; i++ {
		if c := compareNames(p[i].Name(), other[i].Name()); c != 0 {
			return c
		}
	}

	return len(p) - len(other)
}

func compareNames(a, b string) int {
	return strings.Compare(norm.NFC.String(a), norm.NFC.String(b))
}
