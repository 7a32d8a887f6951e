// Package noder provide an interface for defining nodes in a
// merkletrie, as well as some utility functions for working with
// those noders.
package noder

// Hasher interface is implemented by types that can tell you their hash.
type Hasher interface {
	Hash() []byte
}

// Noder is the interface implemented by the elements forming a merkle
// trie: a tree where each node carries the hash of its content, and
// directories carry a hash derived from the hashes of their children.
type Noder interface {
	Hasher
	// Name returns the name of the node.
	Name() string
	// IsDir returns true if the node is a directory (it may have
	// children).
	IsDir() bool
	// Children returns the children of the node in any order.
	Children() ([]Noder, error)
	// NumChildren returns the number of children of the node, which
	// may be cheaper to compute than len(Children()).
	NumChildren() (int, error)
	// Skip returns true if the node should be excluded from
	// comparisons (e.g. a submodule whose content is not tracked
	// here).
	Skip() bool
}

// NoChildren represents the children of a node without children.
var NoChildren = make([]Noder, 0)
