// Package diff defines the types used to represent the differences
// between two git trees as a collection of per-file patches, each
// broken down into chunks of unchanged, added or removed content.
package diff

import (
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
)

// Operation defines the operation of a diff item.
type Operation int

const (
	// Equal item represents a chunk that is equal in both original
	// and destination trees.
	Equal Operation = iota
	// Add item represents a chunk that is added in destination tree.
	Add
	// Delete item represents a chunk that is delete in destination tree.
	Delete
)

func (o Operation) String() string {
	switch o {
	case Equal:
		return "equal"
	case Add:
		return "add"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Patch represents a collection of steps to transform several files.
type Patch interface {
	// FilePatches returns a slice of patches per file.
	FilePatches() []FilePatch
	// Message returns an optional message that can be at the top of
	// many patch files.
	Message() string
}

// FilePatch represents the necessary steps to transform one file to
// another.
type FilePatch interface {
	// IsBinary returns true if this patch is representing a binary
	// file.
	IsBinary() bool
	// Files returns the from and to Files, which can be used to
	// determine precise behavior for binary files. It may return nil
	// for either to, from, or both if the file is being added or
	// deleted, respectively.
	Files() (from, to File)
	// Chunks returns a slice of ordered changes to transform "from"
	// File to "to" File.
	Chunks() []Chunk
}

// File contains information about a file in a patch, without its
// contents.
type File interface {
	Hash() plumbing.Hash
	Mode() filemode.FileMode
	Path() string
}

// Chunk represents a portion of a file transformation.
type Chunk interface {
	// Content contains the portion of the file.
	Content() string
	// Type contains the Operation to perform on this Chunk.
	Type() Operation
}
