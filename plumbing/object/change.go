package object

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/vcsforge/gitcore/utils/merkletrie"
)

var empty = ChangeEntry{}

// ChangeEntry carries the state of a file (or directory) on one side of
// a Change: the full path at which it was found, the parent Tree it
// belongs to and its TreeEntry.
type ChangeEntry struct {
	// Name is the full path of the node, including parent directories.
	Name string
	// Tree is the parent tree of the node.
	Tree *Tree
	// TreeEntry is the entry of the node itself.
	TreeEntry TreeEntry
}

// Change values represent a detected change between two git trees. For
// insertions, From is the zero value. For deletions, To is the zero
// value.
type Change struct {
	From ChangeEntry
	To   ChangeEntry
}

// Action returns the kind of action represented by the change.
func (c *Change) Action() (merkletrie.Action, error) {
	if c.From == empty && c.To == empty {
		return merkletrie.Action(0),
			fmt.Errorf("malformed change: empty from and to")
	}

	if c.From == empty {
		return merkletrie.Insert, nil
	}

	if c.To == empty {
		return merkletrie.Delete, nil
	}

	return merkletrie.Modify, nil
}

// Files returns the files before and after a change.
// For insertions from will be nil. For deletions to will be nil.
func (c *Change) Files() (from, to *File, err error) {
	action, err := c.Action()
	if err != nil {
		return
	}

	if action == merkletrie.Insert || action == merkletrie.Modify {
		to, err = c.To.Tree.TreeEntryFile(&c.To.TreeEntry)
		if err != nil {
			return
		}
	}

	if action == merkletrie.Delete || action == merkletrie.Modify {
		from, err = c.From.Tree.TreeEntryFile(&c.From.TreeEntry)
		if err != nil {
			return
		}
	}

	return
}

func (c *Change) name() string {
	if c.From != empty {
		return c.From.Name
	}

	return c.To.Name
}

// Patch returns a Patch with all the file changes in chunks. This
// representation can be used to create several diff outputs.
func (c *Change) Patch() (*Patch, error) {
	return c.PatchContext(context.Background())
}

// PatchContext is like Patch but with a context to stop the underlying
// diff algorithm when needed.
func (c *Change) PatchContext(ctx context.Context) (*Patch, error) {
	return getPatchContext(ctx, "", c)
}

// String returns a git-like representation of the change, e.g.
// "<Action: Insert, Path: foo>".
func (c *Change) String() string {
	action, err := c.Action()
	if err != nil {
		return "malformed change"
	}

	return fmt.Sprintf("<Action: %s, Path: %s>", action, c.name())
}

// Changes represents a collection of changes between two git trees.
type Changes []*Change

// Patch returns a Patch with all the changes in chunks.
func (c Changes) Patch() (*Patch, error) {
	return c.PatchContext(context.Background())
}

// PatchContext is like Patch but with a context to stop the underlying
// diff algorithm when needed.
func (c Changes) PatchContext(ctx context.Context) (*Patch, error) {
	return getPatchContext(ctx, "", c...)
}

func (c Changes) Len() int {
	return len(c)
}

func (c Changes) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
}

func (c Changes) Less(i, j int) bool {
	return strings.Compare(c[i].name(), c[j].name()) < 0
}

// String returns the changes as a list of strings, one per change,
// enclosed in "[" and "]".
func (c Changes) String() string {
	var buf bytes.Buffer
	fmt.Fprint(&buf, "[")
	comma := ""
	for _, v := range c {
		fmt.Fprint(&buf, comma, v)
		comma = ", "
	}
	fmt.Fprint(&buf, "]")

	return buf.String()
}
