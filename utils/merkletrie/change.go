package merkletrie

import (
	"errors"
	"fmt"

	"github.com/vcsforge/gitcore/utils/merkletrie/noder"
)

// Action describes the kind of change a Change represents.
type Action int

const (
	Insert Action = iota
	Delete
	Modify
)

// String returns "Insert", "Delete" or "Modify". It panics for values
// outside that set.
func (a Action) String() string {
	switch a {
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	case Modify:
		return "Modify"
	default:
		panic(fmt.Sprintf("unsupported action: %d", int(a)))
	}
}

// ErrEmptyFileName is returned when a recursive insert or delete is
// attempted on an empty path.
var ErrEmptyFileName = errors.New("empty path")

// Change represents a single difference between two trees at a given
// path: an insertion (From nil), a deletion (To nil), or a
// modification (both set).
type Change struct {
	From noder.Path
	To   noder.Path
}

// NewInsert returns a Change describing the insertion of the node at
// path.
func NewInsert(path noder.Path) Change {
	return Change{To: path}
}

// NewDelete returns a Change describing the deletion of the node at
// path.
func NewDelete(path noder.Path) Change {
	return Change{From: path}
}

// NewModify returns a Change describing the modification of the node
// at from into to.
func NewModify(from, to noder.Path) Change {
	return Change{From: from, To: to}
}

// Action returns whether c is an insertion, deletion or modification.
// It errors if both From and To are nil.
func (c *Change) Action() (Action, error) {
	if c.From == nil && c.To == nil {
		return Action(0), fmt.Errorf("malformed change: nil from and to")
	}

	if c.From == nil {
		return Insert, nil
	}

	if c.To == nil {
		return Delete, nil
	}

	return Modify, nil
}

// String returns a representation like "<Insert a/b/z>". It panics if
// the change is malformed (both From and To nil).
func (c Change) String() string {
	action, err := c.Action()
	if err != nil {
		panic(err)
	}

	path := c.To
	if action == Delete {
		path = c.From
	}

	return fmt.Sprintf("<%s %s>", action, path)
}

// Changes is a collection of Change values, in the order they were
// recorded.
type Changes []Change

// NewChanges returns an empty collection of changes.
func NewChanges() Changes {
	return Changes{}
}

// AddRecursiveInsert appends to c the insertion of root and, if root
// is a directory, of every node reachable from it.
func (c *Changes) AddRecursiveInsert(root noder.Path) error {
	return c.addRecursive(root, NewInsert)
}

// AddRecursiveDelete appends to c the deletion of root and, if root is
// a directory, of every node reachable from it.
func (c *Changes) AddRecursiveDelete(root noder.Path) error {
	return c.addRecursive(root, NewDelete)
}

func (c *Changes) addRecursive(root noder.Path, newChange func(noder.Path) Change) error {
	if root.Last() == nil {
		return ErrEmptyFileName
	}

	*c = append(*c, newChange(root))

	if !root.IsDir() {
		return nil
	}

	children, err := root.Children()
	if err != nil {
		return fmt.Errorf("cannot get children of %q: %w", root, err)
	}

	for _, child := range children {
		childPath := make(noder.Path, len(root)+1)
		copy(childPath, root)
		childPath[len(root)] = child

		if err := c.addRecursive(childPath, newChange); err != nil {
			return err
		}
	}

	return nil
}
