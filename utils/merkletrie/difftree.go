package merkletrie

import (
	"fmt"
	"sort"

	"github.com/vcsforge/gitcore/utils/merkletrie/noder"
)

// HashEqual reports whether two noders should be considered equal for
// diffing purposes, given their hashes.
type HashEqual func(a, b noder.Hasher) bool

// DiffTree compares the trees rooted at from and to and returns the
// changes needed to turn from into to. Two noders are considered
// equal, and therefore not recursed into or reported as modified, when
// hashEqual returns true for their hashes. Noders whose Skip method
// returns true are excluded from the comparison entirely.
func DiffTree(from, to noder.Noder, hashEqual HashEqual) (Changes, error) {
	changes := NewChanges()
	if err := diffNodes(&changes, noder.Path{}, noder.Path{}, from, to, hashEqual); err != nil {
		return nil, err
	}

	return changes, nil
}

func diffNodes(changes *Changes, fromPrefix, toPrefix noder.Path,
	from, to noder.Noder, hashEqual HashEqual) error {
	fromChildren, err := sortedChildren(from)
	if err != nil {
		return fmt.Errorf("cannot get children of %q: %w", fromPrefix, err)
	}

	toChildren, err := sortedChildren(to)
	if err != nil {
		return fmt.Errorf("cannot get children of %q: %w", toPrefix, err)
	}

	i, j := 0, 0
	for i < len(fromChildren) || j < len(toChildren) {
		switch {
		case j >= len(toChildren) ||
			(i < len(fromChildren) && fromChildren[i].Name() < toChildren[j].Name()):
			a := fromChildren[i]
			if !a.Skip() {
				if err := changes.AddRecursiveDelete(appendPath(fromPrefix, a)); err != nil {
					return err
				}
			}
			i++
		case i >= len(fromChildren) ||
			toChildren[j].Name() < fromChildren[i].Name():
			b := toChildren[j]
			if !b.Skip() {
				if err := changes.AddRecursiveInsert(appendPath(toPrefix, b)); err != nil {
					return err
				}
			}
			j++
		default:
			a, b := fromChildren[i], toChildren[j]
			if a.Skip() || b.Skip() {
				i++
				j++
				continue
			}

			fromPath := appendPath(fromPrefix, a)
			toPath := appendPath(toPrefix, b)

			switch {
			case !a.IsDir() && !b.IsDir():
				if !hashEqual(a, b) {
					*changes = append(*changes, NewModify(fromPath, toPath))
				}
			case a.IsDir() && b.IsDir():
				if !hashEqual(a, b) {
					if err := diffNodes(changes, fromPath, toPath, a, b, hashEqual); err != nil {
						return err
					}
				}
			default:
				if err := changes.AddRecursiveDelete(fromPath); err != nil {
					return err
				}
				if err := changes.AddRecursiveInsert(toPath); err != nil {
					return err
				}
			}

			i++
			j++
		}
	}

	return nil
}

func sortedChildren(n noder.Noder) ([]noder.Noder, error) {
	if n == nil {
		return nil, nil
	}

	children, err := n.Children()
	if err != nil {
		return nil, err
	}

	sorted := make([]noder.Noder, len(children))
	copy(sorted, children)
	sort.Sort(byName(sorted))

	return sorted, nil
}

type byName []noder.Noder

func (a byName) Len() int           { return len(a) }
func (a byName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byName) Less(i, j int) bool { return a[i].Name() < a[j].Name() }

func appendPath(prefix noder.Path, n noder.Noder) noder.Path {
	p := make(noder.Path, len(prefix)+1)
	copy(p, prefix)
	p[len(prefix)] = n

	return p
}
