package revision

import (
	"errors"
	"fmt"

	"github.com/vcsforge/gitcore/internal/reference"
	"github.com/vcsforge/gitcore/internal/repository"
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/object"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// ErrNoSuchParent is returned when a `~`/`^` walk asks for more
// first-parent hops than the commit ancestry has.
var ErrNoSuchParent = errors.New("no such parent commit")

// ErrReflogEntryNotFound is returned when an `@{n}` selector asks for an
// entry beyond the end of the reflog.
var ErrReflogEntryNotFound = errors.New("reflog entry not found")

// Resolver resolves revision strings against a reference store, an object
// store, and (optionally) a reflog store.
type Resolver struct {
	Refs    storer.ReferenceStorer
	Objects storer.EncodedObjectStorer
	Reflog  reference.ReflogStore
}

// Resolve parses rev and walks it to a concrete object ID: a literal OID
// or ref shorthand, optionally followed by either a run of `~`/`^`
// first-parent hops or a single `@{n}` reflog selector.
func (r *Resolver) Resolve(rev string) (plumbing.Hash, error) {
	parsed, err := Parse(rev)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if parsed.Reflog != nil {
		return r.resolveReflog(parsed.Ref, *parsed.Reflog)
	}

	base, err := r.resolveBase(parsed.Ref)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if parsed.Parents == 0 {
		return base, nil
	}

	return r.walkFirstParent(base, parsed.Parents)
}

// ResolveMany resolves each of revs independently, preserving order. A
// failure on one revision does not short-circuit the others; instead it is
// reported as the corresponding error entry, and the combined error wraps
// every failure.
func (r *Resolver) ResolveMany(revs []string) ([]plumbing.Hash, error) {
	hashes := make([]plumbing.Hash, len(revs))

	var errs []error
	for i, rev := range revs {
		h, err := r.Resolve(rev)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", rev, err))
			continue
		}

		hashes[i] = h
	}

	if len(errs) > 0 {
		return hashes, errors.Join(errs...)
	}

	return hashes, nil
}

// resolveBase resolves a literal OID or a ref shorthand (expanded by
// repository.ExpandRef) to a hash.
func (r *Resolver) resolveBase(ref string) (plumbing.Hash, error) {
	if h, ok := plumbing.FromHex(ref); ok && !h.IsZero() {
		return h, nil
	}

	resolved, err := repository.ExpandRef(r.Refs, plumbing.ReferenceName(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving %q: %w", ref, err)
	}

	return resolved.Hash(), nil
}

// walkFirstParent follows the first-parent chain from start, n times.
func (r *Resolver) walkFirstParent(start plumbing.Hash, n int) (plumbing.Hash, error) {
	cur := start
	for i := 0; i < n; i++ {
		commit, err := object.GetCommit(r.Objects, cur)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("walking %s~%d: %w", start, n, err)
		}

		if commit.NumParents() == 0 {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s~%d", ErrNoSuchParent, start, i+1)
		}

		parent, err := commit.Parent(0)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		cur = parent.Hash
	}

	return cur, nil
}

// resolveReflog selects the n-th (0 = newest) entry from ref's reflog.
func (r *Resolver) resolveReflog(ref string, n int) (plumbing.Hash, error) {
	if r.Reflog == nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving %q@{%d}: no reflog store configured", ref, n)
	}

	name, err := r.reflogName(ref)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entries, err := r.Reflog.Read(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entry, ok := reference.Select(entries, n)
	if !ok {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s@{%d}", ErrReflogEntryNotFound, ref, n)
	}

	return entry.New, nil
}

// reflogName expands ref's shorthand to the full reference name the
// reflog is stored under, since the log files live at their canonical
// path (e.g. refs/heads/main), not under a short alias.
func (r *Resolver) reflogName(ref string) (plumbing.ReferenceName, error) {
	if ref == string(plumbing.HEAD) {
		return plumbing.HEAD, nil
	}

	resolved, err := repository.ExpandRef(r.Refs, plumbing.ReferenceName(ref))
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", ref, err)
	}

	return resolved.Name(), nil
}
