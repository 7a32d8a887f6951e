package workdir

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/plumbing/format/index"
	"github.com/vcsforge/gitcore/plumbing/object"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// ErrCheckoutConflict is returned when checkout would overwrite workdir
// changes that are neither staged nor part of the target tree, and force
// was not requested.
var ErrCheckoutConflict = errors.New("checkout would overwrite local changes")

type opKind int

const (
	opUpdate opKind = iota
	opKeep
	opDelete
	opDeleteIndex
	opConflict
)

type checkoutOp struct {
	path   string
	kind   opKind
	target *object.File
	index  *index.Entry
}

// LFSFilter decides whether path is LFS-tracked (so checkout should
// smudge a pointer file into real content) and resolves an OID to its
// stored bytes.
type LFSFilter interface {
	Tracked(path string) bool
	Get(oid string) ([]byte, error)
}

// Checkout materializes treeOid into fs and rewrites idx to match, using
// the two-phase analyze/execute algorithm: conflicts are detected before
// any mutation happens.
func Checkout(objects storer.EncodedObjectStorer, fs billy.Filesystem, idx *index.Index, treeOid plumbing.Hash, force bool, sparse *SparseFilter, lfs LFSFilter) (*index.Index, error) {
	tree, err := object.GetTree(objects, treeOid)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolving target tree: %w", err)
	}

	targets := make(map[string]*object.File)
	if err := tree.Files().ForEach(func(f *object.File) error {
		f2 := *f
		targets[f.Name] = &f2
		return nil
	}); err != nil {
		return nil, fmt.Errorf("checkout: walking target tree: %w", err)
	}

	indexed := make(map[string]*index.Entry)
	if idx != nil {
		for _, e := range idx.Entries {
			if e.Stage == 0 {
				indexed[e.Name] = e
			}
		}
	}

	ops, conflict, err := analyzeCheckout(fs, targets, indexed, sparse)
	if err != nil {
		return nil, err
	}

	if conflict && !force {
		return nil, ErrCheckoutConflict
	}

	return executeCheckout(objects, fs, ops, lfs)
}

func analyzeCheckout(fs billy.Filesystem, targets map[string]*object.File, indexed map[string]*index.Entry, sparse *SparseFilter) ([]checkoutOp, bool, error) {
	paths := unionFileIndexPaths(targets, indexed)

	var ops []checkoutOp
	conflict := false

	for _, p := range paths {
		target, hasTarget := targets[p]
		idxEntry, hasIndex := indexed[p]
		inScope := hasTarget && sparse.Matches(p)

		workOid, workExists, err := hashBlob(fs, p)
		if err != nil {
			return nil, false, err
		}

		if inScope {
			op := checkoutOp{path: p, target: target, index: idxEntry}

			switch {
			case !workExists:
				op.kind = opUpdate
			case hasIndex && idxEntry.Hash == target.Hash && workOid == target.Hash:
				op.kind = opKeep
			case workOid != target.Hash && (!hasIndex || workOid != idxEntry.Hash):
				op.kind = opConflict
				conflict = true
			default:
				op.kind = opUpdate
			}

			ops = append(ops, op)
			continue
		}

		if workExists {
			ops = append(ops, checkoutOp{path: p, kind: opDelete, index: idxEntry})
		}
		if hasIndex {
			ops = append(ops, checkoutOp{path: p, kind: opDeleteIndex, index: idxEntry})
		}
	}

	return ops, conflict, nil
}

func unionFileIndexPaths(targets map[string]*object.File, indexed map[string]*index.Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for p := range targets {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for p := range indexed {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	return out
}

func executeCheckout(objects storer.EncodedObjectStorer, fs billy.Filesystem, ops []checkoutOp, lfs LFSFilter) (*index.Index, error) {
	newIdx := &index.Index{Version: 2}

	for _, op := range ops {
		switch op.kind {
		case opUpdate, opConflict:
			if err := writeWorkdirEntry(objects, fs, op.path, op.target, lfs); err != nil {
				return nil, fmt.Errorf("checkout %s: %w", op.path, err)
			}

			if err := addIndexEntry(newIdx, fs, op.path, op.target); err != nil {
				return nil, err
			}

		case opKeep:
			if err := addIndexEntry(newIdx, fs, op.path, op.target); err != nil {
				return nil, err
			}

		case opDelete:
			if err := fs.Remove(op.path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("checkout %s: %w", op.path, err)
			}

		case opDeleteIndex:
			// nothing to do: newIdx simply never gets this entry.
		}
	}

	return newIdx, nil
}

func writeWorkdirEntry(objects storer.EncodedObjectStorer, fs billy.Filesystem, p string, target *object.File, lfs LFSFilter) error {
	dir := path.Dir(p)
	if dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if target.Mode == filemode.Submodule {
		return fs.MkdirAll(p, 0755)
	}

	blob, err := object.GetBlob(objects, target.Hash)
	if err != nil {
		return err
	}

	rc, err := blob.Reader()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	if lfs != nil && lfs.Tracked(p) {
		if pointer, ok, perr := ParsePointer(data); perr == nil && ok {
			content, gerr := lfs.Get(pointer.OID)
			if gerr != nil {
				return gerr
			}
			if _, serr := Smudge(pointer, content); serr != nil {
				return serr
			}
			data = content
		}
	}

	if target.Mode == filemode.Symlink {
		return fs.Symlink(string(data), p)
	}

	perm := os.FileMode(0644)
	if target.Mode == filemode.Executable {
		perm = 0755
	}

	f, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func addIndexEntry(idx *index.Index, fs billy.Filesystem, p string, target *object.File) error {
	e := idx.Add(p)
	e.Hash = target.Hash
	e.Mode = target.Mode

	if fi, err := fs.Stat(p); err == nil {
		e.Size = uint32(fi.Size())
		e.ModifiedAt = fi.ModTime()
		e.CreatedAt = fi.ModTime()
	} else {
		e.ModifiedAt = time.Now()
		e.CreatedAt = e.ModifiedAt
	}

	return nil
}
