package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/vcsforge/gitcore/config"
	"github.com/vcsforge/gitcore/internal/reference"
	"github.com/vcsforge/gitcore/plumbing"
	formatcfg "github.com/vcsforge/gitcore/plumbing/format/config"
	"github.com/vcsforge/gitcore/plumbing/format/index"
	"github.com/vcsforge/gitcore/storage"
	"github.com/vcsforge/gitcore/storage/filesystem/dotgit"
)

// ErrAmbiguousObject is returned by ReadObject when a short object ID
// matches more than one object in the store.
var ErrAmbiguousObject = errors.New("ambiguous object id")

// LFSStore is the behavior-only interface for the blob side of LFS
// smudge/clean: content is addressed by the OID recorded in the pointer
// file, never by path.
type LFSStore interface {
	Get(oid string) (io.ReadCloser, error)
	Put(oid string, r io.Reader) error
}

// FileLFSStore stores LFS blobs under <gitdir>/lfs/objects/<oid[:2]>/<oid[2:4]>/<oid>,
// matching the layout git-lfs itself uses for its local cache.
type FileLFSStore struct {
	fs billy.Filesystem
}

// NewFileLFSStore returns an LFSStore rooted at fs (typically the .git
// directory's filesystem).
func NewFileLFSStore(fs billy.Filesystem) *FileLFSStore {
	return &FileLFSStore{fs: fs}
}

func (l *FileLFSStore) path(oid string) string {
	if len(oid) < 4 {
		return l.fs.Join("lfs", "objects", oid)
	}
	return l.fs.Join("lfs", "objects", oid[0:2], oid[2:4], oid)
}

func (l *FileLFSStore) Get(oid string) (io.ReadCloser, error) {
	return l.fs.Open(l.path(oid))
}

func (l *FileLFSStore) Put(oid string, r io.Reader) error {
	path := l.path(oid)
	if err := l.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := l.fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, r)
	return err
}

// HookResult is what a hook invocation produced.
type HookResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// HookRunner executes a named hook, if one is installed. The core's
// responsibility is only to decide when a hook fires and what to hand it;
// actual process execution is delegated here so callers can swap in a
// no-op or sandboxed runner.
type HookRunner interface {
	Run(name string, args []string, stdin io.Reader, env []string) (*HookResult, bool, error)
}

// ExecHookRunner runs hooks as OS processes found under <gitdir>/hooks/<name>.
type ExecHookRunner struct {
	GitDir, WorkDir string
}

// Run executes the hook named `name` if it exists and is executable. The
// bool result reports whether a hook was found at all; when false, callers
// should treat the operation as if the hook had succeeded silently.
func (h *ExecHookRunner) Run(name string, args []string, stdin io.Reader, env []string) (*HookResult, bool, error) {
	path := filepath.Join(h.GitDir, "hooks", name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Mode()&0111 == 0 {
		return nil, false, nil
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = h.WorkDir
	if cmd.Dir == "" {
		cmd.Dir = h.GitDir
	}
	cmd.Env = append(os.Environ(), env...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	res := &HookResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, true, nil
	}
	if runErr != nil {
		return res, true, runErr
	}

	return res, true, nil
}

// Repository is the Component L façade: it exposes the operation surface
// the rest of the system needs and dispatches each call to a backend.
// Callers never touch the filesystem directly; the backend can be a
// filesystem.Storage, a memory.Storage, or any other storage.Storer.
type Repository struct {
	Storage storage.Storer

	GitDir  billy.Filesystem
	WorkDir billy.Filesystem

	Reflog reference.ReflogStore
	LFS    LFSStore
	Hooks  HookRunner
}

// Open builds a Repository by locating and opening the .git directory at
// path, wiring a filesystem-backed reflog, LFS store and hook runner.
func Open(path string, detectDotGit bool) (*Repository, error) {
	st, wt, err := PlainOpen(path, detectDotGit, true)
	if err != nil {
		return nil, err
	}

	dot, _, err := DotGitToOSFilesystems(path, detectDotGit)
	if err != nil {
		return nil, err
	}

	r := &Repository{
		Storage: st,
		GitDir:  dot,
		WorkDir: wt,
		Reflog:  reference.NewFileReflogStore(dotgit.New(dot)),
		LFS:     NewFileLFSStore(dot),
	}

	workDir := ""
	if wt != nil {
		workDir = wt.Root()
	}
	r.Hooks = &ExecHookRunner{GitDir: dot.Root(), WorkDir: workDir}

	return r, nil
}

// ReadObject returns the kind and raw content of the object identified by
// oid, which may be a full or unambiguous-prefix hex object ID.
func (r *Repository) ReadObject(oid string) (plumbing.ObjectType, []byte, error) {
	h, err := r.resolveObjectID(oid)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	obj, err := r.Storage.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	rd, err := obj.Reader()
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return plumbing.InvalidObject, nil, fmt.Errorf("reading object %s: %w", oid, err)
	}

	return obj.Type(), data, nil
}

// resolveObjectID expands a possibly-abbreviated hex oid to a full Hash,
// scanning the object store when the string is shorter than a full hash
// and not an exact match.
func (r *Repository) resolveObjectID(oid string) (plumbing.Hash, error) {
	if len(oid) == formatcfg.SHA1HexSize || len(oid) == formatcfg.SHA256HexSize {
		if full, ok := plumbing.FromHex(oid); ok {
			return full, nil
		}
	}

	iter, err := r.Storage.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer iter.Close()

	var match plumbing.Hash
	found := 0
	if err := iter.ForEach(func(o plumbing.EncodedObject) error {
		if strings.HasPrefix(o.Hash().String(), oid) {
			match = o.Hash()
			found++
		}
		return nil
	}); err != nil {
		return plumbing.ZeroHash, err
	}

	switch found {
	case 0:
		return plumbing.ZeroHash, plumbing.ErrObjectNotFound
	case 1:
		return match, nil
	default:
		return plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrAmbiguousObject, oid)
	}
}

// WriteObject stores data as an object of the given kind and returns its
// object ID. Writing the same content twice returns the same ID without
// error (objects are content-addressed, so the write is naturally
// idempotent).
func (r *Repository) WriteObject(kind plumbing.ObjectType, data []byte) (plumbing.Hash, error) {
	obj := r.Storage.NewEncodedObject()
	obj.SetType(kind)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}

	return r.Storage.SetEncodedObject(obj)
}

// ResolveRef resolves name as given, then as `refs/…`, then through the
// shorthand chain `refs/heads/…` → `refs/tags/…` → `refs/remotes/…` →
// `refs/remotes/…/HEAD`, following symbolic references to their final hash.
func (r *Repository) ResolveRef(name string) (plumbing.Hash, error) {
	ref, err := ExpandRef(r.Storage, plumbing.ReferenceName(name))
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return ref.Hash(), nil
}

// WriteRef validates oid and points name at it, appending a reflog entry
// unless suppressReflog is set.
func (r *Repository) WriteRef(name plumbing.ReferenceName, oid plumbing.Hash, message string, suppressReflog bool) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if oid.IsZero() {
		return fmt.Errorf("writeRef %s: zero object id", name)
	}

	var old plumbing.Hash
	if prev, err := r.Storage.Reference(name); err == nil && prev != nil {
		old = prev.Hash()
	}

	ref := plumbing.NewHashReference(name, oid)
	if err := r.Storage.SetReference(ref); err != nil {
		return err
	}

	if suppressReflog || r.Reflog == nil {
		return nil
	}

	return r.Reflog.Append(name, reference.ReflogEntry{
		Old:     old,
		New:     oid,
		Name:    "gitcore",
		Email:   "gitcore@localhost",
		When:    time.Now(),
		Message: message,
	})
}

// ListRefs returns every reference name whose name starts with prefix, the
// union of loose refs and packed-refs with loose entries shadowing packed
// ones of the same name.
func (r *Repository) ListRefs(prefix string) ([]plumbing.ReferenceName, error) {
	iter, err := r.Storage.IterReferences()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var names []plumbing.ReferenceName
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(string(ref.Name()), prefix) {
			names = append(names, ref.Name())
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return names, nil
}

// ReadIndex returns the current index.
func (r *Repository) ReadIndex() (*index.Index, error) {
	return r.Storage.Index()
}

// WriteIndex persists idx as the current index.
func (r *Repository) WriteIndex(idx *index.Index) error {
	return r.Storage.SetIndex(idx)
}

// GetConfig returns the repository configuration.
func (r *Repository) GetConfig() (*config.Config, error) {
	return r.Storage.Config()
}

// SetConfig persists cfg as the repository configuration.
func (r *Repository) SetConfig(cfg *config.Config) error {
	return r.Storage.SetConfig(cfg)
}

// RunHook invokes the named hook if the backend has a hook runner wired,
// returning (nil, false, nil) when no hook is installed.
func (r *Repository) RunHook(name string, args []string, stdin io.Reader, env []string) (*HookResult, bool, error) {
	if r.Hooks == nil {
		return nil, false, nil
	}

	return r.Hooks.Run(name, args, stdin, env)
}

// ReadLFS fetches the LFS object identified by oid.
func (r *Repository) ReadLFS(oid string) ([]byte, error) {
	if r.LFS == nil {
		return nil, fmt.Errorf("readLFS %s: no LFS store configured", oid)
	}

	rc, err := r.LFS.Get(oid)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// WriteLFS stores data under oid in the LFS store.
func (r *Repository) WriteLFS(oid string, data []byte) error {
	if r.LFS == nil {
		return fmt.Errorf("writeLFS %s: no LFS store configured", oid)
	}

	return r.LFS.Put(oid, bytes.NewReader(data))
}
