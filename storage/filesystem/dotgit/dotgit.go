// Package dotgit reads and writes the on-disk layout of a .git directory:
// loose objects, packfiles, loose and packed references, and reflogs.
package dotgit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/utils/ioutil"
)

const (
	suffix         = ".git"
	packedRefsPath = "packed-refs"
	configPath     = "config"
	indexPath      = "index"
	shallowPath    = "shallow"
	modulePath     = "modules"
	objectsPath    = "objects"
	packPath       = "pack"
	refsPath       = "refs"
	logsPath       = "logs"

	tmpPackedRefsPrefix = "._packed-refs"
)

var (
	// ErrNotFound is returned when an object is not found.
	ErrNotFound = errors.New("object not found")
	// ErrIsDir is returned when the requested object is actually a directory.
	ErrIsDir = errors.New("invalid object, is a directory")
	// ErrNotExist is returned when a reference or a file does not exist.
	ErrNotExist = errors.New("reference not found")
	// ErrPackfileNotFound is returned when a packfile cannot be found.
	ErrPackfileNotFound = errors.New("packfile not found")
	// ErrEmptyRefFile is returned when a loose ref file exists but is empty.
	ErrEmptyRefFile = errors.New("ref file is empty")
	// ErrNotSupported is returned when a filesystem does not implement a
	// capability DotGit requires for the requested operation.
	ErrNotSupported = errors.New("not supported")
	// ErrIdxNotFound is returned when the idx file for a pack cannot be found.
	ErrIdxNotFound = errors.New("idx file not found")
)

// Options holds optional behaviour toggles for a DotGit instance.
type Options struct {
	// ExclusiveAccess indicates that the filesystem is not shared with other
	// git processes, allowing some reads to skip locking.
	ExclusiveAccess bool
}

// DotGit is the filesystem view of a repository's metadata directory,
// mirroring the on-disk layout used by the git command line tool.
type DotGit struct {
	fs      billy.Filesystem
	options Options
}

// New returns a DotGit rooted at fs.
func New(fs billy.Filesystem) *DotGit {
	return NewWithOptions(fs, Options{})
}

// NewWithOptions returns a DotGit rooted at fs with the given options.
func NewWithOptions(fs billy.Filesystem, o Options) *DotGit {
	return &DotGit{fs: fs, options: o}
}

// Fs returns the underlying filesystem.
func (d *DotGit) Fs() billy.Filesystem {
	return d.fs
}

// Config returns a handle to the config file, creating it if necessary.
func (d *DotGit) Config() (billy.File, error) {
	return d.fs.OpenFile(configPath, os.O_RDWR|os.O_CREATE, 0666)
}

// ConfigWriter returns a writer to truncate and rewrite the config file.
func (d *DotGit) ConfigWriter() (billy.File, error) {
	return d.fs.OpenFile(configPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// Index returns a handle to the index file, creating it if necessary.
func (d *DotGit) Index() (billy.File, error) {
	return d.fs.OpenFile(indexPath, os.O_RDWR|os.O_CREATE, 0666)
}

// IndexExists returns true if an index file is present.
func (d *DotGit) IndexExists() bool {
	_, err := d.fs.Stat(indexPath)
	return err == nil
}

// Shallow returns a handle to the shallow file, creating it if necessary.
func (d *DotGit) Shallow() (billy.File, error) {
	return d.fs.OpenFile(shallowPath, os.O_RDWR|os.O_CREATE, 0666)
}

// ShallowWriter returns a writer to truncate and rewrite the shallow file.
func (d *DotGit) ShallowWriter() (billy.File, error) {
	return d.fs.OpenFile(shallowPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// loose object paths, fan-out directory of two hex chars then the remainder.

func (d *DotGit) objectPath(h plumbing.Hash) string {
	hex := h.String()
	return d.fs.Join(objectsPath, hex[0:2], hex[2:h.HexSize()])
}

// Object returns a reader for the loose object h, or ErrNotFound if it does
// not exist as a loose object (it may still live in a packfile).
func (d *DotGit) Object(h plumbing.Hash) (billy.File, error) {
	f, err := d.fs.Open(d.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return f, nil
}

// HasObject returns true if a loose object h exists.
func (d *DotGit) HasObject(h plumbing.Hash) bool {
	_, err := d.fs.Stat(d.objectPath(h))
	return err == nil
}

// NewObject returns an ObjectWriter that writes a new loose object, naming
// the resulting file once the hash is known.
func (d *DotGit) NewObject() (*ObjectWriter, error) {
	return newObjectWriter(d.fs)
}

// Objects returns the hashes of every loose object present.
func (d *DotGit) Objects() ([]plumbing.Hash, error) {
	var objects []plumbing.Hash

	fis, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, fi := range fis {
		if fi.IsDir() && len(fi.Name()) == 2 && isHex(fi.Name()) {
			base := fi.Name()
			entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, base))
			if err != nil {
				return nil, err
			}

			for _, e := range entries {
				if e.IsDir() || !isHex(e.Name()) {
					continue
				}

				h, ok := plumbing.FromHex(base + e.Name())
				if !ok {
					continue
				}

				objects = append(objects, h)
			}
		}
	}

	return objects, nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return len(s) > 0
}

// ObjectPacks returns the base names, without extension, of every packfile
// present under objects/pack.
func (d *DotGit) ObjectPacks() ([]string, error) {
	packDir := d.fs.Join(objectsPath, packPath)
	fis, err := d.fs.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var packs []string
	for _, fi := range fis {
		if strings.HasSuffix(fi.Name(), ".pack") {
			packs = append(packs, strings.TrimSuffix(fi.Name(), ".pack"))
		}
	}

	return packs, nil
}

// ObjectPack returns a reader to the packfile hash.pack.
func (d *DotGit) ObjectPack(hash string) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s.pack", hash))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPackfileNotFound
		}
		return nil, err
	}

	return f, nil
}

// ObjectPackIdx returns a reader to the idx file for hash.pack.
func (d *DotGit) ObjectPackIdx(hash string) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s.idx", hash))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdxNotFound
		}
		return nil, err
	}

	return f, nil
}

// NewObjectPack returns a PackWriter to stream a new packfile into
// objects/pack, building its idx as it is written.
func (d *DotGit) NewObjectPack() (*PackWriter, error) {
	return newPackWrite(d.fs)
}

// refs

// Refs returns every reference found, loose and packed, loose shadowing
// packed when both exist for the same name.
func (d *DotGit) Refs() ([]*plumbing.Reference, error) {
	packed, err := d.findPackedRefs()
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.ReferenceName]bool, len(packed))
	refs := make([]*plumbing.Reference, 0, len(packed))
	for _, ref := range packed {
		refs = append(refs, ref)
		seen[ref.Name()] = true
	}

	if err := d.addRefsFromRefDir(&refs, seen); err != nil {
		return nil, err
	}

	if ref, err := d.readReferenceFile(".", "HEAD"); err == nil {
		refs = append(refs, ref)
	} else if err != ErrNotExist {
		return nil, err
	}

	return refs, nil
}

func (d *DotGit) addRefsFromRefDir(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	return d.walkRefDir(refsPath, func(name plumbing.ReferenceName) error {
		if seen[name] {
			return nil
		}

		ref, err := d.readReferenceFile(".", string(name))
		if err != nil {
			return err
		}

		*refs = append(*refs, ref)
		return nil
	})
}

func (d *DotGit) walkRefDir(dir string, fn func(plumbing.ReferenceName) error) error {
	fis, err := d.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, fi := range fis {
		full := d.fs.Join(dir, fi.Name())
		if fi.IsDir() {
			if err := d.walkRefDir(full, fn); err != nil {
				return err
			}
			continue
		}

		if err := fn(plumbing.ReferenceName(full)); err != nil {
			return err
		}
	}

	return nil
}

// CountLooseRefs returns the number of loose reference files under refs/.
func (d *DotGit) CountLooseRefs() (int, error) {
	count := 0
	err := d.walkRefDir(refsPath, func(plumbing.ReferenceName) error {
		count++
		return nil
	})
	return count, err
}

// Ref returns the reference named name, checking loose refs before the
// packed-refs file.
func (d *DotGit) Ref(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := d.readReferenceFile(".", string(name))
	if err == nil {
		return ref, nil
	}

	refs, err := d.findPackedRefs()
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref.Name() == name {
			return ref, nil
		}
	}

	return nil, ErrNotExist
}

func (d *DotGit) readReferenceFile(path, name string) (ref *plumbing.Reference, err error) {
	path = d.fs.Join(path, name)

	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}

	defer ioutil.CheckClose(f, &err)

	return d.readReferenceFrom(f, name)
}

func (d *DotGit) readReferenceFrom(rd io.Reader, name string) (*plumbing.Reference, error) {
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil, ErrEmptyRefFile
	}

	return plumbing.NewReferenceFromStrings(name, line), nil
}

// SetRef writes ref to disk, optionally checking that the existing value
// matches old first (a nil old skips the check).
func (d *DotGit) SetRef(r, old *plumbing.Reference) error {
	if err := r.Name().Validate(); err != nil {
		return err
	}

	content := r.Strings()[1] + "\n"
	if r.Type() == plumbing.SymbolicReference {
		content = "ref: " + r.Strings()[1][len("ref: "):] + "\n"
	}

	fileName := string(r.Name())
	return d.setRef(fileName, content, old)
}

// checkReferenceAndTruncate reads the current content of f and compares it
// to old, truncating f to empty so the caller can write the new content in
// its place. A nil old skips the comparison.
func (d *DotGit) checkReferenceAndTruncate(f billy.File, old *plumbing.Reference) error {
	if old == nil {
		return f.Truncate(0)
	}

	ref, err := d.readReferenceFrom(f, old.Name().String())
	if err != nil {
		return err
	}

	if ref.Hash() != old.Hash() {
		return fmt.Errorf("reference %q has changed concurrently", old.Name())
	}

	if err := f.Truncate(0); err != nil {
		return err
	}

	_, err = f.Seek(0, io.SeekStart)
	return err
}

// RemoveRef deletes the reference name, loose first and then from
// packed-refs if present there.
func (d *DotGit) RemoveRef(name plumbing.ReferenceName) error {
	path := d.fs.Join(".", string(name))
	err := d.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return d.rewritePackedRefsWithoutRef(name)
}

// packed-refs

func (d *DotGit) findPackedRefs() ([]*plumbing.Reference, error) {
	f, err := d.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return d.findPackedRefsInFile(f)
}

func (d *DotGit) findPackedRefsInFile(f billy.File) ([]*plumbing.Reference, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var refs []*plumbing.Reference
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}

		refs = append(refs, plumbing.NewReferenceFromStrings(parts[1], parts[0]))
	}

	return refs, s.Err()
}

func (d *DotGit) openAndLockPackedRefs(create bool) (billy.File, error) {
	mode := d.openAndLockPackedRefsMode()
	if create {
		mode |= os.O_CREATE
	}

	f, err := d.fs.OpenFile(packedRefsPath, mode, 0666)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if err := f.Lock(); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func (d *DotGit) rewritePackedRefsWithoutRef(name plumbing.ReferenceName) (err error) {
	pr, err := d.openAndLockPackedRefs(false)
	if err != nil {
		return err
	}

	if pr == nil {
		return nil
	}

	defer ioutil.CheckClose(pr, &err)

	return d.rewritePackedRefsWithoutRefWhileLocked(pr, name)
}

func (d *DotGit) rewritePackedRefsWithoutRefWhileLocked(pr billy.File, name plumbing.ReferenceName) error {
	refs, err := d.findPackedRefsInFile(pr)
	if err != nil {
		return err
	}

	found := false
	var buf bytes.Buffer
	buf.WriteString("# pack-refs with: peeled fully-peeled sorted\n")
	for _, ref := range refs {
		if ref.Name() == name {
			found = true
			continue
		}

		buf.WriteString(ref.Strings()[1])
		buf.WriteString(" ")
		buf.WriteString(string(ref.Name()))
		buf.WriteString("\n")
	}

	if !found {
		return nil
	}

	tmp, err := d.fs.TempFile("", tmpPackedRefsPrefix)
	if err != nil {
		return err
	}
	defer d.fs.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	tmp, err = d.fs.Open(tmp.Name())
	if err != nil {
		return err
	}
	defer tmp.Close()

	return d.rewritePackedRefsWhileLocked(tmp, pr)
}

// PackRefs moves every loose reference into packed-refs, leaving packed
// refs that already matched untouched.
func (d *DotGit) PackRefs() (err error) {
	var loose []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)
	if err := d.addRefsFromRefDir(&loose, seen); err != nil {
		return err
	}

	if len(loose) == 0 {
		return nil
	}

	packed, err := d.findPackedRefs()
	if err != nil {
		return err
	}

	merged := make(map[plumbing.ReferenceName]*plumbing.Reference, len(packed)+len(loose))
	for _, ref := range packed {
		merged[ref.Name()] = ref
	}
	for _, ref := range loose {
		merged[ref.Name()] = ref
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("# pack-refs with: peeled fully-peeled sorted\n")
	for _, name := range names {
		ref := merged[plumbing.ReferenceName(name)]
		buf.WriteString(ref.Strings()[1])
		buf.WriteString(" ")
		buf.WriteString(name)
		buf.WriteString("\n")
	}

	pr, err := d.openAndLockPackedRefs(true)
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(pr, &err)

	if err := pr.Truncate(0); err != nil {
		return err
	}
	if _, err := pr.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := pr.Write(buf.Bytes()); err != nil {
		return err
	}

	for _, ref := range loose {
		path := d.fs.Join(".", string(ref.Name()))
		if err := d.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// reflog

// LogPath returns the path of the reflog file for name.
func (d *DotGit) LogPath(name plumbing.ReferenceName) string {
	return d.fs.Join(logsPath, string(name))
}

// AppendLog appends a reflog line, creating parent directories as needed.
func (d *DotGit) AppendLog(name plumbing.ReferenceName, line string) (err error) {
	path := d.LogPath(name)

	f, err := d.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(f, &err)

	_, err = f.Write([]byte(line + "\n"))
	return err
}

// ReadLog returns every entry recorded in the reflog for name, oldest first.
func (d *DotGit) ReadLog(name plumbing.ReferenceName) ([]string, error) {
	f, err := d.fs.Open(d.LogPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		lines = append(lines, s.Text())
	}

	return lines, s.Err()
}

// Module returns the filesystem holding the .git directory for the named
// submodule, rooted at modules/<name>.
func (d *DotGit) Module(name string) (billy.Filesystem, error) {
	return d.fs.Chroot(d.fs.Join(modulePath, name))
}
