// Package bundle reads and writes git bundle files: a text header naming
// a version and a set of refs, followed by a raw packfile containing
// every object those refs need.
package bundle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vcsforge/gitcore/internal/repository"
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/format/packfile"
	"github.com/vcsforge/gitcore/plumbing/object"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// packMagic is the four-byte signature every packfile starts with.
const packMagic = "PACK"

// minPackLen is the smallest a well-formed packfile can be: a 12-byte
// header (magic, version, object count) plus a trailing checksum. The
// checksum size depends on the hash algorithm, so this is a lower bound
// for the smallest supported (SHA-1, 20 bytes).
const minPackLen = 12 + 20

// RefEntry is a single `<oid> <refname>` line from a bundle's ref list.
type RefEntry struct {
	Name plumbing.ReferenceName
	OID  plumbing.Hash
}

// VerifyResult is what VerifyBundle reports about a bundle's header.
type VerifyResult struct {
	Valid   bool
	Version int
	Refs    []RefEntry
	Reason  string
}

// VerifyBundle re-parses a bundle's header and confirms the trailing
// packfile has a plausible magic and length. It returns the raw
// packfile bytes alongside the result so Unbundle can reuse the parse
// without re-reading the header.
func VerifyBundle(data []byte) (VerifyResult, []byte, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	version, refs, reason, err := parseHeader(r)
	if err != nil {
		return VerifyResult{}, nil, err
	}
	if reason != "" {
		return VerifyResult{Valid: false, Reason: reason}, nil, nil
	}

	pack, err := io.ReadAll(r)
	if err != nil {
		return VerifyResult{}, nil, err
	}

	if len(pack) < minPackLen || string(pack[:4]) != packMagic {
		return VerifyResult{Valid: false, Reason: "missing or truncated packfile"}, nil, nil
	}

	return VerifyResult{Valid: true, Version: version, Refs: refs}, pack, nil
}

// parseHeader reads the `# v<ver> git bundle` line, any v3 capability
// lines, the ref list, and the blank line terminating it, leaving r
// positioned at the first byte of the packfile.
func parseHeader(r *bufio.Reader) (version int, refs []RefEntry, reason string, err error) {
	first, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, nil, "", err
	}
	first = strings.TrimSuffix(first, "\n")

	if !strings.HasPrefix(first, "# v") || !strings.HasSuffix(first, " git bundle") {
		return 0, nil, "malformed bundle header", nil
	}

	verStr := strings.TrimSuffix(strings.TrimPrefix(first, "# v"), " git bundle")
	switch verStr {
	case "2":
		version = 2
	case "3":
		version = 3
	default:
		return 0, nil, fmt.Sprintf("unsupported bundle version %q", verStr), nil
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, nil, "", err
		}
		line = strings.TrimSuffix(line, "\n")

		if line == "" {
			return version, refs, "", nil
		}

		if version == 3 && strings.HasPrefix(line, "@") {
			continue
		}

		name, oid, ok := parseRefLine(line)
		if !ok {
			return 0, nil, fmt.Sprintf("malformed ref line %q", line), nil
		}
		refs = append(refs, RefEntry{Name: name, OID: oid})

		if errors.Is(err, io.EOF) {
			return version, refs, "", nil
		}
	}
}

func parseRefLine(line string) (plumbing.ReferenceName, plumbing.Hash, bool) {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return "", plumbing.ZeroHash, false
	}

	oid, ok := plumbing.FromHex(line[:sp])
	if !ok {
		return "", plumbing.ZeroHash, false
	}

	return plumbing.ReferenceName(line[sp+1:]), oid, true
}

// WriteBundle writes a bundle header for refs followed by pack, the raw
// packfile bytes containing every object those refs need.
func WriteBundle(w io.Writer, version int, refs []RefEntry, pack []byte) error {
	if version != 2 && version != 3 {
		return fmt.Errorf("writeBundle: unsupported bundle version %d", version)
	}

	if _, err := fmt.Fprintf(w, "# v%d git bundle\n", version); err != nil {
		return err
	}

	for _, ref := range refs {
		if _, err := fmt.Fprintf(w, "%s %s\n", ref.OID, ref.Name); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}

	_, err := w.Write(pack)
	return err
}

// RejectedRef is a ref from a bundle's list that Unbundle refused to
// write, with the reason why.
type RejectedRef struct {
	Name   plumbing.ReferenceName
	Reason string
}

// UnbundleResult reports what Unbundle actually did to the target
// repository's refs.
type UnbundleResult struct {
	Imported map[plumbing.ReferenceName]plumbing.Hash
	Rejected []RejectedRef
}

// Unbundle verifies data, writes its packfile into repo's object store,
// and fast-forward-writes every listed ref: a ref update is rejected,
// never partially applied, when it would not be a fast-forward of the
// ref's current value.
func Unbundle(repo *repository.Repository, data []byte) (*UnbundleResult, error) {
	verified, pack, err := VerifyBundle(data)
	if err != nil {
		return nil, err
	}
	if !verified.Valid {
		return nil, fmt.Errorf("unbundle: %s", verified.Reason)
	}

	if err := storePackfile(repo, pack); err != nil {
		return nil, fmt.Errorf("unbundle: storing packfile: %w", err)
	}

	result := &UnbundleResult{Imported: make(map[plumbing.ReferenceName]plumbing.Hash)}

	for _, ref := range verified.Refs {
		old, err := currentRef(repo, ref.Name)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRef{Name: ref.Name, Reason: err.Error()})
			continue
		}

		if !old.IsZero() {
			ok, err := isAncestor(repo.Storage, old, ref.OID)
			if err != nil {
				result.Rejected = append(result.Rejected, RejectedRef{Name: ref.Name, Reason: err.Error()})
				continue
			}
			if !ok {
				result.Rejected = append(result.Rejected, RejectedRef{Name: ref.Name, Reason: "not a fast-forward"})
				continue
			}
		}

		if err := repo.WriteRef(ref.Name, ref.OID, "bundle: fast-forward", false); err != nil {
			result.Rejected = append(result.Rejected, RejectedRef{Name: ref.Name, Reason: err.Error()})
			continue
		}

		result.Imported[ref.Name] = ref.OID
	}

	return result, nil
}

func currentRef(repo *repository.Repository, name plumbing.ReferenceName) (plumbing.Hash, error) {
	ref, err := repo.Storage.Reference(name)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return ref.Hash(), nil
}

// storePackfile writes pack into objects, preferring the storage's own
// streaming PackfileWriter (which builds an idx as it goes) and falling
// back to decoding objects one by one when the backend lacks one.
func storePackfile(repo *repository.Repository, pack []byte) error {
	if pw, ok := repo.Storage.(storer.PackfileWriter); ok {
		w, err := pw.PackfileWriter()
		if err != nil {
			return err
		}

		if _, err := io.Copy(w, bytes.NewReader(pack)); err != nil {
			w.Close()
			return err
		}

		return w.Close()
	}

	parser := packfile.NewParser(bytes.NewReader(pack), packfile.WithStorage(repo.Storage))
	_, err := parser.Parse()
	return err
}

// isAncestor reports whether ancestor is reachable from descendant by
// walking first and further parents breadth-first.
func isAncestor(objects storer.EncodedObjectStorer, ancestor, descendant plumbing.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}

	visited := map[plumbing.Hash]bool{descendant: true}
	queue := []plumbing.Hash{descendant}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		c, err := object.GetCommit(objects, h)
		if err != nil {
			continue
		}

		for _, p := range c.ParentHashes {
			if p == ancestor {
				return true, nil
			}
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}

	return false, nil
}
