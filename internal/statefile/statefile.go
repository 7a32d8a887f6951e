// Package statefile reads and writes the small single-value and
// structured text files gitdir uses to track a long-running operation in
// progress: MERGE_HEAD, MERGE_MODE, MERGE_MSG, CHERRY_PICK_HEAD,
// ORIG_HEAD, and the rebase-merge/ sequencer directory.
package statefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/vcsforge/gitcore/plumbing"
)

const (
	mergeHead      = "MERGE_HEAD"
	mergeMode      = "MERGE_MODE"
	mergeMsg       = "MERGE_MSG"
	cherryPickHead = "CHERRY_PICK_HEAD"
	origHead       = "ORIG_HEAD"

	rebaseMergeDir  = "rebase-merge"
	rebaseHeadName  = "rebase-merge/head-name"
	rebaseOnto      = "rebase-merge/onto"
	rebaseTodo      = "rebase-merge/git-rebase-todo"
)

// Store reads and writes state files rooted at a gitdir filesystem. All
// reads return found=false when the file is absent; writes create any
// missing parent directory; deletes tolerate the file already being
// absent.
type Store struct {
	fs billy.Filesystem
}

// New returns a Store rooted at fs, the gitdir's filesystem.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

func (s *Store) readText(path string) (string, bool, error) {
	f, err := s.fs.Open(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := f.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}

	return strings.TrimRight(sb.String(), "\n"), true, nil
}

func (s *Store) writeText(path, content string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write([]byte(content + "\n"))
	return err
}

func (s *Store) delete(path string) error {
	err := s.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) readHash(path string) (plumbing.Hash, bool, error) {
	text, found, err := s.readText(path)
	if err != nil || !found {
		return plumbing.ZeroHash, found, err
	}

	h, ok := plumbing.FromHex(strings.TrimSpace(text))
	if !ok {
		return plumbing.ZeroHash, true, fmt.Errorf("%s: not a valid object id: %q", path, text)
	}

	return h, true, nil
}

func (s *Store) writeHash(path string, h plumbing.Hash) error {
	return s.writeText(path, h.String())
}

// ReadMergeHead returns the "theirs" commit of an in-progress merge.
func (s *Store) ReadMergeHead() (plumbing.Hash, bool, error) { return s.readHash(mergeHead) }

// WriteMergeHead records the "theirs" commit of a merge in progress.
func (s *Store) WriteMergeHead(h plumbing.Hash) error { return s.writeHash(mergeHead, h) }

// DeleteMergeHead removes MERGE_HEAD, if present.
func (s *Store) DeleteMergeHead() error { return s.delete(mergeHead) }

// ReadMergeMode returns the merge flags line.
func (s *Store) ReadMergeMode() (string, bool, error) { return s.readText(mergeMode) }

// WriteMergeMode records the merge flags line.
func (s *Store) WriteMergeMode(mode string) error { return s.writeText(mergeMode, mode) }

// DeleteMergeMode removes MERGE_MODE, if present.
func (s *Store) DeleteMergeMode() error { return s.delete(mergeMode) }

// ReadMergeMsg returns the prepared merge commit message.
func (s *Store) ReadMergeMsg() (string, bool, error) { return s.readText(mergeMsg) }

// WriteMergeMsg records the prepared merge commit message.
func (s *Store) WriteMergeMsg(msg string) error { return s.writeText(mergeMsg, msg) }

// DeleteMergeMsg removes MERGE_MSG, if present.
func (s *Store) DeleteMergeMsg() error { return s.delete(mergeMsg) }

// ReadCherryPickHead returns the commit being cherry-picked.
func (s *Store) ReadCherryPickHead() (plumbing.Hash, bool, error) { return s.readHash(cherryPickHead) }

// WriteCherryPickHead records the commit being cherry-picked.
func (s *Store) WriteCherryPickHead(h plumbing.Hash) error { return s.writeHash(cherryPickHead, h) }

// DeleteCherryPickHead removes CHERRY_PICK_HEAD, if present.
func (s *Store) DeleteCherryPickHead() error { return s.delete(cherryPickHead) }

// ReadOrigHead returns the position HEAD held before the current
// reset/merge/rebase.
func (s *Store) ReadOrigHead() (plumbing.Hash, bool, error) { return s.readHash(origHead) }

// WriteOrigHead records HEAD's position before a reset/merge/rebase.
func (s *Store) WriteOrigHead(h plumbing.Hash) error { return s.writeHash(origHead, h) }

// DeleteOrigHead removes ORIG_HEAD, if present.
func (s *Store) DeleteOrigHead() error { return s.delete(origHead) }

// IsMerging reports whether a merge is in progress.
func (s *Store) IsMerging() (bool, error) {
	_, found, err := s.ReadMergeHead()
	return found, err
}

// IsCherryPicking reports whether a cherry-pick is in progress.
func (s *Store) IsCherryPicking() (bool, error) {
	_, found, err := s.ReadCherryPickHead()
	return found, err
}

// RebaseTodoEntry is one line of the rebase sequencer's todo list: an
// action (pick, squash, edit, drop, …), the commit it applies to, and
// its subject line (kept only for human-readable display).
type RebaseTodoEntry struct {
	Action  string
	OID     plumbing.Hash
	Subject string
}

// ReadRebaseHeadName returns the branch name being rebased.
func (s *Store) ReadRebaseHeadName() (string, bool, error) { return s.readText(rebaseHeadName) }

// WriteRebaseHeadName records the branch name being rebased.
func (s *Store) WriteRebaseHeadName(name string) error { return s.writeText(rebaseHeadName, name) }

// ReadRebaseOnto returns the commit the rebase is replaying onto.
func (s *Store) ReadRebaseOnto() (plumbing.Hash, bool, error) { return s.readHash(rebaseOnto) }

// WriteRebaseOnto records the commit the rebase is replaying onto.
func (s *Store) WriteRebaseOnto(h plumbing.Hash) error { return s.writeHash(rebaseOnto, h) }

// ReadRebaseTodo returns the sequencer's remaining steps, one per line
// of git-rebase-todo.
func (s *Store) ReadRebaseTodo() ([]RebaseTodoEntry, bool, error) {
	text, found, err := s.readText(rebaseTodo)
	if err != nil || !found {
		return nil, found, err
	}

	var entries []RebaseTodoEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			return nil, true, fmt.Errorf("git-rebase-todo: malformed line %q", line)
		}

		h, ok := plumbing.FromHex(fields[1])
		if !ok {
			return nil, true, fmt.Errorf("git-rebase-todo: invalid object id in %q", line)
		}

		entry := RebaseTodoEntry{Action: fields[0], OID: h}
		if len(fields) == 3 {
			entry.Subject = fields[2]
		}

		entries = append(entries, entry)
	}

	return entries, true, nil
}

// WriteRebaseTodo persists entries as git-rebase-todo, one
// `<action> <oid> <subject>` line per entry.
func (s *Store) WriteRebaseTodo(entries []RebaseTodoEntry) error {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s %s\n", e.Action, e.OID.String(), e.Subject)
	}

	return s.writeText(rebaseTodo, strings.TrimRight(sb.String(), "\n"))
}

// IsRebasing reports whether a rebase sequencer is in progress.
func (s *Store) IsRebasing() (bool, error) {
	_, err := s.fs.Stat(rebaseMergeDir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// AbortRebase tears down the rebase-merge/ sequencer directory.
func (s *Store) AbortRebase() error {
	return s.removeAll(rebaseMergeDir)
}

func (s *Store) removeAll(path string) error {
	info, err := s.fs.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return s.delete(path)
	}

	entries, err := s.fs.ReadDir(path)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := s.removeAll(s.fs.Join(path, e.Name())); err != nil {
			return err
		}
	}

	return s.fs.Remove(path)
}
