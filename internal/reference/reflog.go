package reference

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vcsforge/gitcore/plumbing"
)

// ReflogEntry is one line of a reference's reflog: the hash the reference
// held before and after the update, who made it, and why.
type ReflogEntry struct {
	Old, New    plumbing.Hash
	Name, Email string
	When        time.Time
	Message     string
}

// ReflogStore appends to and reads the reflog for a single reference name.
// Reads return entries oldest first; Select(entries, 0) is the newest entry.
type ReflogStore interface {
	Append(name plumbing.ReferenceName, e ReflogEntry) error
	Read(name plumbing.ReferenceName) ([]*ReflogEntry, error)
}

// Select returns the entry n hops back from the newest (0 = newest),
// or (nil, false) if the reflog has fewer than n+1 entries.
func Select(entries []*ReflogEntry, n int) (*ReflogEntry, bool) {
	idx := len(entries) - 1 - n
	if idx < 0 || idx >= len(entries) {
		return nil, false
	}

	return entries[idx], true
}

func formatReflogLine(e ReflogEntry) string {
	return fmt.Sprintf("%s %s %s <%s> %d %s\t%s",
		e.Old.String(), e.New.String(), e.Name, e.Email,
		e.When.Unix(), e.When.Format("-0700"), strings.ReplaceAll(e.Message, "\n", " "))
}

func parseReflogLine(line string) (*ReflogEntry, error) {
	fields := strings.SplitN(line, "\t", 2)
	head := fields[0]
	message := ""
	if len(fields) == 2 {
		message = fields[1]
	}

	parts := strings.Fields(head)
	if len(parts) < 4 {
		return nil, fmt.Errorf("malformed reflog line %q", line)
	}

	e := &ReflogEntry{
		Old:     plumbing.NewHash(parts[0]),
		New:     plumbing.NewHash(parts[1]),
		Message: message,
	}

	// parts[2:] is "name <email> unixtime tz" possibly with a multi-word
	// name; email is the token wrapped in angle brackets.
	emailIdx := -1
	for i, p := range parts[2:] {
		if strings.HasPrefix(p, "<") {
			emailIdx = i + 2
			break
		}
	}
	if emailIdx == -1 || emailIdx+2 >= len(parts) {
		return nil, fmt.Errorf("malformed reflog identity %q", line)
	}

	e.Name = strings.Join(parts[2:emailIdx], " ")
	e.Email = strings.Trim(parts[emailIdx], "<>")

	sec, err := strconv.ParseInt(parts[emailIdx+1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed reflog timestamp %q", line)
	}
	e.When = time.Unix(sec, 0)

	return e, nil
}

// dotGit is the subset of *dotgit.DotGit a FileReflogStore needs.
type dotGit interface {
	AppendLog(name plumbing.ReferenceName, line string) error
	ReadLog(name plumbing.ReferenceName) ([]string, error)
}

// FileReflogStore persists reflogs under .git/logs, grounded on
// storage/filesystem/dotgit's AppendLog/ReadLog.
type FileReflogStore struct {
	dir dotGit
}

// NewFileReflogStore returns a ReflogStore backed by dir.
func NewFileReflogStore(dir dotGit) *FileReflogStore {
	return &FileReflogStore{dir: dir}
}

func (f *FileReflogStore) Append(name plumbing.ReferenceName, e ReflogEntry) error {
	return f.dir.AppendLog(name, formatReflogLine(e))
}

func (f *FileReflogStore) Read(name plumbing.ReferenceName) ([]*ReflogEntry, error) {
	lines, err := f.dir.ReadLog(name)
	if err != nil {
		return nil, err
	}

	entries := make([]*ReflogEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		e, err := parseReflogLine(line)
		if err != nil {
			continue
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// MemoryReflogStore keeps reflogs in memory, for bare/in-memory backends.
type MemoryReflogStore struct {
	mu      sync.Mutex
	entries map[plumbing.ReferenceName][]*ReflogEntry
}

// NewMemoryReflogStore returns an empty in-memory ReflogStore.
func NewMemoryReflogStore() *MemoryReflogStore {
	return &MemoryReflogStore{entries: make(map[plumbing.ReferenceName][]*ReflogEntry)}
}

func (m *MemoryReflogStore) Append(name plumbing.ReferenceName, e ReflogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ec := e
	m.entries[name] = append(m.entries[name], &ec)
	return nil
}

func (m *MemoryReflogStore) Read(name plumbing.ReferenceName) ([]*ReflogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*ReflogEntry(nil), m.entries[name]...), nil
}

var _ ReflogStore = (*FileReflogStore)(nil)
var _ ReflogStore = (*MemoryReflogStore)(nil)
