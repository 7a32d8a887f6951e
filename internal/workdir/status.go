// Package workdir reconciles the three views of a repository's contents
// — the tip commit's tree, the index, and the working directory — into
// status labels, a two-phase checkout, and merge-abort recovery.
package workdir

import (
	"github.com/vcsforge/gitcore/plumbing"
)

// Label is a per-path status code computed from the (H, W, I) triple:
// HEAD blob OID, workdir blob OID, and index OID. The `*`-prefixed forms
// mark a path not yet staged to match the workdir state they describe.
type Label string

const (
	Absent            Label = "absent"
	AbsentUnstaged    Label = "*absent"
	Added             Label = "added"
	AddedUnstaged     Label = "*added"
	Deleted           Label = "deleted"
	DeletedUnstaged   Label = "*deleted"
	Undeleted         Label = "*undeleted"
	UndeletedModified Label = "*undeletemodified"
	Unmodified        Label = "unmodified"
	UnmodifiedStaged  Label = "*unmodified"
	Modified          Label = "modified"
	ModifiedUnstaged  Label = "*modified"
)

// Triple is the three object IDs Status compares for a single path. A
// zero Hash means "absent from that view"; WorkdirExist reports whether
// the path exists in the working directory at all.
type Triple struct {
	Head         plumbing.Hash
	Index        plumbing.Hash
	Workdir      plumbing.Hash
	WorkdirExist bool
}

// Status computes the label for a single path from its (H, W, I) triple,
// following the combinatoric table `git status --short` uses.
func Status(t Triple) Label {
	h, i, w := t.Head, t.Index, t.Workdir

	switch {
	case h.IsZero() && i.IsZero() && !t.WorkdirExist:
		return Absent

	case h.IsZero() && i.IsZero() && t.WorkdirExist:
		return AbsentUnstaged

	case h.IsZero() && !i.IsZero() && !t.WorkdirExist:
		// staged as added, then removed again from the workdir.
		return Deleted

	case h.IsZero() && !i.IsZero() && t.WorkdirExist && i == w:
		return Added

	case h.IsZero() && !i.IsZero() && t.WorkdirExist && i != w:
		return AddedUnstaged

	case !h.IsZero() && i.IsZero() && !t.WorkdirExist:
		return Deleted

	case !h.IsZero() && i.IsZero() && t.WorkdirExist && h == w:
		return Undeleted

	case !h.IsZero() && i.IsZero() && t.WorkdirExist && h != w:
		return UndeletedModified

	case !h.IsZero() && !i.IsZero() && !t.WorkdirExist:
		return DeletedUnstaged

	case !h.IsZero() && !i.IsZero() && t.WorkdirExist:
		switch {
		case h == i && i == w:
			return Unmodified
		case h != i && i == w:
			return UnmodifiedStaged
		case h == i && i != w:
			return Modified
		default: // h != i && i != w
			return ModifiedUnstaged
		}
	}

	return Absent
}
