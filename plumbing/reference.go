package plumbing

import (
	"errors"
	"fmt"
	"strings"
)

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refRemotePrefix = refPrefix + "remotes/"
	refNotePrefix   = refPrefix + "notes/"
	symrefPrefix    = "ref: "
)

// HEAD is the name of the symbolic reference pointing at the current branch.
const HEAD ReferenceName = "HEAD"

// Master is the default branch name in a newly initialized repository.
const Master ReferenceName = "refs/heads/master"

// RefRevParseRules are a set of rules to parse references into short names.
// These are the same rules as used by git in shorten_unambiguous_ref.
// See: https://github.com/git/git/blob/v2.29.2/refs.c#L417
var RefRevParseRules = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// ErrReferenceNotFound is returned when a reference is not found.
var ErrReferenceNotFound = errors.New("reference not found")

// ErrInvalidReferenceName is returned when a reference name does not follow
// the rules described at https://git-scm.com/docs/git-check-ref-format.
var ErrInvalidReferenceName = errors.New("invalid reference name")

// ReferenceType is the type of a reference.
type ReferenceType int8

const (
	InvalidReference  ReferenceType = 0
	HashReference     ReferenceType = 1
	SymbolicReference ReferenceType = 2
)

func (r ReferenceType) String() string {
	switch r {
	case HashReference:
		return "hash-reference"
	case SymbolicReference:
		return "symbolic-reference"
	default:
		return "invalid-reference"
	}
}

// ReferenceName is a reference name. It is a path-like string, conventionally
// prefixed with "refs/heads/", "refs/tags/" or "refs/remotes/".
type ReferenceName string

// NewBranchReferenceName returns a ReferenceName for the given branch name.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewNoteReferenceName returns a ReferenceName for the given note name.
func NewNoteReferenceName(name string) ReferenceName {
	return ReferenceName(refNotePrefix + name)
}

// NewTagReferenceName returns a ReferenceName for the given tag name.
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

// NewRemoteReferenceName returns a ReferenceName for the given remote and
// branch name.
func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + name)
}

// NewRemoteHEADReferenceName returns the ReferenceName of the HEAD pseudo-ref
// of the given remote.
func NewRemoteHEADReferenceName(remote string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/HEAD")
}

func (r ReferenceName) String() string {
	return string(r)
}

// Short returns the short name of a ReferenceName, stripping the
// conventional "refs/heads/", "refs/tags/", "refs/remotes/" or "refs/notes/"
// prefix.
func (r ReferenceName) Short() string {
	s := string(r)
	res := s
	for _, prefix := range []string{
		refHeadPrefix,
		refTagPrefix,
		refRemotePrefix,
		refNotePrefix,
	} {
		if !strings.HasPrefix(s, prefix) {
			continue
		}

		res = s[len(prefix):]
		break
	}

	return res
}

// IsBranch returns true if the reference name is a branch reference.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(r), refHeadPrefix)
}

// IsNote returns true if the reference name is a note reference.
func (r ReferenceName) IsNote() bool {
	return strings.HasPrefix(string(r), refNotePrefix)
}

// IsRemote returns true if the reference name is a remote-tracking
// reference.
func (r ReferenceName) IsRemote() bool {
	return strings.HasPrefix(string(r), refRemotePrefix)
}

// IsTag returns true if the reference name is a tag reference.
func (r ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(r), refTagPrefix)
}

// Validate checks that the reference name follows the format rules git
// enforces for ref names (see git-check-ref-format(1)), with the exception
// that a single-level name is only valid when it equals HEAD.
func (r ReferenceName) Validate() error {
	s := string(r)

	invalid := func() error {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}

	if s == "" {
		return invalid()
	}

	if s == string(HEAD) {
		return nil
	}

	if !strings.HasPrefix(s, refPrefix) {
		return invalid()
	}

	components := strings.Split(s, "/")
	if len(components) < 2 {
		return invalid()
	}

	for i, c := range components {
		if c == "" {
			return invalid()
		}

		if c == "." || c == ".." {
			return invalid()
		}

		if strings.HasPrefix(c, ".") || strings.HasSuffix(c, ".lock") {
			return invalid()
		}

		if strings.HasSuffix(c, ".") && i == len(components)-1 {
			return invalid()
		}

		if strings.Contains(c, "..") {
			return invalid()
		}

		if strings.ContainsAny(c, " ~^:?*[\\\t\n") {
			return invalid()
		}

		if strings.Contains(c, "@{") {
			return invalid()
		}

		if c == "@" {
			return invalid()
		}
	}

	if strings.HasPrefix(components[len(components)-1], "-") {
		return invalid()
	}

	return nil
}

// Reference is a named pointer to an object ID, or to another reference
// (a symbolic reference).
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Hash
	target ReferenceName
}

// NewReferenceFromStrings builds a Reference from a name/target pair as
// found in a loose ref file or a packed-refs line: target is either a
// hex object ID or a "ref: <name>" symbolic form.
func NewReferenceFromStrings(name, target string) *Reference {
	n := ReferenceName(name)

	if strings.HasPrefix(target, symrefPrefix) {
		target := ReferenceName(target[len(symrefPrefix):])
		return NewSymbolicReference(n, target)
	}

	h, _ := FromHex(target)
	return NewHashReference(n, h)
}

// NewSymbolicReference creates a new SymbolicReference pointing at target.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{
		t:      SymbolicReference,
		n:      n,
		target: target,
	}
}

// NewHashReference creates a new HashReference pointing at h.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{
		t: HashReference,
		n: n,
		h: h,
	}
}

// Type returns the type of the reference.
func (r *Reference) Type() ReferenceType {
	return r.t
}

// Name returns the name of the reference.
func (r *Reference) Name() ReferenceName {
	return r.n
}

// Hash returns the object ID of a HashReference, or the zero hash
// otherwise.
func (r *Reference) Hash() Hash {
	return r.h
}

// Target returns the target of a SymbolicReference, or the empty
// ReferenceName otherwise.
func (r *Reference) Target() ReferenceName {
	return r.target
}

// Strings returns the name/target pair as stored on disk.
func (r *Reference) Strings() [2]string {
	var o [2]string
	o[0] = string(r.n)

	switch r.Type() {
	case HashReference:
		o[1] = r.h.String()
	case SymbolicReference:
		o[1] = symrefPrefix + string(r.target)
	}

	return o
}

func (r *Reference) String() string {
	if r == nil {
		return ""
	}

	s := r.Strings()
	return fmt.Sprintf("%s %s", s[1], s[0])
}
