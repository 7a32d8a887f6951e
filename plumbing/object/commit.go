package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/object/signature/pgp"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// DateFormat is the format used by git to print dates in commands such as
// `git log` or `git show`.
const DateFormat = "Mon Jan 02 15:04:05 2006 -0700"

// MessageEncoding represents the encoding of a commit's free-form message,
// as declared by its "encoding" header.
type MessageEncoding string

// defaultUtf8CommitMessageEncoding is used to represent the default
// encoding: commits carrying it never write an "encoding" header, since
// UTF-8 is git's implicit default.
const defaultUtf8CommitMessageEncoding = MessageEncoding("")

// ExtraHeader represents a header found in a Commit that isn't known and
// given a dedicated field, e.g. a "change-id" header written by Jujutsu.
type ExtraHeader struct {
	Key   string
	Value string
}

// ErrParentNotFound is returned by Commit.Parent when asked for a parent
// index beyond the number of parents the commit has.
var ErrParentNotFound = errors.New("commit parent not found")

// Commit points to a single tree, marking it as what the project looked
// like at a certain point in time. It contains metadata about that point
// in time, such as a timestamp, the author of the changes since the last
// commit, a message describing the intent of the changes, and pointers to
// its parent commits.
type Commit struct {
	// Hash of the commit object.
	Hash plumbing.Hash
	// Author is the original author of the commit.
	Author Signature
	// Committer is the one performing the commit, might be different from
	// Author.
	Committer Signature
	// MergeTag is the embedded tag object when a merge commit is created by
	// merging an annotated tag.
	MergeTag string
	// PGPSignature is the PGP signature of the commit, if it was signed.
	PGPSignature string
	// Message is the commit message, contains arbitrary text.
	Message string
	// TreeHash is the hash of the root tree of the commit.
	TreeHash plumbing.Hash
	// ParentHashes are the hashes of the parent commits of the commit.
	ParentHashes []plumbing.Hash
	// Encoding is the encoding of Message, if other than UTF-8.
	Encoding MessageEncoding
	// ExtraHeaders stores headers not parsed into a dedicated field, in the
	// order they were found, along with any continuation lines.
	ExtraHeaders []ExtraHeader

	s storer.EncodedObjectStorer
}

// ID returns the object ID of the commit, the SHA1 (or SHA256) of its
// contents. This is the same value as Hash.
func (c *Commit) ID() plumbing.Hash {
	return c.Hash
}

// Type returns the type of the object, always plumbing.CommitObject.
func (c *Commit) Type() plumbing.ObjectType {
	return plumbing.CommitObject
}

// commitHeaderTarget identifies which accumulator a continuation line
// (one beginning with a single space) should be appended to.
type commitHeaderTarget int

const (
	commitHeaderNone commitHeaderTarget = iota
	commitHeaderPGPSignature
	commitHeaderMergeTag
	commitHeaderExtra
)

// Decode transforms a plumbing.EncodedObject into a Commit struct.
func (c *Commit) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.CommitObject {
		return ErrUnsupportedObject
	}

	c.Hash = o.Hash()

	reader, err := o.Reader()
	if err != nil {
		return err
	}
	defer func() {
		closeErr := reader.Close()
		if err == nil {
			err = closeErr
		}
	}()

	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	header := content
	var message []byte
	if sep := bytes.Index(content, []byte("\n\n")); sep != -1 {
		header = content[:sep]
		message = content[sep+2:]
	} else {
		header = bytes.TrimSuffix(header, []byte("\n"))
		message = nil
	}

	c.Message = string(message)
	c.ExtraHeaders = nil
	c.ParentHashes = nil

	open := commitHeaderNone
	openExtraIdx := -1

	appendContinuation := func(line string) {
		content := line[1:]
		switch open {
		case commitHeaderPGPSignature:
			c.PGPSignature += "\n" + content
		case commitHeaderMergeTag:
			c.MergeTag += "\n" + content
		case commitHeaderExtra:
			c.ExtraHeaders[openExtraIdx].Value += "\n" + content
		default:
			c.ExtraHeaders = append(c.ExtraHeaders, ExtraHeader{Value: content})
			openExtraIdx = len(c.ExtraHeaders) - 1
			open = commitHeaderExtra
		}
	}

	if len(header) > 0 {
		for _, line := range strings.Split(string(header), "\n") {
			if strings.HasPrefix(line, " ") {
				appendContinuation(line)
				continue
			}

			idx := strings.IndexByte(line, ' ')
			if idx == -1 {
				c.ExtraHeaders = append(c.ExtraHeaders, ExtraHeader{Key: line})
				open = commitHeaderNone
				continue
			}

			key, value := line[:idx], line[idx+1:]
			switch key {
			case "tree":
				c.TreeHash = plumbing.NewHash(value)
				open = commitHeaderNone
			case "parent":
				c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(value))
				open = commitHeaderNone
			case "author":
				c.Author.Decode([]byte(value))
				open = commitHeaderNone
			case "committer":
				c.Committer.Decode([]byte(value))
				open = commitHeaderNone
			case "encoding":
				c.Encoding = MessageEncoding(value)
				open = commitHeaderNone
			case "gpgsig":
				c.PGPSignature = value
				open = commitHeaderPGPSignature
			case "mergetag":
				c.MergeTag = value
				open = commitHeaderMergeTag
			default:
				c.ExtraHeaders = append(c.ExtraHeaders, ExtraHeader{Key: key, Value: value})
				openExtraIdx = len(c.ExtraHeaders) - 1
				open = commitHeaderExtra
			}
		}
	}

	return nil
}

// Encode transforms a Commit into a plumbing.EncodedObject, including its
// PGP signature if present.
func (c *Commit) Encode(o plumbing.EncodedObject) error {
	return c.encode(o, true)
}

// EncodeWithoutSignature is like Encode but omits the PGP signature
// header, producing the payload that was (or would be) signed.
func (c *Commit) EncodeWithoutSignature(o plumbing.EncodedObject) error {
	return c.encode(o, false)
}

func (c *Commit) encode(o plumbing.EncodedObject, includeSignature bool) error {
	o.SetType(plumbing.CommitObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "tree %s\n", c.TreeHash.String()); err != nil {
		return err
	}

	for _, parent := range c.ParentHashes {
		if _, err := fmt.Fprintf(w, "parent %s\n", parent.String()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "author %s\n", c.Author.encode()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "committer %s\n", c.Committer.encode()); err != nil {
		return err
	}

	if c.Encoding != defaultUtf8CommitMessageEncoding {
		if _, err := fmt.Fprintf(w, "encoding %s\n", c.Encoding); err != nil {
			return err
		}
	}

	for _, h := range c.ExtraHeaders {
		if err := writeCommitHeaderValue(w, h.Key, h.Value); err != nil {
			return err
		}
	}

	if c.MergeTag != "" {
		if err := writeCommitHeaderValue(w, "mergetag", c.MergeTag); err != nil {
			return err
		}
	}

	if includeSignature && c.PGPSignature != "" {
		if err := writeCommitHeaderValue(w, "gpgsig", c.PGPSignature); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s", c.Message); err != nil {
		return err
	}

	return nil
}

// writeCommitHeaderValue writes a possibly multi-line header value,
// continuing it onto further lines each prefixed by a single space, the
// same convention git itself uses for headers such as "gpgsig".
//
// A key of "" writes only the continuation lines, with no header line of
// its own: this reconstructs an ExtraHeader that was parsed from stray
// continuation lines with no header to attach to.
func writeCommitHeaderValue(w io.Writer, key, value string) error {
	if key == "" {
		for _, line := range strings.Split(value, "\n") {
			if _, err := fmt.Fprintf(w, " %s\n", line); err != nil {
				return err
			}
		}
		return nil
	}

	if value == "" {
		_, err := fmt.Fprintf(w, "%s\n", key)
		return err
	}

	lines := strings.Split(value, "\n")
	if _, err := fmt.Fprintf(w, "%s %s\n", key, lines[0]); err != nil {
		return err
	}
	for _, line := range lines[1:] {
		if _, err := fmt.Fprintf(w, " %s\n", line); err != nil {
			return err
		}
	}

	return nil
}

// Tree returns the Tree from the commit.
func (c *Commit) Tree() (*Tree, error) {
	return GetTree(c.s, c.TreeHash)
}

// Parents returns an iterator to the parents of the commit.
func (c *Commit) Parents() CommitIter {
	return NewCommitIter(c.s,
		storer.NewEncodedObjectLookupIter(c.s, plumbing.CommitObject, c.ParentHashes),
	)
}

// NumParents returns the number of parents of the commit.
func (c *Commit) NumParents() int {
	return len(c.ParentHashes)
}

// Parent returns the ith parent of the commit.
func (c *Commit) Parent(i int) (*Commit, error) {
	if i < 0 || i >= len(c.ParentHashes) {
		return nil, ErrParentNotFound
	}

	return GetCommit(c.s, c.ParentHashes[i])
}

// File returns the file with the specified path, resolved through the
// commit's tree.
func (c *Commit) File(path string) (*File, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	return tree.File(path)
}

// Patch returns the Patch between the current commit and the given one,
// i.e. the diff from c's tree to to's tree. If to is nil, it is taken to
// mean the empty tree.
func (c *Commit) Patch(to *Commit) (*Patch, error) {
	return c.PatchContext(context.Background(), to)
}

// PatchContext is like Patch but with a context that can cancel the
// underlying diff algorithm.
func (c *Commit) PatchContext(ctx context.Context, to *Commit) (*Patch, error) {
	fromTree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	toTree := &Tree{}
	if to != nil {
		toTree, err = to.Tree()
		if err != nil {
			return nil, err
		}
	}

	changes, err := DiffTree(fromTree, toTree)
	if err != nil {
		return nil, err
	}

	return getPatchContext(ctx, "", changes...)
}

// Stats returns the file-by-file diffstat of the commit against its first
// parent (or against the empty tree, if it has none).
func (c *Commit) Stats() (FileStats, error) {
	return c.StatsContext(context.Background())
}

// StatsContext is like Stats but with a context that can cancel the
// underlying diff algorithm.
func (c *Commit) StatsContext(ctx context.Context) (FileStats, error) {
	toTree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	fromTree := &Tree{}
	if c.NumParents() != 0 {
		firstParent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}

		fromTree, err = firstParent.Tree()
		if err != nil {
			return nil, err
		}
	}

	changes, err := DiffTree(fromTree, toTree)
	if err != nil {
		return nil, err
	}

	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return nil, err
	}

	return getFileStatsFromFilePatches(patch.FilePatches()), nil
}

// Less returns true if the commit is older than the given commit, using
// committer time, then author time, then hash as tie-breakers.
func (c *Commit) Less(rhs *Commit) bool {
	if c.Committer.When.Equal(rhs.Committer.When) {
		if c.Author.When.Equal(rhs.Author.When) {
			return bytes.Compare(c.Hash[:], rhs.Hash[:]) < 0
		}
		return c.Author.When.Before(rhs.Author.When)
	}
	return c.Committer.When.Before(rhs.Committer.When)
}

// String returns the git-log style representation of the commit.
func (c *Commit) String() string {
	return fmt.Sprintf(
		"commit %s\nAuthor: %s\nDate:   %s\n\n%s\n",
		c.Hash, c.Author.String(),
		c.Author.When.Format(DateFormat),
		indentCommitMessage(c.Message),
	)
}

// indentCommitMessage indents every non-blank line of a commit message by
// four spaces, matching `git log`'s rendering of the message body.
func indentCommitMessage(msg string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "    " + line
		}
	}

	return strings.Join(lines, "\n")
}

// Signature implements signature.VerifiableObject, returning the raw PGP
// signature attached to the commit, if any.
func (c *Commit) Signature() string {
	return c.PGPSignature
}

// Verify verifies the PGP signature of the commit against the given
// armored key ring and returns the entity that signed it.
func (c *Commit) Verify(armoredKeyRing string) (*openpgp.Entity, error) {
	keyRingReader := strings.NewReader(armoredKeyRing)
	verifier, err := pgp.NewVerifierFromArmoredKeyRing(keyRingReader)
	if err != nil {
		return nil, err
	}

	entity, err := verifier.Verify(c)
	if err != nil {
		return nil, err
	}

	pgpEntity, ok := entity.Concrete().(*openpgp.Entity)
	if !ok {
		return nil, errors.New("unexpected entity type")
	}

	return pgpEntity, nil
}

// CommitIter is a generic closable interface for iterating over commits.
type CommitIter interface {
	Next() (*Commit, error)
	ForEach(func(*Commit) error) error
	Close()
}

// commitIter provides an iterator over commits decoded from a
// storer.EncodedObjectIter.
type commitIter struct {
	storer.EncodedObjectIter
	s storer.EncodedObjectStorer
}

// NewCommitIter takes a storer.EncodedObjectStorer and a
// storer.EncodedObjectIter and returns a CommitIter that iterates over all
// commits contained in the storer.EncodedObjectIter.
func NewCommitIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) CommitIter {
	return &commitIter{iter, s}
}

// Next moves the iterator to the next commit and returns it. If there are
// no more commits, it returns io.EOF.
func (iter *commitIter) Next() (*Commit, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeCommit(iter.s, obj)
}

// ForEach runs cb for every commit contained in this iterator until an
// error happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *commitIter) ForEach(cb func(*Commit) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		c, err := DecodeCommit(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(c)
	})
}

// Signature identifies a point in time by a named and addressable entity.
type Signature struct {
	// Name represents a person name, it is an arbitrary string.
	Name string
	// Email is an email, but it cannot be assumed to be well-formed.
	Email string
	// When is the timestamp of the signature.
	When time.Time
}

// timeZoneLength is the fixed width, in bytes, of a signature's "+0000"
// style timezone offset.
const timeZoneLength = 5

// Decode decodes a byte slice into a Signature.
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	closeIdx := bytes.LastIndexByte(b, '>')
	if open == -1 || closeIdx == -1 || closeIdx < open {
		return
	}

	if open >= 1 {
		s.Name = string(bytes.Trim(b[:open-1], " "))
	}

	s.Email = string(b[open+1 : closeIdx])

	hasTime := closeIdx+2 < len(b)
	if hasTime {
		s.decodeTimeAndTimeZone(b[closeIdx+2:])
	}
}

// decodeTimeAndTimeZone parses the trailing "<unix-seconds> <+HHMM>"
// portion of an encoded signature.
func (s *Signature) decodeTimeAndTimeZone(b []byte) {
	space := bytes.IndexByte(b, ' ')
	if space == -1 {
		space = len(b)
	}

	ts, err := strconv.ParseInt(string(b[:space]), 10, 64)
	if err != nil {
		return
	}

	s.When = time.Unix(ts, 0).In(time.UTC)

	tzStart := space + 1
	if tzStart >= len(b) || tzStart+timeZoneLength > len(b) {
		return
	}

	timezone := string(b[tzStart : tzStart+timeZoneLength])
	tzhours, err1 := strconv.ParseInt(timezone[0:3], 10, 64)
	tzmins, err2 := strconv.ParseInt(timezone[3:], 10, 64)
	if err1 != nil || err2 != nil {
		return
	}

	if tzhours < 0 {
		tzmins *= -1
	}

	tz := time.FixedZone("", int(tzhours*60*60+tzmins*60))
	s.When = s.When.In(tz)
}

// formatTimeZoneOnly is the layout used to render a Signature's timezone
// offset on its own, e.g. "-0700".
const formatTimeZoneOnly = "-0700"

// String returns "Name <email>", the short form used in the headers of
// Commit.String() and Tag.String().
func (s *Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// encode renders the signature the way git writes it in a commit or tag
// object's header: "Name <email> <unix-seconds> <+HHMM>".
//
// A zero-value When encodes as the Unix epoch rather than Go's zero time
// (year 1), so that a Signature left unset round-trips through Decode as
// the conventional "1970-01-01" rather than an unparseable ancient date.
func (s *Signature) encode() string {
	ts := s.When.Unix()
	if s.When.IsZero() {
		ts = 0
	}
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, ts, s.When.Format(formatTimeZoneOnly))
}
