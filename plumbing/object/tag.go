package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/object/signature/pgp"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// Tag represents an annotated tag object. It points to a single git object
// of any type, and contains metadata about that point in time: a tagger,
// a timestamp and a message, optionally followed by a PGP signature.
type Tag struct {
	// Hash of the tag object.
	Hash plumbing.Hash
	// Name of the tag.
	Name string
	// Tagger is the one who created the tag.
	Tagger Signature
	// Message is an arbitrary text message.
	Message string
	// PGPSignature is the PGP signature of the tag, if it was signed.
	//
	// Unlike a commit's signature, a tag's signature has no header of its
	// own: it is simply appended after the message, and recovered on
	// Decode by scanning the trailing bytes for a known signature block.
	PGPSignature string
	// TargetType is the object type of the target.
	TargetType plumbing.ObjectType
	// Target is the hash of the target object.
	Target plumbing.Hash

	s storer.EncodedObjectStorer
}

// ID returns the object ID of the tag, the SHA1 (or SHA256) of its
// contents. This is the same value as Hash.
func (t *Tag) ID() plumbing.Hash {
	return t.Hash
}

// Type returns the type of the object, always plumbing.TagObject.
func (t *Tag) Type() plumbing.ObjectType {
	return plumbing.TagObject
}

// Decode transforms a plumbing.EncodedObject into a Tag struct.
func (t *Tag) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.TagObject {
		return ErrUnsupportedObject
	}

	t.Hash = o.Hash()

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
	var body []byte
	if sep := bytes.Index(content, []byte("\n\n")); sep != -1 {
		header = content[:sep]
		body = content[sep+2:]
	} else {
		header = bytes.TrimSuffix(header, []byte("\n"))
	}

	for _, line := range strings.Split(string(header), "\n") {
		idx := strings.IndexByte(line, ' ')
		if idx == -1 {
			continue
		}

		key, value := line[:idx], line[idx+1:]
		switch key {
		case "object":
			t.Target = plumbing.NewHash(value)
		case "type":
			typ, err := plumbing.ParseObjectType(value)
			if err != nil {
				return err
			}
			t.TargetType = typ
		case "tag":
			t.Name = value
		case "tagger":
			t.Tagger.Decode([]byte(value))
		}
	}

	bodyStr := string(body)
	if pos, _ := parseSignedBytes([]byte(bodyStr)); pos != -1 {
		t.Message = bodyStr[:pos]
		t.PGPSignature = bodyStr[pos:]
	} else {
		t.Message = bodyStr
		t.PGPSignature = ""
	}

	return nil
}

// Encode transforms a Tag into a plumbing.EncodedObject, including its PGP
// signature if present.
func (t *Tag) Encode(o plumbing.EncodedObject) error {
	return t.encode(o, true)
}

// EncodeWithoutSignature is like Encode but omits the PGP signature,
// producing the payload that was (or would be) signed.
func (t *Tag) EncodeWithoutSignature(o plumbing.EncodedObject) error {
	return t.encode(o, false)
}

func (t *Tag) encode(o plumbing.EncodedObject, includeSignature bool) error {
	o.SetType(plumbing.TagObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "object %s\n", t.Target.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "type %s\n", t.TargetType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tag %s\n", t.Name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tagger %s\n", t.Tagger.encode()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n%s", t.Message); err != nil {
		return err
	}

	if includeSignature && t.PGPSignature != "" {
		if _, err := io.WriteString(w, t.PGPSignature); err != nil {
			return err
		}
	}

	return nil
}

// Signature implements signature.VerifiableObject, returning the PGP
// signature of the tag, whether it came from a dedicated PGPSignature
// field or was embedded directly in the message.
func (t *Tag) Signature() string {
	return t.PGPSignature
}

// Verify verifies the PGP signature of the tag against the given armored
// key ring and returns the entity that signed it.
func (t *Tag) Verify(armoredKeyRing string) (*openpgp.Entity, error) {
	keyRingReader := strings.NewReader(armoredKeyRing)
	verifier, err := pgp.NewVerifierFromArmoredKeyRing(keyRingReader)
	if err != nil {
		return nil, err
	}

	entity, err := verifier.Verify(t)
	if err != nil {
		return nil, err
	}

	pgpEntity, ok := entity.Concrete().(*openpgp.Entity)
	if !ok {
		return nil, errors.New("unexpected entity type")
	}

	return pgpEntity, nil
}

// Commit returns the commit pointed to by the tag. If the tag points to a
// different kind of object, ErrUnsupportedObject is returned.
func (t *Tag) Commit() (*Commit, error) {
	if t.TargetType != plumbing.CommitObject {
		return nil, ErrUnsupportedObject
	}

	return GetCommit(t.s, t.Target)
}

// Tree returns the tree pointed to by the tag. If the tag points to a
// commit, its tree is returned. If the tag points to anything else,
// ErrUnsupportedObject is returned.
func (t *Tag) Tree() (*Tree, error) {
	switch t.TargetType {
	case plumbing.CommitObject:
		c, err := t.Commit()
		if err != nil {
			return nil, err
		}

		return c.Tree()
	case plumbing.TreeObject:
		return GetTree(t.s, t.Target)
	default:
		return nil, ErrUnsupportedObject
	}
}

// Blob returns the blob pointed to by the tag. If the tag points to a
// different kind of object, ErrUnsupportedObject is returned.
func (t *Tag) Blob() (*Blob, error) {
	if t.TargetType != plumbing.BlobObject {
		return nil, ErrUnsupportedObject
	}

	return GetBlob(t.s, t.Target)
}

// Object returns the object pointed to by the tag, whatever its type.
func (t *Tag) Object() (Object, error) {
	o, err := t.s.EncodedObject(t.TargetType, t.Target)
	if err != nil {
		return nil, err
	}

	return DecodeObject(t.s, o)
}

// String returns the git-log style representation of the tag, followed by
// the representation of the commit it points to, if any.
func (t *Tag) String() string {
	target := ""
	if t.TargetType == plumbing.CommitObject {
		if c, err := t.Commit(); err == nil {
			target = c.String()
		}
	}

	return fmt.Sprintf(
		"tag %s\nTagger: %s\nDate:   %s\n\n%s\n%s",
		t.Name, t.Tagger.String(), t.Tagger.When.Format(DateFormat), t.Message, target,
	)
}

// TagIter provides an iterator over Tag objects.
type TagIter struct {
	storer.EncodedObjectIter
	s storer.EncodedObjectStorer
}

// NewTagIter takes a storer.EncodedObjectStorer and a
// storer.EncodedObjectIter and returns a TagIter that iterates over all
// tags contained in the storer.EncodedObjectIter.
func NewTagIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TagIter {
	return &TagIter{iter, s}
}

// Next moves the iterator to the next tag and returns it. If there are no
// more tags, it returns io.EOF.
func (iter *TagIter) Next() (*Tag, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeTag(iter.s, obj)
}

// ForEach runs cb for every tag contained in this iterator until an error
// happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *TagIter) ForEach(cb func(*Tag) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		tag, err := DecodeTag(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(tag)
	})
}
