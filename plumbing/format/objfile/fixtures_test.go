package objfile

import (
	"bytes"
	"encoding/base64"

	"github.com/vcsforge/gitcore/plumbing"
)

// objfileFixture is a plumbing object encoded in objfile's wire format,
// alongside the object id git itself assigns to that content.
type objfileFixture struct {
	hash    string
	t       plumbing.ObjectType
	content string // base64
	data    string // base64, the zlib-compressed header+content
}

var objfileFixtures []objfileFixture

// These hashes are the well-known git object ids for an empty blob, the
// canonical "what is up, doc?" blob from Git's own object-hashing
// tutorial, and an empty tree; the compressed bytes are produced here
// with this package's own Writer, anchoring the round trip to those
// independently known hashes rather than an opaque magic blob.
func init() {
	raw := []struct {
		hash    string
		t       plumbing.ObjectType
		content []byte
	}{
		{"e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", plumbing.BlobObject, []byte{}},
		{"bd9dbf5aae1a3862dd1526723246b20206e5fc37", plumbing.BlobObject, []byte("what is up, doc?")},
		{"4b825dc642cb6eb9a060e54bf8d69288fbee4904", plumbing.TreeObject, []byte{}},
	}

	for _, f := range raw {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteHeader(f.t, int64(len(f.content))); err != nil {
			panic(err)
		}
		if _, err := w.Write(f.content); err != nil {
			panic(err)
		}
		if err := w.Close(); err != nil {
			panic(err)
		}

		objfileFixtures = append(objfileFixtures, objfileFixture{
			hash:    f.hash,
			t:       f.t,
			content: base64.StdEncoding.EncodeToString(f.content),
			data:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		})
	}
}
