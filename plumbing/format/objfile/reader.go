// Package objfile implements encoding and decoding of single objects.
// This is the format used by git to store objects in the loose object
// store, one zlib-compressed "<type> <size>\x00<content>" blob per file
// under .git/objects.
package objfile

import (
	"bufio"
	"compress/zlib"
	"errors"
	"io"
	"strconv"

	"github.com/vcsforge/gitcore/plumbing"
	formatcfg "github.com/vcsforge/gitcore/plumbing/format/config"
)

var (
	// ErrClosed reports use of a reader or writer that is already closed.
	// No function in this package returns it; a second Close returns nil.
	ErrClosed = errors.New("objfile: already closed")
	// ErrHeader is returned when the header has an invalid format or size.
	ErrHeader = errors.New("objfile: invalid header")
	// ErrNegativeSize is returned when a negative object size is declared.
	ErrNegativeSize = errors.New("objfile: negative size")
	// ErrOverflow is returned when more bytes are written than the declared size.
	ErrOverflow = errors.New("objfile: declared size exceeded")
)

// Reader reads and decodes content stored using the objfile format.
type Reader struct {
	zr io.ReadCloser
	r  *bufio.Reader

	hasher plumbing.Hasher

	typ  plumbing.ObjectType
	size int64
	read int64

	closed bool
}

// NewReader returns a new Reader reading from r, validating the zlib
// stream exists. Call Header before reading the object's content.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}

	return &Reader{
		zr: zr,
		r:  bufio.NewReader(zr),
	}, nil
}

// Header reads and returns the object type and declared size, and
// primes the hash with them as the git object header requires. It may
// be called only once per Reader.
func (r *Reader) Header() (t plumbing.ObjectType, size int64, err error) {
	raw, err := r.r.ReadString(0)
	if err != nil {
		return 0, 0, ErrHeader
	}
	raw = raw[:len(raw)-1]

	sp := -1
	for i, b := range []byte(raw) {
		if b == ' ' {
			sp = i
			break
		}
	}
	if sp < 0 {
		return 0, 0, ErrHeader
	}

	t, err = plumbing.ParseObjectType(raw[:sp])
	if err != nil {
		return 0, 0, ErrHeader
	}

	size, err = strconv.ParseInt(raw[sp+1:], 10, 64)
	if err != nil || size < 0 {
		return 0, 0, ErrHeader
	}

	r.typ = t
	r.size = size
	r.hasher = plumbing.NewHasher(formatcfg.UnsetObjectFormat, t, size)

	return t, size, nil
}

// Read implements io.Reader, returning the object's decompressed content.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.hasher.Write(p[:n])
	}
	return n, err
}

// Hash returns the object's id, computed over everything read so far.
// Call it only after consuming the full content.
func (r *Reader) Hash() plumbing.Hash {
	return r.hasher.Sum()
}

// Close releases the underlying zlib reader.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.zr.Close()
}
