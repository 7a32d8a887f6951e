package objfile

import (
	"compress/zlib"
	"fmt"
	"io"

	"github.com/vcsforge/gitcore/plumbing"
	formatcfg "github.com/vcsforge/gitcore/plumbing/format/config"
)

// Writer encodes and writes content in the objfile format.
type Writer struct {
	w  io.Writer
	zw *zlib.Writer

	hasher plumbing.Hasher

	size    int64
	written int64

	closed bool
}

// NewWriter returns a new Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:  w,
		zw: zlib.NewWriter(w),
	}
}

// WriteHeader writes the object's type and declared size, and must be
// called exactly once before any call to Write.
func (w *Writer) WriteHeader(t plumbing.ObjectType, size int64) error {
	if t == plumbing.InvalidObject {
		return plumbing.ErrInvalidType
	}
	if size < 0 {
		return ErrNegativeSize
	}

	w.size = size
	w.hasher = plumbing.NewHasher(formatcfg.UnsetObjectFormat, t, size)

	_, err := fmt.Fprintf(w.zw, "%s %d", t, size)
	if err != nil {
		return err
	}
	_, err = w.zw.Write([]byte{0})
	return err
}

// Write implements io.Writer, zlib-compressing and hashing p. Writing
// more bytes than declared in WriteHeader returns ErrOverflow.
func (w *Writer) Write(p []byte) (int, error) {
	overflow := w.written+int64(len(p)) > w.size
	if overflow {
		p = p[:w.size-w.written]
	}

	n, err := w.zw.Write(p)
	if n > 0 {
		w.written += int64(n)
		w.hasher.Write(p[:n])
	}

	if err == nil && overflow {
		err = ErrOverflow
	}

	return n, err
}

// Hash returns the object's id, computed over the header and content
// written so far.
func (w *Writer) Hash() plumbing.Hash {
	return w.hasher.Sum()
}

// Close flushes and closes the underlying zlib writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.zw.Close()
}
