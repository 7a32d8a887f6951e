package plumbing

import (
	"bytes"
	"io"
)

// MemoryObject is an EncodedObject implementation that stores the content
// and the header in memory, making it efficient for small objects and
// repositories that live entirely in memory.
type MemoryObject struct {
	t    ObjectType
	h    Hash
	sz   int64
	cont []byte
	oh   *ObjectHasher
}

// NewMemoryObject returns a MemoryObject that hashes its content with oh,
// for storers that support an object format other than the default.
func NewMemoryObject(oh *ObjectHasher) *MemoryObject {
	return &MemoryObject{oh: oh}
}

// Hash returns the object ID for the content currently held, or ZeroHash
// if the content written so far does not match the declared size.
func (o *MemoryObject) Hash() Hash {
	if int64(len(o.cont)) != o.sz {
		return ZeroHash
	}

	if o.h.IsZero() {
		if o.oh != nil {
			id, err := o.oh.Compute(o.t, o.cont)
			if err != nil {
				return ZeroHash
			}
			o.h = id
			return o.h
		}

		h := NewHasher(o.h.format, o.t, o.sz)
		h.Write(o.cont)
		o.h = h.Sum()
	}

	return o.h
}

// Type returns the object type.
func (o *MemoryObject) Type() ObjectType {
	return o.t
}

// SetType sets the object type.
func (o *MemoryObject) SetType(t ObjectType) {
	o.t = t
}

// Size returns the declared (uncompressed) size of the object.
func (o *MemoryObject) Size() int64 {
	return o.sz
}

// SetSize sets the declared size of the object.
func (o *MemoryObject) SetSize(s int64) {
	o.sz = s
}

// Reader returns a reader for the content, supporting seeks.
func (o *MemoryObject) Reader() (io.ReadCloser, error) {
	return &memoryObjectReader{bytes.NewReader(o.cont)}, nil
}

// memoryObjectReader wraps a bytes.Reader to add a no-op Close while keeping
// Seek but not exposing Write, so callers cannot mutate the object through
// the reader.
type memoryObjectReader struct {
	*bytes.Reader
}

func (r *memoryObjectReader) Close() error {
	return nil
}

// Writer returns a writer that appends to the in-memory content buffer.
func (o *MemoryObject) Writer() (io.WriteCloser, error) {
	return &memoryObjectWriter{o}, nil
}

// Write appends p to the in-memory content buffer, growing the declared
// size to match so that Encode callers that never call SetSize still hash
// correctly.
func (o *MemoryObject) Write(p []byte) (int, error) {
	o.cont = append(o.cont, p...)
	o.sz = int64(len(o.cont))
	return len(p), nil
}

type memoryObjectWriter struct {
	*MemoryObject
}

func (w *memoryObjectWriter) Close() error {
	return nil
}
