package object

import (
	"bufio"
	"io"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// File represents a git file, which is basically like a blob but it has a
// filename. Files are a higher level object, replacing the plumbing object
// Blob.
type File struct {
	// Name is the path of the file. It might be relative to a tree,
	// depending of the function that generates it.
	Name string
	// Mode is the file mode.
	Mode filemode.FileMode
	// Hash is the hash of the blob content.
	Hash plumbing.Hash

	blob *Blob
}

// NewFile returns a File based on the given blob object.
func NewFile(name string, m filemode.FileMode, b *Blob) *File {
	return &File{Name: name, Mode: m, Hash: b.Hash, blob: b}
}

// ID returns the object ID of the file, the SHA1 (or SHA256) of its content.
// This is the same as the Hash of the corresponding Blob.
func (f *File) ID() plumbing.Hash {
	return f.blob.ID()
}

// Type returns the type of the object, always plumbing.BlobObject.
func (f *File) Type() plumbing.ObjectType {
	return f.blob.Type()
}

// Reader returns a reader for the file's content.
func (f *File) Reader() (io.ReadCloser, error) {
	return f.blob.Reader()
}

// Contents returns the file's contents as a string.
func (f *File) Contents() (content string, err error) {
	reader, err := f.Reader()
	if err != nil {
		return "", err
	}
	defer func() {
		closeErr := reader.Close()
		if err == nil {
			err = closeErr
		}
	}()

	b, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// IsBinary returns if the file is binary or not.
func (f *File) IsBinary() (bin bool, err error) {
	reader, err := f.Reader()
	if err != nil {
		return false, err
	}
	defer func() {
		closeErr := reader.Close()
		if err == nil {
			err = closeErr
		}
	}()

	return isBinary(reader)
}

// Lines returns a slice of lines from the file's content.
func (f *File) Lines() ([]string, error) {
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}

	splits := splitLines(content)
	if len(splits) > 0 && splits[len(splits)-1] == "" {
		return splits[:len(splits)-1], nil
	}

	return splits, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])

	return lines
}

// isBinary detects if data read from reader is binary by sniffing for a
// NUL byte within the first few thousand bytes, mirroring git's own
// heuristic.
func isBinary(reader io.Reader) (bool, error) {
	r := bufio.NewReader(reader)

	const sniffLen = 8000
	var bytesToCheck []byte

	for i := 0; i < sniffLen; i++ {
		b, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}

		if b == 0 {
			return true, nil
		}

		bytesToCheck = append(bytesToCheck, b)
	}

	return false, nil
}

// FileIter provides an iterator for the files in a tree.
type FileIter struct {
	s     storer.EncodedObjectStorer
	w     TreeWalker
}

// NewFileIter takes a storer.EncodedObjectStorer and a Tree and returns a
// FileIter that iterates over all files contained in the tree, recursively.
func NewFileIter(s storer.EncodedObjectStorer, t *Tree) *FileIter {
	return &FileIter{s: s, w: *NewTreeWalker(t, true, nil)}
}

// Next moves the iterator to the next file and returns it. If there are no
// more files, it returns io.EOF.
func (iter *FileIter) Next() (*File, error) {
	for {
		name, entry, err := iter.w.Next()
		if err != nil {
			return nil, err
		}

		if entry.Mode == filemode.Dir || entry.Mode == filemode.Submodule {
			continue
		}

		blob, err := GetBlob(iter.s, entry.Hash)
		if err != nil {
			return nil, err
		}

		return NewFile(name, entry.Mode, blob), nil
	}
}

// ForEach runs cb for every file contained in this iter until an error
// happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *FileIter) ForEach(cb func(*File) error) error {
	defer iter.Close()
	for {
		f, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(f); err != nil {
			if err == storer.ErrStop {
				return nil
			}

			return err
		}
	}
}

// Close releases any resources used by the iterator.
func (iter *FileIter) Close() {
	iter.w.Close()
}
