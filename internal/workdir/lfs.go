package workdir

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// lfsPointerHeader is the fixed first line of every LFS pointer file.
const lfsPointerHeader = "version https://git-lfs.github.com/spec/v1"

// ErrLFSSizeMismatch is returned when a smudged LFS object's length does
// not match the size recorded in its pointer file.
var ErrLFSSizeMismatch = errors.New("lfs object size mismatch")

// Pointer is the parsed form of an LFS pointer file: an algorithm-tagged
// OID and a declared size.
type Pointer struct {
	Algo string
	OID  string
	Size int64
}

// String renders p back into the literal pointer-file text: header, oid,
// size, in that required order.
func (p Pointer) String() string {
	return fmt.Sprintf("%s\noid %s:%s\nsize %d\n", lfsPointerHeader, p.Algo, p.OID, p.Size)
}

// ParsePointer parses data as an LFS pointer file. It returns ok=false
// (not an error) when data does not start with the pointer header, since
// callers use that to distinguish pointer files from ordinary blobs.
func ParsePointer(data []byte) (Pointer, bool, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 3 || lines[0] != lfsPointerHeader {
		return Pointer{}, false, nil
	}

	var p Pointer
	var sawOID, sawSize bool
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "oid "):
			spec := strings.TrimPrefix(line, "oid ")
			parts := strings.SplitN(spec, ":", 2)
			if len(parts) != 2 {
				return Pointer{}, true, fmt.Errorf("lfs pointer: malformed oid line %q", line)
			}
			p.Algo, p.OID = parts[0], parts[1]
			sawOID = true
		case strings.HasPrefix(line, "size "):
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "size "), 10, 64)
			if err != nil {
				return Pointer{}, true, fmt.Errorf("lfs pointer: malformed size line %q", line)
			}
			p.Size = n
			sawSize = true
		}
	}

	if !sawOID || !sawSize {
		return Pointer{}, true, fmt.Errorf("lfs pointer: missing oid or size")
	}

	return p, true, nil
}

// Clean computes the pointer for data, as stored in the object database
// when an LFS-tracked path is added: the SHA-256 of the content, paired
// with its length. An empty algo is recorded as "sha256"; any other algo
// is recorded as given, but the OID is still a SHA-256 digest.
func Clean(data []byte, algo string) Pointer {
	switch algo {
	case "", "sha256":
		sum := sha256.Sum256(data)
		return Pointer{Algo: "sha256", OID: hex.EncodeToString(sum[:]), Size: int64(len(data))}
	default:
		sum := sha256.Sum256(data)
		return Pointer{Algo: algo, OID: hex.EncodeToString(sum[:]), Size: int64(len(data))}
	}
}

// Smudge validates that content matches p's declared size and returns it
// unchanged; the actual object lookup happens in the caller, via
// LFSFilter.Get(p.OID).
func Smudge(p Pointer, content []byte) ([]byte, error) {
	if int64(len(content)) != p.Size {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrLFSSizeMismatch, p.Size, len(content))
	}

	return content, nil
}
