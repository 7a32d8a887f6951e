// Package filemode defines the set of possible file modes used by Git and
// its conversion to/from OS file modes.
package filemode

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
)

// A FileMode represents the kind of tree entries used by git. It
// resembles regular file systems modes, although it is much simpler as
// it only has a limited set of valid values.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New takes the octal string representation of a FileMode and returns
// the FileMode and a nil error. If the string can not be parsed to a
// 32 bit unsigned octal number it returns Empty and the parsing error.
//
// Example: "40000" means Dir, "100644" means Regular.
func New(s string) (FileMode, error) {
	m := FileMode(0)
	err := m.UnmarshalText([]byte(s))
	return m, err
}

// NewFromOSFileMode returns the FileMode used by git to represent the
// provided file system mode, and a nil error. If the file system mode
// can not be mapped to any valid git mode (e.g. device files) it
// returns Empty and an informative error.
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	if m.IsRegular() {
		if isTemporaryDeviceCharOrSocket(m) {
			return Empty, fmt.Errorf("no equivalent file mode: %s", m)
		}

		if m&0o100 != 0 {
			return Executable, nil
		}

		return Regular, nil
	}

	if m.IsDir() {
		return Dir, nil
	}

	if m&os.ModeSymlink != 0 {
		return Symlink, nil
	}

	return Empty, fmt.Errorf("no equivalent file mode: %s", m)
}

func isTemporaryDeviceCharOrSocket(m os.FileMode) bool {
	return m&(os.ModeTemporary|os.ModeDevice|os.ModeCharDevice|os.ModeSocket|os.ModeNamedPipe) != 0
}

// Bytes returns the FileMode as a little-endian uint32 number, 4 bytes
// long, matching the encoding used by the index and packfile tree entries.
func (m FileMode) Bytes() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(m))
	return b
}

// IsMalformed returns if the FileMode should not appear in a tree
// object. Malformed modes usually arise from a bad parse of a mode
// encoded as a string.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// String returns the FileMode as a 7 digit octal string, left-padded
// with zeroes, matching the textual representation used by git.
func (m FileMode) String() string {
	return fmt.Sprintf("%07o", uint32(m))
}

// IsRegular returns if the FileMode represents a readable regular
// (non executable) file.
func (m FileMode) IsRegular() bool {
	return m == Regular || m == Deprecated
}

// IsFile returns if the FileMode represents any kind of file: a
// regular, executable or a symlink (but not a submodule or directory).
func (m FileMode) IsFile() bool {
	switch m {
	case Regular, Deprecated, Executable, Symlink:
		return true
	default:
		return false
	}
}

// ToOSFileMode returns the os.FileMode that best matches the current
// FileMode, or an error if the FileMode is malformed.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir, Submodule:
		return os.ModePerm | os.ModeDir, nil
	case Symlink:
		return os.ModePerm | os.ModeSymlink, nil
	case Regular, Deprecated:
		return os.FileMode(0o644), nil
	case Executable:
		return os.FileMode(0o755), nil
	default:
		return os.FileMode(0), fmt.Errorf("malformed mode (%s)", m)
	}
}

// UnmarshalText parses the octal string representation of a FileMode
// (as stored in tree entries and some git command output) into m.
func (m *FileMode) UnmarshalText(text []byte) error {
	*m = Empty

	n, err := strconv.ParseUint(string(text), 8, 32)
	if err != nil {
		return err
	}

	*m = FileMode(n)
	return nil
}
