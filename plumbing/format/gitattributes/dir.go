package gitattributes

import (
	"bytes"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/vcsforge/gitcore/plumbing/format/config"
)

const (
	coreSection       = "core"
	attributesfile    = "attributesfile"
	gitDir            = ".git"
	gitattributesFile = ".gitattributes"
	gitconfigFile     = ".gitconfig"
	systemFile        = "/etc/gitconfig"
)

func readAttributesFile(fs billy.Filesystem, path []string, name string) ([]MatchAttribute, error) {
	f, err := fs.Open(fs.Join(append(append([]string{}, path...), name)...))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return ReadAttributes(f, path, true)
}

// ReadPatterns reads the .gitattributes patterns recursively traversing
// through the directory structure. The result is in the ascending order of
// priority (last higher): a directory's own .gitattributes is appended
// after its subdirectories', so a conflicting attribute assignment higher
// up the tree is the one that is seen last and wins.
func ReadPatterns(fs billy.Filesystem, path []string) (mas []MatchAttribute, err error) {
	fis, err := fs.ReadDir(filepath.Join(path...))
	if err != nil {
		return
	}

	for _, fi := range fis {
		if fi.IsDir() && fi.Name() != gitDir {
			var sub []MatchAttribute
			sub, err = ReadPatterns(fs, append(append([]string{}, path...), fi.Name()))
			if err != nil {
				return
			}

			if len(sub) > 0 {
				mas = append(mas, sub...)
			}
		}
	}

	own, err := readAttributesFile(fs, path, gitattributesFile)
	if err != nil {
		return nil, err
	}
	mas = append(mas, own...)

	return
}

func loadPatterns(fs billy.Filesystem, path string) ([]MatchAttribute, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return ReadAttributes(f, nil, true)
}

func attributesFilePath(fs billy.Filesystem, configPath string) (string, error) {
	f, err := fs.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	cfg := config.New()
	if err := config.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return "", err
	}

	path := cfg.Section(coreSection).Option(attributesfile)
	if path == "" {
		return "", nil
	}

	return expandUser(path)
}

// LoadGlobalPatterns loads gitattributes patterns from the attributesfile
// declared in the user's ~/.gitconfig, if any.
func LoadGlobalPatterns(fs billy.Filesystem) ([]MatchAttribute, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}

	path, err := attributesFilePath(fs, fs.Join(home, gitconfigFile))
	if err != nil || path == "" {
		return nil, err
	}

	return loadPatterns(fs, path)
}

// LoadSystemPatterns loads gitattributes patterns from the attributesfile
// declared in the system's /etc/gitconfig, if any.
func LoadSystemPatterns(fs billy.Filesystem) ([]MatchAttribute, error) {
	path, err := attributesFilePath(fs, systemFile)
	if err != nil || path == "" {
		return nil, err
	}

	return loadPatterns(fs, path)
}

// expandUser expands a leading "~" or "~user" in path against the named
// user's home directory, or the current user's if unnamed.
func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	var userName string
	if i := strings.IndexAny(path, "/\\"); i > 0 {
		userName = path[1:i]
	} else {
		userName = path[1:]
	}

	var home string
	if userName == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		home = h
	} else {
		u, err := user.Lookup(userName)
		if err != nil {
			return "", err
		}
		home = u.HomeDir
	}

	return filepath.Join(home, path[len(userName)+1:]), nil
}
