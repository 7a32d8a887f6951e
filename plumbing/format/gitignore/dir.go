package gitignore

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
	commentPrefix = "#"
	coreSection   = "core"
	excludesfile  = "excludesfile"
	gitDir        = ".git"
	gitignoreFile = ".gitignore"
	gitconfigFile = ".gitconfig"
	systemFile    = "/etc/gitconfig"
)

// readIgnoreFile reads a specific gitignore-style file, relative to path.
func readIgnoreFile(fs billy.Filesystem, path []string, ignoreFile string) (ps []Pattern, err error) {
	f, err := fs.Open(fs.Join(append(append([]string{}, path...), ignoreFile)...))
	if err == nil {
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}

		for _, s := range strings.Split(string(data), "\n") {
			s = strings.TrimRight(s, "\r")
			if !strings.HasPrefix(s, commentPrefix) && len(strings.TrimSpace(s)) > 0 {
				ps = append(ps, ParsePattern(s, path))
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return
}

// ReadPatterns reads the .git/info/exclude and then the gitignore patterns
// recursively traversing through the directory structure. The result is in
// the ascending order of priority (last higher). A directory that the
// patterns read so far ignore is not descended into, so a .gitignore below
// it cannot re-include anything.
func ReadPatterns(fs billy.Filesystem, path []string) (ps []Pattern, err error) {
	return readPatterns(fs, path, nil)
}

func readPatterns(fs billy.Filesystem, path []string, parent []Pattern) (ps []Pattern, err error) {
	ps, _ = readIgnoreFile(fs, path, filepath.Join(gitDir, "info", "exclude"))

	subps, _ := readIgnoreFile(fs, path, gitignoreFile)
	ps = append(ps, subps...)

	fis, err := fs.ReadDir(filepath.Join(path...))
	if err != nil {
		return
	}

	for _, fi := range fis {
		if fi.IsDir() && fi.Name() != gitDir {
			seen := append(append([]Pattern{}, parent...), ps...)
			sub := append(append([]string{}, path...), fi.Name())
			if NewMatcher(seen).Match(sub, true) {
				continue
			}

			var subp []Pattern
			subp, err = readPatterns(fs, sub, seen)
			if err != nil {
				return
			}

			if len(subp) > 0 {
				ps = append(ps, subp...)
			}
		}
	}

	return
}

func loadPatterns(fs billy.Filesystem, path string) (ps []Pattern, err error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	for _, s := range strings.Split(string(data), "\n") {
		s = strings.TrimRight(s, "\r")
		if !strings.HasPrefix(s, commentPrefix) && len(strings.TrimSpace(s)) > 0 {
			ps = append(ps, ParsePattern(s, nil))
		}
	}

	return
}

// excludesFilePath reads the excludesfile setting out of a gitconfig file at
// configPath, expanding a leading "~" against the current or named user.
func excludesFilePath(fs billy.Filesystem, configPath string) (string, error) {
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

	path := cfg.Section(coreSection).Option(excludesfile)
	if path == "" {
		return "", nil
	}

	return expandUser(path)
}

// LoadGlobalPatterns loads gitignore patterns from the excludesfile declared
// in the user's ~/.gitconfig, if any.
func LoadGlobalPatterns(fs billy.Filesystem) (ps []Pattern, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}

	path, err := excludesFilePath(fs, fs.Join(home, gitconfigFile))
	if err != nil || path == "" {
		return nil, err
	}

	return loadPatterns(fs, path)
}

// LoadSystemPatterns loads gitignore patterns from the excludesfile declared
// in the system's /etc/gitconfig, if any.
func LoadSystemPatterns(fs billy.Filesystem) (ps []Pattern, err error) {
	path, err := excludesFilePath(fs, systemFile)
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
