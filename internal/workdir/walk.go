package workdir

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/format/gitignore"
	"github.com/vcsforge/gitcore/plumbing/format/index"
	"github.com/vcsforge/gitcore/plumbing/object"
)

const gitDir = ".git"

// hashBlob computes the git blob OID for the content at path in fs, or
// returns (ZeroHash, false, nil) if the path does not exist.
func hashBlob(fs billy.Filesystem, path string) (plumbing.Hash, bool, error) {
	f, err := fs.Open(path)
	if os.IsNotExist(err) {
		return plumbing.ZeroHash, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return plumbing.ZeroHash, true, err
	}

	h := plumbing.NewHasher("", plumbing.BlobObject, int64(len(data)))
	h.Write(data)
	return h.Sum(), true, nil
}

// treeBlobs returns every path in tree mapped to its blob OID.
func treeBlobs(tree *object.Tree) (map[string]plumbing.Hash, error) {
	out := make(map[string]plumbing.Hash)
	if tree == nil {
		return out, nil
	}

	iter := tree.Files()
	defer iter.Close()

	err := iter.ForEach(func(f *object.File) error {
		out[f.Name] = f.Hash
		return nil
	})

	return out, err
}

// indexBlobs returns every stage-0 path in idx mapped to its blob OID.
func indexBlobs(idx *index.Index) map[string]plumbing.Hash {
	out := make(map[string]plumbing.Hash)
	if idx == nil {
		return out
	}

	for _, e := range idx.Entries {
		if e.Stage == 0 {
			out[e.Name] = e.Hash
		}
	}

	return out
}

// unionPaths returns the sorted union of keys across the given maps.
func unionPaths(maps ...map[string]plumbing.Hash) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range maps {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	sort.Strings(out)
	return out
}

// walkWorkdir returns every file path under fs, "/"-joined and relative to
// its root, skipping .git and anything m says to ignore.
func walkWorkdir(fs billy.Filesystem, m gitignore.Matcher) ([]string, error) {
	var out []string

	var walk func(dir []string) error
	walk = func(dir []string) error {
		fis, err := fs.ReadDir(filepath.Join(dir...))
		if err != nil {
			return err
		}

		for _, fi := range fis {
			if len(dir) == 0 && fi.Name() == gitDir {
				continue
			}

			path := append(append([]string{}, dir...), fi.Name())
			if m != nil && m.Match(path, fi.IsDir()) {
				continue
			}

			if fi.IsDir() {
				if err := walk(path); err != nil {
					return err
				}
				continue
			}

			out = append(out, strings.Join(path, "/"))
		}

		return nil
	}

	if err := walk(nil); err != nil {
		return nil, err
	}

	return out, nil
}

// StatusAll computes the status label for every path in the union of
// headTree, idx, and fs, restricted to fs when tree/index disagree about
// a path's existence. Workdir paths not already covered by the head or the
// index are discovered by walking fs, honouring its gitignore patterns.
func StatusAll(fs billy.Filesystem, headTree *object.Tree, idx *index.Index) (map[string]Label, error) {
	heads, err := treeBlobs(headTree)
	if err != nil {
		return nil, err
	}

	indexed := indexBlobs(idx)

	result := make(map[string]Label)
	for _, p := range unionPaths(heads, indexed) {
		w, exists, err := hashBlob(fs, p)
		if err != nil {
			return nil, err
		}

		result[p] = Status(Triple{
			Head:         heads[p],
			Index:        indexed[p],
			Workdir:      w,
			WorkdirExist: exists,
		})
	}

	ps, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, err
	}

	paths, err := walkWorkdir(fs, gitignore.NewMatcher(ps))
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if _, ok := result[p]; ok {
			continue
		}
		result[p] = Status(Triple{WorkdirExist: true})
	}

	return result, nil
}
