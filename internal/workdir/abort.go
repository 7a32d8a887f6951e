package workdir

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/vcsforge/gitcore/internal/statefile"
	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/plumbing/format/index"
	"github.com/vcsforge/gitcore/plumbing/object"
	"github.com/vcsforge/gitcore/plumbing/storer"
)

// AbortMerge restores fs and idx to the clean pre-merge state described
// by headTree, then clears MERGE_HEAD/MERGE_MODE/MERGE_MSG.
//
// Per path in HEAD ∪ index:
//   - any stage != 0, or index OID != HEAD OID, or workdir missing ⇒
//     restore from HEAD.
//   - in HEAD with index OID == HEAD OID but workdir differs ⇒ keep the
//     unstaged workdir change, reset the index entry to HEAD.
//   - in index but not HEAD ⇒ delete both the workdir file and the
//     index entry.
func AbortMerge(objects storer.EncodedObjectStorer, fs billy.Filesystem, idx *index.Index, headTree *object.Tree, state *statefile.Store) (*index.Index, error) {
	heads, err := treeBlobs(headTree)
	if err != nil {
		return nil, err
	}

	headModes := make(map[string]filemode.FileMode)
	if headTree != nil {
		if err := headTree.Files().ForEach(func(f *object.File) error {
			headModes[f.Name] = f.Mode
			return nil
		}); err != nil {
			return nil, err
		}
	}

	stagesByPath := make(map[string][]*index.Entry)
	if idx != nil {
		for _, e := range idx.Entries {
			stagesByPath[e.Name] = append(stagesByPath[e.Name], e)
		}
	}

	newIdx := &index.Index{Version: 2}

	for _, p := range unionPathsWithStages(heads, stagesByPath) {
		headOid, inHead := heads[p]
		stages := stagesByPath[p]

		stage0 := stageZero(stages)
		hasConflict := len(stages) > 1 || (stage0 == nil && len(stages) > 0)

		workOid, workExists, err := hashBlob(fs, p)
		if err != nil {
			return nil, err
		}

		switch {
		case inHead && (hasConflict || stage0 == nil || stage0.Hash != headOid || !workExists):
			if err := restoreFromHead(objects, fs, p, headOid, headModes[p]); err != nil {
				return nil, fmt.Errorf("abortMerge %s: %w", p, err)
			}
			if err := addIndexEntry(newIdx, fs, p, &object.File{Name: p, Mode: headModes[p], Hash: headOid}); err != nil {
				return nil, err
			}

		case inHead && stage0 != nil && stage0.Hash == headOid && workExists && workOid != headOid:
			// unstaged workdir change: preserve it, reset the index to HEAD.
			if err := addIndexEntry(newIdx, fs, p, &object.File{Name: p, Mode: headModes[p], Hash: headOid}); err != nil {
				return nil, err
			}

		case inHead:
			if err := addIndexEntry(newIdx, fs, p, &object.File{Name: p, Mode: headModes[p], Hash: headOid}); err != nil {
				return nil, err
			}

		case !inHead:
			if workExists {
				if err := fs.Remove(p); err != nil && !os.IsNotExist(err) {
					return nil, fmt.Errorf("abortMerge %s: %w", p, err)
				}
			}
			// index entry intentionally dropped by omission from newIdx.
		}
	}

	if state != nil {
		if err := state.DeleteMergeHead(); err != nil {
			return nil, err
		}
		if err := state.DeleteMergeMode(); err != nil {
			return nil, err
		}
		if err := state.DeleteMergeMsg(); err != nil {
			return nil, err
		}
	}

	return newIdx, nil
}

func stageZero(stages []*index.Entry) *index.Entry {
	for _, e := range stages {
		if e.Stage == 0 {
			return e
		}
	}

	return nil
}

func unionPathsWithStages(heads map[string]plumbing.Hash, stages map[string][]*index.Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for p := range heads {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for p := range stages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	return out
}

func restoreFromHead(objects storer.EncodedObjectStorer, fs billy.Filesystem, p string, oid plumbing.Hash, mode filemode.FileMode) error {
	return writeWorkdirEntry(objects, fs, p, &object.File{Name: p, Mode: mode, Hash: oid}, nil)
}
