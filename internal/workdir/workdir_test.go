package workdir

import (
	"testing"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/filemode"
	"github.com/vcsforge/gitcore/plumbing/object"
	"github.com/vcsforge/gitcore/plumbing/storer"
	"github.com/vcsforge/gitcore/storage/memory"
)

func putBlob(t *testing.T, st storer.EncodedObjectStorer, content string) plumbing.Hash {
	t.Helper()

	obj := st.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		t.Fatalf("blob writer: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("blob write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("blob close: %v", err)
	}

	h, err := st.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("set blob: %v", err)
	}

	return h
}

type treeFile struct {
	name string
	mode filemode.FileMode
	hash plumbing.Hash
}

func putTree(t *testing.T, st storer.EncodedObjectStorer, files []treeFile) plumbing.Hash {
	t.Helper()

	tree := &object.Tree{}
	for _, f := range files {
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: f.name, Mode: f.mode, Hash: f.hash})
	}

	obj := st.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		t.Fatalf("encode tree: %v", err)
	}

	h, err := st.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("set tree: %v", err)
	}

	return h
}

func newStorage() *memory.Storage {
	return memory.NewStorage()
}
