package object

import (
	"testing"

	fixtures "github.com/go-git/go-git-fixtures/v5"
	"github.com/stretchr/testify/suite"

	"github.com/vcsforge/gitcore/plumbing"
	"github.com/vcsforge/gitcore/plumbing/cache"
	"github.com/vcsforge/gitcore/plumbing/format/packfile"
	"github.com/vcsforge/gitcore/storage/filesystem"
)

type CommitNodeSuite struct {
	suite.Suite
}

func TestCommitNodeSuite(t *testing.T) {
	suite.Run(t, new(CommitNodeSuite))
}

func (s *CommitNodeSuite) testWalker(nodeIndex CommitNodeIndex) {
	head, err := nodeIndex.Get(plumbing.NewHash("b9d69064b190e7aedccf84731ca1d917871f8a1c"))
	s.NoError(err)

	iter := NewCommitNodeIterCTime(head, nil, nil)

	var commits []CommitNode
	iter.ForEach(func(c CommitNode) error {
		commits = append(commits, c)
		return nil
	})

	expected := []string{
		"b9d69064b190e7aedccf84731ca1d917871f8a1c",
		"6f6c5d2be7852c782be1dd13e36496dd7ad39560",
		"a45273fe2d63300e1962a9e26a6b15c276cd7082",
		"c0edf780dd0da6a65a7a49a86032fcf8a0c2d467",
		"bb13916df33ed23004c3ce9ed3b8487528e655c1",
		"03d2c021ff68954cf3ef0a36825e194a4b98f981",
		"ce275064ad67d51e99f026084e20827901a8361c",
		"e713b52d7e13807e87a002e812041f248db3f643",
		"347c91919944a68e9413581a1bc15519550a3afe",
	}
	s.Len(commits, len(expected))
	for i, commit := range commits {
		s.Equal(expected[i], commit.ID().String())
	}
}

func (s *CommitNodeSuite) testParents(nodeIndex CommitNodeIndex) {
	merge3, err := nodeIndex.Get(plumbing.NewHash("6f6c5d2be7852c782be1dd13e36496dd7ad39560"))
	s.NoError(err)

	var parents []CommitNode
	merge3.ParentNodes().ForEach(func(c CommitNode) error {
		parents = append(parents, c)
		return nil
	})

	expected := []string{
		"ce275064ad67d51e99f026084e20827901a8361c",
		"bb13916df33ed23004c3ce9ed3b8487528e655c1",
		"a45273fe2d63300e1962a9e26a6b15c276cd7082",
	}
	s.Len(parents, len(expected))
	for i, parent := range parents {
		s.Equal(expected[i], parent.ID().String())
	}
}

func (s *CommitNodeSuite) TestObjectGraph() {
	f := fixtures.ByTag("commit-graph").One()
	storer := filesystem.NewStorage(f.DotGit(), cache.NewObjectLRUDefault())
	p := f.Packfile()
	defer p.Close()
	err := packfile.UpdateObjectStorage(storer, p)
	s.NoError(err)

	nodeIndex := NewObjectCommitNodeIndex(storer)
	s.testWalker(nodeIndex)
	s.testParents(nodeIndex)
}
