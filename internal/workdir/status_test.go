package workdir

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vcsforge/gitcore/plumbing"
)

var (
	oidA = plumbing.NewHash("1111111111111111111111111111111111111111")
	oidB = plumbing.NewHash("2222222222222222222222222222222222222222")
)

func TestStatusUntrackedAndAbsent(t *testing.T) {
	require.Equal(t, Absent, Status(Triple{}))
	require.Equal(t, AbsentUnstaged, Status(Triple{WorkdirExist: true}))
}

func TestStatusAddedToIndex(t *testing.T) {
	require.Equal(t, Added, Status(Triple{Index: oidA, Workdir: oidA, WorkdirExist: true}))
	require.Equal(t, AddedUnstaged, Status(Triple{Index: oidA, Workdir: oidB, WorkdirExist: true}))
	require.Equal(t, Deleted, Status(Triple{Index: oidA}))
}

func TestStatusRemovedFromHead(t *testing.T) {
	require.Equal(t, Deleted, Status(Triple{Head: oidA}))
	require.Equal(t, Undeleted, Status(Triple{Head: oidA, Workdir: oidA, WorkdirExist: true}))
	require.Equal(t, UndeletedModified, Status(Triple{Head: oidA, Workdir: oidB, WorkdirExist: true}))
	require.Equal(t, DeletedUnstaged, Status(Triple{Head: oidA, Index: oidA}))
}

func TestStatusTrackedCombinations(t *testing.T) {
	require.Equal(t, Unmodified, Status(Triple{Head: oidA, Index: oidA, Workdir: oidA, WorkdirExist: true}))
	require.Equal(t, UnmodifiedStaged, Status(Triple{Head: oidA, Index: oidB, Workdir: oidB, WorkdirExist: true}))
	require.Equal(t, Modified, Status(Triple{Head: oidA, Index: oidA, Workdir: oidB, WorkdirExist: true}))

	oidC := plumbing.NewHash("3333333333333333333333333333333333333333")
	require.Equal(t, ModifiedUnstaged, Status(Triple{Head: oidA, Index: oidB, Workdir: oidC, WorkdirExist: true}))
}
