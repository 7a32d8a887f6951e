package revision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlainRef(t *testing.T) {
	rev, err := Parse("main")
	require.NoError(t, err)
	require.Equal(t, &Revision{Ref: "main"}, rev)
}

func TestParseParentWalkWithCount(t *testing.T) {
	rev, err := Parse("main~2")
	require.NoError(t, err)
	require.Equal(t, "main", rev.Ref)
	require.Equal(t, 2, rev.Parents)
	require.Nil(t, rev.Reflog)
}

func TestParseParentWalkCaretRun(t *testing.T) {
	rev, err := Parse("main^^")
	require.NoError(t, err)
	require.Equal(t, "main", rev.Ref)
	require.Equal(t, 2, rev.Parents)
}

func TestParseReflogSelector(t *testing.T) {
	rev, err := Parse("main@{1}")
	require.NoError(t, err)
	require.Equal(t, "main", rev.Ref)
	require.NotNil(t, rev.Reflog)
	require.Equal(t, 1, *rev.Reflog)
}

func TestParseReflogTimeSelectorUnsupported(t *testing.T) {
	_, err := Parse("main@{1.day.ago}")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestParseRefWithDigitsNoOperator(t *testing.T) {
	rev, err := Parse("release-2")
	require.NoError(t, err)
	require.Equal(t, &Revision{Ref: "release-2"}, rev)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	require.ErrorIs(t, err, ErrInvalidRevision)
}
