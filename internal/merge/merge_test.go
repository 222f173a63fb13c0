package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMergeNoopWhenAllEqual(t *testing.T) {
	base := "line one\nline two\nline three"
	res, err := Merge(strPtr(base), base, base)
	require.NoError(t, err)
	assert.False(t, res.Conflicted)
	assert.Equal(t, base, res.Content)
}

func TestMergeDisjointHunksApplyCleanly(t *testing.T) {
	base := "alpha\nbeta\ngamma\ndelta"
	local := "ALPHA\nbeta\ngamma\ndelta"
	server := "alpha\nbeta\ngamma\nDELTA"

	res, err := Merge(strPtr(base), server, local)
	require.NoError(t, err)
	assert.False(t, res.Conflicted)
	assert.Equal(t, "ALPHA\nbeta\ngamma\nDELTA", res.Content)
}

func TestMergeOverlappingHunksConflict(t *testing.T) {
	base := "alpha\nbeta\ngamma"
	local := "alpha\nLOCAL\ngamma"
	server := "alpha\nSERVER\ngamma"

	res, err := Merge(strPtr(base), server, local)
	require.NoError(t, err)
	assert.True(t, res.Conflicted)
	assert.Contains(t, res.Content, ConflictMarkerStart)
	assert.Contains(t, res.Content, "LOCAL")
	assert.Contains(t, res.Content, "SERVER")
}

func TestMergeBaseMissingDivergedConflicts(t *testing.T) {
	local := "local content"
	server := "server content"

	res, err := Merge(nil, server, local)
	require.NoError(t, err)
	assert.True(t, res.Conflicted)
}

func TestMergeBaseMissingIdenticalIsNoop(t *testing.T) {
	content := "same everywhere"
	res, err := Merge(nil, content, content)
	require.NoError(t, err)
	assert.False(t, res.Conflicted)
	assert.Equal(t, content, res.Content)
}

func TestMergeOrErrorReturnsContentError(t *testing.T) {
	base := "alpha\nbeta\ngamma"
	local := "alpha\nLOCAL\ngamma"
	server := "alpha\nSERVER\ngamma"

	_, err := MergeOrError("path-to-page", strPtr(base), server, local)
	require.Error(t, err)
}

func TestIsSameContentIgnoresTrailingWhitespace(t *testing.T) {
	assert.True(t, IsSameContent("hello\n", "hello"))
	assert.False(t, IsSameContent("hello", "world"))
}
