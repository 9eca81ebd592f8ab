package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitpack/object"
)

func TestMemoryWriteReadRoundTrip(t *testing.T) {
	m := NewMemory()
	id, err := m.Write(object.Blob, []byte("hello"))
	require.NoError(t, err)

	typ, content, ok, err := m.Read(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, object.Blob, typ)
	require.Equal(t, []byte("hello"), content)
}

func TestMemoryWriteIsIdempotent(t *testing.T) {
	m := NewMemory()
	id1, err := m.Write(object.Blob, []byte("same"))
	require.NoError(t, err)
	id2, err := m.Write(object.Blob, []byte("same"))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestMemoryStatMissingObject(t *testing.T) {
	m := NewMemory()
	_, _, ok, err := m.Stat(object.ID{0x1})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryRefsOrdersHeadFirstThenSorted(t *testing.T) {
	m := NewMemory()
	a, err := m.Write(object.Blob, []byte("a"))
	require.NoError(t, err)
	b, err := m.Write(object.Blob, []byte("b"))
	require.NoError(t, err)

	m.SetRef("refs/heads/zeta", a)
	m.SetRef("refs/heads/alpha", b)
	m.SetRef("HEAD", a)

	refs := m.Refs()
	require.Len(t, refs, 3)
	require.Equal(t, "HEAD", refs[0].Name)
	require.Equal(t, "refs/heads/alpha", refs[1].Name)
	require.Equal(t, "refs/heads/zeta", refs[2].Name)
}

func TestMemorySetPeeledRefReportsPeel(t *testing.T) {
	m := NewMemory()
	commitID, err := m.Write(object.Commit, []byte("tree 0000000000000000000000000000000000000000\nauthor a <a@b> 1 +0000\ncommitter a <a@b> 1 +0000\n\nmsg\n"))
	require.NoError(t, err)
	tagID, err := m.Write(object.Tag, []byte("tag body"))
	require.NoError(t, err)

	m.SetPeeledRef("refs/tags/v1", tagID, commitID)

	refs := m.Refs()
	require.Len(t, refs, 1)
	require.True(t, refs[0].Peeled)
	require.Equal(t, commitID, refs[0].PeeledID)
	require.Equal(t, tagID, refs[0].ID)
}
