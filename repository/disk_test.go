package repository

import (
	"fmt"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"gitpack/object"
)

func newDiskFixture() *Disk {
	return NewDisk(memfs.New(), ".git")
}

func TestDiskWriteReadRoundTrip(t *testing.T) {
	d := newDiskFixture()
	id, err := d.Write(object.Blob, []byte("hello disk"))
	require.NoError(t, err)

	typ, content, ok, err := d.Read(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, object.Blob, typ)
	require.Equal(t, []byte("hello disk"), content)
}

func TestDiskWriteIsIdempotent(t *testing.T) {
	d := newDiskFixture()
	id1, err := d.Write(object.Blob, []byte("same"))
	require.NoError(t, err)
	id2, err := d.Write(object.Blob, []byte("same"))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestDiskStatMissingObject(t *testing.T) {
	d := newDiskFixture()
	_, _, ok, err := d.Stat(object.ID{0xAB})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDiskRefsResolvesLooseRefAndHead(t *testing.T) {
	d := newDiskFixture()
	id, err := d.Write(object.Blob, []byte("content"))
	require.NoError(t, err)

	require.NoError(t, d.fs.MkdirAll(".git/refs/heads", 0o755))
	f, err := d.fs.Create(".git/refs/heads/main")
	require.NoError(t, err)
	_, err = fmt.Fprintln(f, id.String())
	require.NoError(t, err)
	require.NoError(t, f.Close())

	headF, err := d.fs.Create(".git/HEAD")
	require.NoError(t, err)
	_, err = fmt.Fprintln(headF, "ref: refs/heads/main")
	require.NoError(t, err)
	require.NoError(t, headF.Close())

	refs := d.Refs()
	require.Len(t, refs, 2)
	require.Equal(t, "HEAD", refs[0].Name)
	require.Equal(t, id, refs[0].ID)
	require.Equal(t, "refs/heads/main", refs[1].Name)
}

func TestDiskRefsPeelsAnnotatedTag(t *testing.T) {
	d := newDiskFixture()
	commitBody := "tree 0000000000000000000000000000000000000000\nauthor a <a@b> 1 +0000\ncommitter a <a@b> 1 +0000\n\nmsg\n"
	commitID, err := d.Write(object.Commit, []byte(commitBody))
	require.NoError(t, err)

	tagBody := fmt.Sprintf("object %s\ntype commit\ntag v1\ntagger a <a@b> 1 +0000\n\nrelease\n", commitID)
	tagID, err := d.Write(object.Tag, []byte(tagBody))
	require.NoError(t, err)

	require.NoError(t, d.fs.MkdirAll(".git/refs/tags", 0o755))
	f, err := d.fs.Create(".git/refs/tags/v1")
	require.NoError(t, err)
	_, err = fmt.Fprintln(f, tagID.String())
	require.NoError(t, err)
	require.NoError(t, f.Close())

	refs := d.Refs()
	require.Len(t, refs, 1)
	require.True(t, refs[0].Peeled)
	require.Equal(t, commitID, refs[0].PeeledID)
}

func TestDiskObjectsDir(t *testing.T) {
	d := newDiskFixture()
	require.Equal(t, ".git/objects", d.ObjectsDir())
}
