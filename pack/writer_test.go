package pack

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"gitpack/object"
	"gitpack/repository"
)

type noopCollide struct{}

func (noopCollide) Verify(object.ID, object.Type, []byte) error { return nil }

func buildTreeEntry(mode, name string, id object.ID) []byte {
	var buf bytes.Buffer
	buf.WriteString(mode)
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.Write(id[:])
	return buf.Bytes()
}

// seedRepo builds one commit (with the given blob content and commit
// time) whose tree contains a single blob, and returns (commitID,
// treeID, blobID).
func seedRepo(t *testing.T, repo *repository.Memory, blobContent string, when int64) (object.ID, object.ID, object.ID) {
	t.Helper()
	blobID, err := repo.Write(object.Blob, []byte(blobContent))
	require.NoError(t, err)

	treeID, err := repo.Write(object.Tree, buildTreeEntry("100644", "file.txt", blobID))
	require.NoError(t, err)

	body := fmt.Sprintf("tree %s\n", treeID)
	body += fmt.Sprintf("author T <t@example.com> %d +0000\n", when)
	body += fmt.Sprintf("committer T <t@example.com> %d +0000\n", when)
	body += "\nmsg\n"
	commitID, err := repo.Write(object.Commit, []byte(body))
	require.NoError(t, err)

	return commitID, treeID, blobID
}

func TestWriterProducesRoundTrippablePack(t *testing.T) {
	repo := repository.NewMemory()
	commitID, treeID, blobID := seedRepo(t, repo, "hello world", 100)
	repo.SetRef("refs/heads/main", commitID)

	w := NewWriter(repo)
	var buf bytes.Buffer
	result, err := w.Write(&buf, WriteRequest{Wants: []object.ID{commitID}})
	require.NoError(t, err)
	require.Equal(t, 3, result.ObjectCount)

	res, err := scanPack(bytes.NewReader(buf.Bytes()), io.Discard, noopCollide{}, NoopProgress, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(3), res.Header.ObjectsQty)
	require.Equal(t, result.Footer, res.Footer)

	ids := make(map[object.ID]object.Type, len(res.Whole))
	for _, wh := range res.Whole {
		ids[wh.ID] = wh.Type
	}
	require.Equal(t, object.Commit, ids[commitID])
	require.Equal(t, object.Tree, ids[treeID])
	require.Equal(t, object.Blob, ids[blobID])
}

func TestWriterExcludesCommonHistory(t *testing.T) {
	repo := repository.NewMemory()
	base, _, _ := seedRepo(t, repo, "base content", 100)

	tree2, err := repo.Write(object.Tree, buildTreeEntry("100644", "file.txt", mustBlob(t, repo, "child content")))
	require.NoError(t, err)
	body := fmt.Sprintf("tree %s\nparent %s\n", tree2, base)
	body += "author T <t@example.com> 200 +0000\ncommitter T <t@example.com> 200 +0000\n\nmsg\n"
	child, err := repo.Write(object.Commit, []byte(body))
	require.NoError(t, err)

	w := NewWriter(repo)
	var buf bytes.Buffer
	result, err := w.Write(&buf, WriteRequest{Wants: []object.ID{child}, Haves: []object.ID{base}})
	require.NoError(t, err)
	// child commit + its tree + its blob, but not base's commit/tree/blob.
	require.Equal(t, 3, result.ObjectCount)
}

func mustBlob(t *testing.T, repo *repository.Memory, content string) object.ID {
	t.Helper()
	id, err := repo.Write(object.Blob, []byte(content))
	require.NoError(t, err)
	return id
}

func TestWriterBlobNoneFilterDropsBlobsButKeepsTrees(t *testing.T) {
	repo := repository.NewMemory()
	commitID, treeID, blobID := seedRepo(t, repo, "filtered out", 100)

	w := NewWriter(repo)
	var buf bytes.Buffer
	result, err := w.Write(&buf, WriteRequest{Wants: []object.ID{commitID}, Filter: Filter{Kind: FilterBlobNone}})
	require.NoError(t, err)
	require.Equal(t, 2, result.ObjectCount) // commit + tree, blob dropped

	res, err := scanPack(bytes.NewReader(buf.Bytes()), io.Discard, noopCollide{}, NoopProgress, nil)
	require.NoError(t, err)
	found := make(map[object.ID]bool)
	for _, wh := range res.Whole {
		found[wh.ID] = true
	}
	require.True(t, found[treeID])
	require.False(t, found[blobID])
}

func TestWriterIncludeTagPullsInAnnotatedTag(t *testing.T) {
	repo := repository.NewMemory()
	commitID, _, _ := seedRepo(t, repo, "tagged release", 100)

	tagBody := fmt.Sprintf("object %s\ntype commit\ntag v1\ntagger T <t@example.com> 100 +0000\n\nrelease\n", commitID)
	tagID, err := repo.Write(object.Tag, []byte(tagBody))
	require.NoError(t, err)
	repo.SetPeeledRef("refs/tags/v1", tagID, commitID)

	w := NewWriter(repo)
	var buf bytes.Buffer
	_, err = w.Write(&buf, WriteRequest{Wants: []object.ID{commitID}, IncludeTag: true})
	require.NoError(t, err)

	res, err := scanPack(bytes.NewReader(buf.Bytes()), io.Discard, noopCollide{}, NoopProgress, nil)
	require.NoError(t, err)
	found := make(map[object.ID]bool)
	for _, wh := range res.Whole {
		found[wh.ID] = true
	}
	require.True(t, found[tagID])
}
