package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestComputeIDMatchesRealGit checks against the well-known
// `echo hello world | git hash-object --stdin` blob id.
func TestComputeIDMatchesRealGit(t *testing.T) {
	id := ComputeID(Blob, []byte("hello world\n"))
	require.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", id.String())
}

func TestComputeIDDependsOnDeclaredType(t *testing.T) {
	blob := ComputeID(Blob, []byte("same content"))
	tree := ComputeID(Tree, []byte("same content"))
	require.NotEqual(t, blob, tree)
}

func TestHasherResetAllowsReuse(t *testing.T) {
	h := NewHasher()
	first := h.Compute(Blob, []byte("a"))
	second := h.Compute(Blob, []byte("b"))
	require.NotEqual(t, first, second)
	require.Equal(t, ComputeID(Blob, []byte("a")), first)
}
