package policy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/repository"
)

func linearChain(t *testing.T, repo *repository.Memory, n int) []object.ID {
	t.Helper()
	tree, err := repo.Write(object.Tree, nil)
	require.NoError(t, err)

	ids := make([]object.ID, n)
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("tree %s\n", tree)
		if i > 0 {
			body += fmt.Sprintf("parent %s\n", ids[i-1])
		}
		body += fmt.Sprintf("author T <t@example.com> %d +0000\n", 100+i)
		body += fmt.Sprintf("committer T <t@example.com> %d +0000\n", 100+i)
		body += "\nmsg\n"
		id, err := repo.Write(object.Commit, []byte(body))
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestAdvertisedAllowsOnlyRefTips(t *testing.T) {
	repo := repository.NewMemory()
	chain := linearChain(t, repo, 3)
	repo.SetRef("refs/heads/main", chain[2])

	p := Advertised{}
	ok, err := p.Allow(repo, chain[2])
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Allow(repo, chain[1])
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReachableCommitTipAllowsAncestors(t *testing.T) {
	repo := repository.NewMemory()
	chain := linearChain(t, repo, 3)
	repo.SetRef("refs/heads/main", chain[2])

	p := NewReachableCommitTip(repo)
	for _, id := range chain {
		ok, err := p.Allow(repo, id)
		require.NoError(t, err)
		require.True(t, ok, "commit %s should be reachable from refs/heads/main", id)
	}
}

func TestReachableCommitTipDeniesUnrelatedCommit(t *testing.T) {
	repo := repository.NewMemory()
	chain := linearChain(t, repo, 2)
	repo.SetRef("refs/heads/main", chain[1])

	other := repository.NewMemory()
	otherChain := linearChain(t, other, 1)

	p := NewReachableCommitTip(repo)
	ok, err := p.Allow(repo, otherChain[0])
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAnyAllowsEverything(t *testing.T) {
	repo := repository.NewMemory()
	ok, err := Any{}.Allow(repo, object.ID{0x1})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDenyWrapsPolicyDeniedKind(t *testing.T) {
	id := object.ID{0xab}
	err := Deny(id)
	require.Error(t, err)
	require.Contains(t, err.Error(), id.String())
	require.Equal(t, giterr.KindPolicyDenied, giterr.KindOf(err))
}
