package capability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoundTripsThroughString(t *testing.T) {
	l := Parse("multi_ack_detailed side-band-64k agent=git/2.40.0 filter")
	require.True(t, l.Has(MultiACKDetailed))
	require.True(t, l.Has(SideBand64k))
	require.True(t, l.Has(Filter))

	agent, ok := l.Get(Agent)
	require.True(t, ok)
	require.Equal(t, "git/2.40.0", agent)
	require.Equal(t, "multi_ack_detailed side-band-64k agent=git/2.40.0 filter", l.String())
}

func TestListPreservesInsertionOrder(t *testing.T) {
	l := NewList()
	l.Add(ThinPack, "")
	l.Add(OFSDelta, "")
	l.Add(Agent, "gitpack/1.0")
	require.Equal(t, []Capability{ThinPack, OFSDelta, Agent}, l.List())
	require.Equal(t, "thin-pack ofs-delta agent=gitpack/1.0", l.String())
}

func TestSupportedIncludesAgentOnlyWhenGiven(t *testing.T) {
	require.False(t, Supported("").Has(Agent))
	require.True(t, Supported("gitpack/1.0").Has(Agent))
}
