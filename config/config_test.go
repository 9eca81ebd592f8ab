package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesRealGitDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, 10, c.Pack.Window)
	require.Equal(t, 50, c.Pack.Depth)
	require.Equal(t, 0, c.Pack.Threads)
	require.False(t, c.Transfer.FsckObjects)
}

func TestParseOverridesDefaults(t *testing.T) {
	text := "[pack]\n\twindow = 20\n\tdepth = 100\n[transfer]\n\tfsckObjects = true\n"
	c, err := Parse(text)
	require.NoError(t, err)
	require.Equal(t, 20, c.Pack.Window)
	require.Equal(t, 100, c.Pack.Depth)
	require.True(t, c.Transfer.FsckObjects)
	require.Equal(t, 0, c.Pack.Threads) // untouched key keeps its default
}

func TestParseRejectsMalformedINI(t *testing.T) {
	_, err := Parse("[pack\nwindow = 20\n")
	require.Error(t, err)
}
