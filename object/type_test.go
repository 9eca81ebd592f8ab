package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeStringRoundTripsThroughParseType(t *testing.T) {
	for _, typ := range []Type{Commit, Tree, Blob, Tag} {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
}

func TestParseTypeRejectsUnknown(t *testing.T) {
	_, err := ParseType("bogus")
	require.Error(t, err)
}

func TestIsDelta(t *testing.T) {
	require.True(t, OfsDelta.IsDelta())
	require.True(t, RefDelta.IsDelta())
	require.False(t, Blob.IsDelta())
}

func TestStorableExcludesDeltasAndBad(t *testing.T) {
	require.True(t, Commit.Storable())
	require.True(t, Tree.Storable())
	require.True(t, Blob.Storable())
	require.True(t, Tag.Storable())
	require.False(t, OfsDelta.Storable())
	require.False(t, RefDelta.Storable())
	require.False(t, Bad.Storable())
}

func TestValidAcceptsDeltaCodes(t *testing.T) {
	require.True(t, OfsDelta.Valid())
	require.True(t, RefDelta.Valid())
	require.False(t, Bad.Valid())
}
