package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIDRoundTripsThroughString(t *testing.T) {
	const hex = "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"
	id, err := ParseID(hex)
	require.NoError(t, err)
	require.Equal(t, hex, id.String())
}

func TestParseIDRejectsBadLength(t *testing.T) {
	_, err := ParseID("deadbeef")
	require.Error(t, err)
}

func TestIDIsZero(t *testing.T) {
	require.True(t, ZeroID.IsZero())
	id := NewID("3b18e512dba79e4c8300dd08aeb37f8e728b8dad")
	require.False(t, id.IsZero())
}

func TestSortOrdersBytewise(t *testing.T) {
	a := NewID("0000000000000000000000000000000000000001")
	b := NewID("0000000000000000000000000000000000000002")
	ids := []ID{b, a}
	Sort(ids)
	require.Equal(t, []ID{a, b}, ids)
	require.True(t, IsSorted(ids))
}

func TestIsSortedDetectsDuplicate(t *testing.T) {
	a := NewID("0000000000000000000000000000000000000001")
	require.False(t, IsSorted([]ID{a, a}))
}

func TestSetMembership(t *testing.T) {
	a := NewID("0000000000000000000000000000000000000001")
	b := NewID("0000000000000000000000000000000000000002")
	s := NewSet(a)
	require.True(t, s.Has(a))
	require.False(t, s.Has(b))

	s.Add(b)
	require.True(t, s.Has(b))
	require.ElementsMatch(t, []ID{a, b}, s.Slice())

	s.Remove(a)
	require.False(t, s.Has(a))
}
