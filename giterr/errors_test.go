package giterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapIsDetectableByErrorsIs(t *testing.T) {
	err := Wrap(KindMissingBase, "object %s not found", "deadbeef")
	require.True(t, errors.Is(err, ErrMissingBase))
	require.False(t, errors.Is(err, ErrProtocolViolation))
}

func TestKindOfClassifiesWrappedError(t *testing.T) {
	err := Wrap(KindPolicyDenied, "want %s not valid", "deadbeef")
	require.Equal(t, KindPolicyDenied, KindOf(err))
}

func TestKindOfReturnsUnknownForPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestKindStringCoversEveryKind(t *testing.T) {
	kinds := []Kind{
		KindUnknown, KindTruncatedInput, KindInvalidFormat, KindChecksumMismatch,
		KindCorruptDelta, KindMissingBase, KindObjectCollision, KindProtocolViolation,
		KindPolicyDenied, KindWalkInternal, KindCancelled,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		require.NotEmpty(t, s)
		require.False(t, seen[s], "duplicate Kind.String() value %q", s)
		seen[s] = true
	}
}

func TestFatalIsTrueForAnyNonNilError(t *testing.T) {
	require.True(t, Fatal(Wrap(KindCancelled, "stopped")))
	require.False(t, Fatal(nil))
}
