package pack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDeltaCopyAndInsert(t *testing.T) {
	base := []byte("the quick brown fox jumps over the lazy dog")

	// delta: src size, target size, then one copy instruction covering
	// "the quick brown fox " (offset 0, size 20), followed by an insert
	// of "cat".
	const copyLen = len("the quick brown fox ")
	var delta []byte
	delta = append(delta, encodeLEB128(uint64(len(base)))...)
	target := []byte("the quick brown fox cat")
	delta = append(delta, encodeLEB128(uint64(len(target)))...)

	// copy cmd: high bit set marks a copy opcode; bit 4 set means one
	// size byte follows (offset bytes all omitted, so offset=0).
	delta = append(delta, 0x80|0x10, byte(copyLen))
	// insert cmd: length-prefixed literal "cat"
	delta = append(delta, 3, 'c', 'a', 't')

	got, err := ApplyDelta(base, delta)
	require.NoError(t, err)
	require.Equal(t, target, got)
}

func TestApplyDeltaRejectsBaseSizeMismatch(t *testing.T) {
	base := []byte("short")
	var delta []byte
	delta = append(delta, encodeLEB128(999)...)
	delta = append(delta, encodeLEB128(1)...)

	_, err := ApplyDelta(base, delta)
	require.Error(t, err)
}

func TestDeltaHeaderSizes(t *testing.T) {
	var delta []byte
	delta = append(delta, encodeLEB128(100)...)
	delta = append(delta, encodeLEB128(200)...)

	src, target, err := DeltaHeaderSizes(delta)
	require.NoError(t, err)
	require.Equal(t, uint64(100), src)
	require.Equal(t, uint64(200), target)
}
