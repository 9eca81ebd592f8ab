package pktline

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeString(&buf, "want deadbeef\n"))

	s := NewScanner(&buf)
	line, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, KindData, line.Kind)
	require.Equal(t, "want deadbeef\n", string(line.Payload))
}

func TestScannerDecodesControlPackets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFlush(&buf))
	require.NoError(t, WriteDelim(&buf))
	require.NoError(t, WriteResponseEnd(&buf))

	s := NewScanner(&buf)
	flush, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, KindFlush, flush.Kind)

	delim, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, KindDelim, delim.Kind)

	end, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, KindResponseEnd, end.Kind)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, make([]byte, MaxPayloadSize+1))
	require.Error(t, err)
}

func TestScannerReturnsEOFAtStreamEnd(t *testing.T) {
	s := NewScanner(strings.NewReader(""))
	_, err := s.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestMultipleLinesInOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeString(&buf, "first\n"))
	require.NoError(t, EncodeString(&buf, "second\n"))
	require.NoError(t, WriteFlush(&buf))

	s := NewScanner(&buf)
	first, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "first\n", string(first.Payload))

	second, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, "second\n", string(second.Payload))

	flush, err := s.Next()
	require.NoError(t, err)
	require.Equal(t, KindFlush, flush.Kind)
}
