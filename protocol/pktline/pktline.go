// Package pktline implements the length-prefixed pkt-line framing every
// Git wire message (v0/v1/v2 upload-pack, side-band multiplexing) is
// built on. Grounded on go-git's plumbing/format/pktline package.
package pktline

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"

	"gitpack/giterr"
)

const (
	// MaxPayloadSize is the largest payload a single pkt-line may carry
	// (65516 bytes of data plus the 4-byte length prefix caps the line
	// at 65520 bytes total).
	MaxPayloadSize = 65516
	lengthSize     = 4
	maxLineSize    = lengthSize + MaxPayloadSize
)

// Special zero-length control lines, encoded as just their 4-byte
// length prefix with no payload.
const (
	FlushPkt = "0000"
	DelimPkt = "0001" // protocol v2 section delimiter
	ResponseEndPkt = "0002" // protocol v2 response terminator
)

// Encode writes payload as one pkt-line. An empty payload is NOT the
// same as Flush: callers that mean flush-pkt must call WriteFlush.
func Encode(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return giterr.Wrap(giterr.KindProtocolViolation, "pkt-line payload too large: %d bytes", len(payload))
	}
	prefix := formatLength(len(payload) + lengthSize)
	if _, err := w.Write([]byte(prefix)); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// EncodeString is a convenience wrapper for text payloads, the common
// case for capability and command lines.
func EncodeString(w io.Writer, s string) error {
	return Encode(w, []byte(s))
}

// WriteFlush writes the special zero-payload flush-pkt.
func WriteFlush(w io.Writer) error {
	_, err := w.Write([]byte(FlushPkt))
	return err
}

// WriteDelim writes the protocol v2 delimiter packet.
func WriteDelim(w io.Writer) error {
	_, err := w.Write([]byte(DelimPkt))
	return err
}

// WriteResponseEnd writes the protocol v2 response-end packet.
func WriteResponseEnd(w io.Writer) error {
	_, err := w.Write([]byte(ResponseEndPkt))
	return err
}

func formatLength(n int) string {
	return fmt.Sprintf("%04x", n)
}

// LineKind classifies a decoded line for callers that need to branch on
// control vs data packets.
type LineKind int

const (
	KindData LineKind = iota
	KindFlush
	KindDelim
	KindResponseEnd
)

// Line is one decoded pkt-line: either a data payload or one of the
// control sentinels.
type Line struct {
	Kind    LineKind
	Payload []byte
}

// Scanner reads a stream of pkt-lines, one at a time.
type Scanner struct {
	r   *bufio.Reader
}

// NewScanner wraps r for pkt-line decoding.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 4096)}
}

// Next reads and decodes the next pkt-line.
func (s *Scanner) Next() (Line, error) {
	var lenBuf [lengthSize]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return Line{}, err
		}
		return Line{}, giterr.Wrap(giterr.KindTruncatedInput, "reading pkt-line length: %v", err)
	}

	n, err := parseLength(lenBuf[:])
	if err != nil {
		return Line{}, err
	}

	switch n {
	case 0:
		return Line{Kind: KindFlush}, nil
	case 1:
		return Line{Kind: KindDelim}, nil
	case 2:
		return Line{Kind: KindResponseEnd}, nil
	}
	if n < lengthSize {
		return Line{}, giterr.Wrap(giterr.KindInvalidFormat, "pkt-line length %d shorter than its own prefix", n)
	}
	if n > maxLineSize {
		return Line{}, giterr.Wrap(giterr.KindProtocolViolation, "pkt-line length %d exceeds maximum %d", n, maxLineSize)
	}

	payload := make([]byte, n-lengthSize)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return Line{}, giterr.Wrap(giterr.KindTruncatedInput, "reading pkt-line payload: %v", err)
	}
	return Line{Kind: KindData, Payload: payload}, nil
}

func parseLength(buf []byte) (int, error) {
	n, err := hex.DecodeString(string(buf))
	if err != nil {
		return 0, giterr.Wrap(giterr.KindInvalidFormat, "invalid pkt-line length %q: %v", buf, err)
	}
	return int(n[0])<<8 | int(n[1]), nil
}
