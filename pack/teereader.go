package pack

import (
	"bufio"
	"io"
)

// teeCountReader wraps a pack byte stream so that every byte consumed —
// whether through Read (used by the zlib inflator) or ReadByte (used by
// the varint decoders) — is counted and mirrored to a side writer
// exactly once. The side writer is typically io.MultiWriter(sha1,
// crc32, tempPackFile): the streaming pack SHA-1, the per-object CRC
// accumulator, and the temp file the pack is being copied into.
//
// It wraps a single, long-lived *bufio.Reader rather than the raw
// input so that when the zlib reader below detects the io.ByteReader
// method and reads one byte at a time (compress/flate specifically
// looks for this to avoid over-buffering past a concatenated stream's
// boundary), any read-ahead bufio performs internally stays buffered
// here — nothing is lost between one object's inflate and the next
// object's header read.
type teeCountReader struct {
	br     *bufio.Reader
	tee    io.Writer
	offset int64
}

func newTeeCountReader(r io.Reader, tee io.Writer) *teeCountReader {
	return &teeCountReader{br: bufio.NewReaderSize(r, 32*1024), tee: tee}
}

func (t *teeCountReader) Read(p []byte) (int, error) {
	n, err := t.br.Read(p)
	if n > 0 {
		if _, werr := t.tee.Write(p[:n]); werr != nil {
			return n, werr
		}
		t.offset += int64(n)
	}
	return n, err
}

func (t *teeCountReader) ReadByte() (byte, error) {
	b, err := t.br.ReadByte()
	if err != nil {
		return 0, err
	}
	if _, werr := t.tee.Write([]byte{b}); werr != nil {
		return 0, werr
	}
	t.offset++
	return b, nil
}

// Offset returns the number of bytes consumed so far — the file
// position the next read will start at.
func (t *teeCountReader) Offset() int64 { return t.offset }
