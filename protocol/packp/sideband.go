package packp

import (
	"io"

	"gitpack/giterr"
	"gitpack/protocol/pktline"
)

// Channel identifies which sideband stream a multiplexed packet
// belongs to, matching real Git's side-band channel numbering.
type Channel byte

const (
	PackData        Channel = 1
	ProgressMessage Channel = 2
	ErrorMessage    Channel = 3
)

// Mode selects which side-band capability was negotiated, which in
// turn sets the maximum packet size.
type Mode int

const (
	Sideband Mode = iota
	Sideband64k
)

const (
	// MaxPackedSize is the largest pkt-line payload (channel byte plus
	// data) the plain "side-band" capability allows.
	MaxPackedSize = 1000
	// MaxPackedSize64k is the same limit under "side-band-64k": the
	// largest pkt-line payload, which with the 4-byte length prefix
	// makes a 65520-byte line.
	MaxPackedSize64k = pktline.MaxPayloadSize
)

// Muxer writes PackData in a side-band channel byte ahead of every
// pkt-line, chunking arbitrarily large writes to fit the negotiated
// packet size. Grounded on the wire shape go-git's
// packp/sideband.Muxer tests assert byte-for-byte; no source file for
// that package survived retrieval, so the implementation here is
// written fresh against those assertions.
type Muxer struct {
	w   io.Writer
	cap int // data bytes per packet, not counting the channel byte
}

// NewMuxer returns a Muxer for the given negotiated mode.
func NewMuxer(mode Mode, w io.Writer) *Muxer {
	max := MaxPackedSize
	if mode == Sideband64k {
		max = MaxPackedSize64k
	}
	return &Muxer{w: w, cap: max - 1}
}

// Write sends p on the PackData channel, splitting it across as many
// packets as needed. It satisfies io.Writer so a Muxer can stand in
// directly for the Pack Writer's output.
func (m *Muxer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > m.cap {
			chunk = chunk[:m.cap]
		}
		if _, err := m.WriteChannel(PackData, chunk); err != nil {
			return written, err
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// WriteChannel writes p as exactly one packet on ch, unchunked; the
// caller is responsible for keeping p within the negotiated cap (true
// in practice for progress/error messages, which are always short).
func (m *Muxer) WriteChannel(ch Channel, p []byte) (int, error) {
	payload := make([]byte, 0, len(p)+1)
	payload = append(payload, byte(ch))
	payload = append(payload, p...)
	if err := pktline.Encode(m.w, payload); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Demuxer reads a side-band multiplexed stream back apart: PackData
// bytes satisfy Read, ProgressMessage bytes are forwarded to an
// optional progress sink, and a single ErrorMessage packet ends the
// stream with an error.
type Demuxer struct {
	s        *pktline.Scanner
	progress io.Writer
	pending  []byte
}

// NewDemuxer wraps r for side-band decoding. progress may be nil to
// discard progress messages.
func NewDemuxer(r io.Reader, progress io.Writer) *Demuxer {
	return &Demuxer{s: pktline.NewScanner(r), progress: progress}
}

// Read implements io.Reader over the PackData channel.
func (d *Demuxer) Read(p []byte) (int, error) {
	for len(d.pending) == 0 {
		line, err := d.s.Next()
		if err != nil {
			return 0, err
		}
		if line.Kind == pktline.KindFlush {
			return 0, io.EOF
		}
		if line.Kind != pktline.KindData {
			return 0, giterr.Wrap(giterr.KindProtocolViolation, "unexpected control packet in side-band stream")
		}
		if len(line.Payload) == 0 {
			return 0, giterr.Wrap(giterr.KindProtocolViolation, "empty side-band packet")
		}

		ch := Channel(line.Payload[0])
		data := line.Payload[1:]
		switch ch {
		case PackData:
			d.pending = data
		case ProgressMessage:
			if d.progress != nil {
				d.progress.Write(data)
			}
			continue
		case ErrorMessage:
			return 0, giterr.Wrap(giterr.KindProtocolViolation, "remote error: %s", data)
		default:
			return 0, giterr.Wrap(giterr.KindProtocolViolation, "unknown side-band channel %d", ch)
		}
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}
