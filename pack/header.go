package pack

import (
	"encoding/binary"
	"fmt"
	"io"

	"gitpack/giterr"
	"gitpack/object"
)

// Signature is the fixed 4-byte magic every pack begins with.
var Signature = [4]byte{'P', 'A', 'C', 'K'}

// Version is the pack format version carried in the header. Only 2 and
// 3 are accepted on read; this codec always writes 2.
type Version uint32

const (
	Version2 Version = 2
	Version3 Version = 3
)

// Supported reports whether v is one this codec can read.
func (v Version) Supported() bool {
	return v == Version2 || v == Version3
}

// typeCode maps an object.Type to its on-the-wire 3-bit code.
func typeCode(t object.Type) (byte, error) {
	switch t {
	case object.Commit:
		return 1, nil
	case object.Tree:
		return 2, nil
	case object.Blob:
		return 3, nil
	case object.Tag:
		return 4, nil
	case object.OfsDelta:
		return 6, nil
	case object.RefDelta:
		return 7, nil
	default:
		return 0, giterr.Wrap(giterr.KindInvalidFormat, "unknown object type %v", t)
	}
}

// typeFromCode is the inverse of typeCode.
func typeFromCode(code byte) (object.Type, error) {
	switch code {
	case 1:
		return object.Commit, nil
	case 2:
		return object.Tree, nil
	case 3:
		return object.Blob, nil
	case 4:
		return object.Tag, nil
	case 6:
		return object.OfsDelta, nil
	case 7:
		return object.RefDelta, nil
	default:
		return object.Bad, giterr.Wrap(giterr.KindInvalidFormat, "invalid object type code %d", code)
	}
}

// Header is the fixed 12-byte pack preamble: magic, version, object
// count.
type Header struct {
	Version    Version
	ObjectsQty uint32
}

// WriteHeader writes the 12-byte pack header to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [12]byte
	copy(buf[0:4], Signature[:])
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.Version))
	binary.BigEndian.PutUint32(buf[8:12], h.ObjectsQty)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads and validates the 12-byte pack header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return Header{}, giterr.Wrap(giterr.KindTruncatedInput, "short pack header: %v", err)
		}
		return Header{}, err
	}
	if string(buf[0:4]) != string(Signature[:]) {
		return Header{}, giterr.Wrap(giterr.KindInvalidFormat, "bad pack signature %q", buf[0:4])
	}
	v := Version(binary.BigEndian.Uint32(buf[4:8]))
	if !v.Supported() {
		return Header{}, giterr.Wrap(giterr.KindInvalidFormat, "unsupported pack version %d", v)
	}
	return Header{
		Version:    v,
		ObjectsQty: binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

// rewriteObjectsQty patches the object-count field of an already
// written header in place, used by thin-pack completion after synthetic
// bases are appended.
func rewriteObjectsQty(buf []byte, qty uint32) error {
	if len(buf) < 12 || string(buf[0:4]) != string(Signature[:]) {
		return fmt.Errorf("pack: not a valid header to rewrite")
	}
	binary.BigEndian.PutUint32(buf[8:12], qty)
	return nil
}
