package pack

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pjbgf/sha1cd"

	"gitpack/giterr"
	"gitpack/object"
)

// idxMagic is the 4-byte marker that distinguishes a version-2+ .idx
// file from the headerless version-1 layout.
var idxMagic = [4]byte{0xff, 't', 'O', 'c'}

const idxVersion2 = 2

// largeOffsetFlag marks a 4-byte offset-table slot as an index into the
// 8-byte large-offset table rather than a direct offset, for packs
// bigger than 2GiB.
const largeOffsetFlag = 1 << 31

// EncodeIndexV2 writes idx and the pack's own trailing checksum in the
// version-2 .idx layout: magic+version, 256-entry fanout, sorted ids,
// per-object CRC32s, 4-byte offsets (overflowing into an 8-byte table),
// the pack checksum, then a SHA-1 of everything written so far.
func EncodeIndexV2(w io.Writer, idx *MemoryIndex, packChecksum object.ID) error {
	bw := bufio.NewWriter(w)
	h := sha1cd.New()
	out := io.MultiWriter(bw, h)

	if _, err := out.Write(idxMagic[:]); err != nil {
		return err
	}
	if err := writeUint32(out, idxVersion2); err != nil {
		return err
	}

	var fanout [256]uint32
	for b := 0; b < 256; b++ {
		fanout[b] = uint32(idx.Fanout(byte(b)))
	}
	for _, v := range fanout {
		if err := writeUint32(out, v); err != nil {
			return err
		}
	}

	entries := idx.Entries()
	for _, e := range entries {
		if _, err := out.Write(e.ID[:]); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := writeUint32(out, e.CRC32); err != nil {
			return err
		}
	}

	var large []int64
	for _, e := range entries {
		if e.Offset >= largeOffsetFlag {
			if err := writeUint32(out, uint32(largeOffsetFlag|uint32(len(large)))); err != nil {
				return err
			}
			large = append(large, e.Offset)
		} else {
			if err := writeUint32(out, uint32(e.Offset)); err != nil {
				return err
			}
		}
	}
	for _, off := range large {
		if err := writeUint64(out, uint64(off)); err != nil {
			return err
		}
	}

	if _, err := out.Write(packChecksum[:]); err != nil {
		return err
	}

	sum := h.Sum(nil)
	if _, err := bw.Write(sum); err != nil {
		return err
	}
	return bw.Flush()
}

// DecodedIndex is the result of parsing a version-2 .idx file.
type DecodedIndex struct {
	Entries      []Info
	PackChecksum object.ID
	IdxChecksum  object.ID
}

// DecodeIndexV2 parses a version-2 .idx file. Types are not recoverable
// from the on-disk format alone (it stores offset/CRC/id, not object
// type); callers that need Type populated must cross-reference the
// pack itself.
func DecodeIndexV2(r io.Reader) (*DecodedIndex, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading idx magic: %v", err)
	}
	if magic != idxMagic {
		return nil, giterr.Wrap(giterr.KindInvalidFormat, "not a version-2 idx file (bad magic)")
	}
	version, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	if version != idxVersion2 {
		return nil, giterr.Wrap(giterr.KindInvalidFormat, "unsupported idx version %d", version)
	}

	var fanout [256]uint32
	for i := range fanout {
		v, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		fanout[i] = v
	}
	count := int(fanout[255])

	ids := make([]object.ID, count)
	for i := range ids {
		if _, err := ids[i].ReadFrom(br); err != nil {
			return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading id %d: %v", i, err)
		}
	}

	crcs := make([]uint32, count)
	for i := range crcs {
		v, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		crcs[i] = v
	}

	rawOffsets := make([]uint32, count)
	var largeCount int
	for i := range rawOffsets {
		v, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		rawOffsets[i] = v
		if v&largeOffsetFlag != 0 {
			largeCount++
		}
	}
	large := make([]int64, largeCount)
	for i := range large {
		v, err := readUint64(br)
		if err != nil {
			return nil, err
		}
		large[i] = int64(v)
	}

	entries := make([]Info, count)
	for i := range entries {
		off := rawOffsets[i]
		var offset int64
		if off&largeOffsetFlag != 0 {
			offset = large[off&^largeOffsetFlag]
		} else {
			offset = int64(off)
		}
		entries[i] = Info{Offset: offset, CRC32: crcs[i], ID: ids[i]}
	}

	var packChecksum, idxChecksum object.ID
	if _, err := packChecksum.ReadFrom(br); err != nil {
		return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading pack checksum: %v", err)
	}
	if _, err := idxChecksum.ReadFrom(br); err != nil {
		return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading idx checksum: %v", err)
	}

	return &DecodedIndex{Entries: entries, PackChecksum: packChecksum, IdxChecksum: idxChecksum}, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, giterr.Wrap(giterr.KindTruncatedInput, "reading uint32: %v", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, giterr.Wrap(giterr.KindTruncatedInput, "reading uint64: %v", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
