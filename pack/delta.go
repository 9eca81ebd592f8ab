package pack

import (
	"bytes"
	"io"

	"gitpack/giterr"
)

// maxCopySize is the implicit copy length when the size subfield of a
// copy instruction is entirely zero (the size bytes are all omitted).
const maxCopySize = 0x10000

// deltaOffsetMasks/deltaSizeMasks describe which of the (up to four and
// three, respectively) optional bytes follow a copy instruction's
// opcode, one bit per byte; decodeCopyArgs below reads them.
var deltaOffsetMasks = [4]byte{0x01, 0x02, 0x04, 0x08}
var deltaSizeMasks = [3]byte{0x10, 0x20, 0x40}

// ApplyDelta reconstructs an object by applying delta's copy/insert
// instructions to base. It returns the expanded buffer, whose length
// must equal the target size declared in the delta header.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	r := bytes.NewReader(delta)

	srcSize, err := decodeLEB128(r)
	if err != nil {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "reading delta source size: %v", err)
	}
	if srcSize != uint64(len(base)) {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "delta base size mismatch: want %d have %d", srcSize, len(base))
	}

	targetSize, err := decodeLEB128(r)
	if err != nil {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "reading delta target size: %v", err)
	}

	dst := make([]byte, 0, targetSize)
	for uint64(len(dst)) < targetSize {
		cmd, err := r.ReadByte()
		if err != nil {
			return nil, giterr.Wrap(giterr.KindCorruptDelta, "delta ended early: %v", err)
		}

		switch {
		case cmd&maskContinue != 0: // copy from base
			offset, size, err := decodeCopyArgs(cmd, r)
			if err != nil {
				return nil, err
			}
			if size == 0 {
				size = maxCopySize
			}
			end := offset + size
			if end < offset || end > uint64(len(base)) {
				return nil, giterr.Wrap(giterr.KindCorruptDelta, "copy instruction out of range: offset=%d size=%d base=%d", offset, size, len(base))
			}
			if uint64(len(dst))+size > targetSize {
				return nil, giterr.Wrap(giterr.KindCorruptDelta, "copy instruction overruns target size")
			}
			dst = append(dst, base[offset:end]...)

		case cmd != 0: // insert cmd literal bytes from the delta stream
			size := int(cmd)
			if uint64(len(dst))+uint64(size) > targetSize {
				return nil, giterr.Wrap(giterr.KindCorruptDelta, "insert instruction overruns target size")
			}
			lit := make([]byte, size)
			if _, err := io.ReadFull(r, lit); err != nil {
				return nil, giterr.Wrap(giterr.KindCorruptDelta, "delta insert ran out of bytes: %v", err)
			}
			dst = append(dst, lit...)

		default:
			return nil, giterr.Wrap(giterr.KindCorruptDelta, "zero delta opcode")
		}
	}

	if uint64(len(dst)) != targetSize {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "delta produced %d bytes, wanted %d", len(dst), targetSize)
	}
	return dst, nil
}

// decodeCopyArgs reads the variable offset/size subfields that follow a
// copy opcode, per the bit layout in the command byte.
func decodeCopyArgs(cmd byte, r *bytes.Reader) (offset, size uint64, err error) {
	for i, mask := range deltaOffsetMasks {
		if cmd&mask != 0 {
			b, err := r.ReadByte()
			if err != nil {
				return 0, 0, giterr.Wrap(giterr.KindCorruptDelta, "reading copy offset: %v", err)
			}
			offset |= uint64(b) << (8 * i)
		}
	}
	for i, mask := range deltaSizeMasks {
		if cmd&mask != 0 {
			b, err := r.ReadByte()
			if err != nil {
				return 0, 0, giterr.Wrap(giterr.KindCorruptDelta, "reading copy size: %v", err)
			}
			size |= uint64(b) << (8 * i)
		}
	}
	return offset, size, nil
}

// DeltaHeaderSizes returns the (source size, target size) declared at
// the start of a delta instruction stream, without applying it. Used
// by the resolver to size output buffers ahead of time and by tests.
func DeltaHeaderSizes(delta []byte) (src, target uint64, err error) {
	r := bytes.NewReader(delta)
	src, err = decodeLEB128(r)
	if err != nil {
		return 0, 0, err
	}
	target, err = decodeLEB128(r)
	return src, target, err
}
