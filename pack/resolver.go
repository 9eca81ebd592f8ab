package pack

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"gitpack/giterr"
	"gitpack/object"
)

// resolvePack is pass two of the indexing algorithm. It walks the
// delta chains discovered during scanning, resolving each one against
// its now-available base and emitting a fully resolved Info for it.
//
// pack must let us re-read raw bytes at arbitrary offsets — the temp
// pack file pass one wrote to, reopened for random access.
func resolvePack(pack io.ReaderAt, res *scanResult, collide CollisionChecker, progress ProgressSink, cancel func() bool) ([]Info, error) {
	resolved := make([]Info, 0, len(res.Whole)+res.NDeltas)
	offsetContent := make(map[int64][]byte, len(res.Whole))
	typeByOffset := make(map[int64]object.Type, len(res.Whole))

	type ready struct {
		offset int64
		id     object.ID
	}
	var queue []ready

	for _, w := range res.Whole {
		resolved = append(resolved, w.Info)
		offsetContent[w.Offset] = w.content
		typeByOffset[w.Offset] = w.Type
		queue = append(queue, ready{w.Offset, w.ID})
	}

	done := 0
	total := res.NDeltas
	hasher := object.NewHasher()

	for len(queue) > 0 {
		if cancel != nil && cancel() {
			return nil, giterr.Wrap(giterr.KindCancelled, "resolution cancelled after %d/%d deltas", done, total)
		}

		base := queue[0]
		queue = queue[1:]

		children := res.Chains.childrenOf(base.offset, base.id)
		baseContent := offsetContent[base.offset]
		typ := typeByOffset[base.offset]

		for _, child := range children {
			content, crc, err := reopenAndApply(pack, child, baseContent)
			if err != nil {
				return nil, err
			}

			id := hasher.Compute(typ, content)
			if collide != nil {
				if err := collide.Verify(id, typ, content); err != nil {
					return nil, err
				}
			}

			info := Info{Offset: child.offset, CRC32: crc, ID: id, Type: typ, Size: int64(len(content))}
			resolved = append(resolved, info)
			offsetContent[child.offset] = content
			typeByOffset[child.offset] = typ
			queue = append(queue, ready{child.offset, id})

			done++
			progress.ObjectsResolved(done, total)
		}

		// No further children will ever be discovered for this base
		// (the chain maps are fully populated after pass one), so its
		// content can be freed once drained.
		delete(offsetContent, base.offset)
		delete(typeByOffset, base.offset)
	}

	return resolved, nil
}

func reopenAndApply(pack io.ReaderAt, child pendingDelta, base []byte) ([]byte, uint32, error) {
	sr := io.NewSectionReader(pack, child.offset, 1<<62)
	crcHash := crc32.NewIEEE()
	cr := newTeeCountReader(sr, crcHash)

	first, err := cr.ReadByte()
	if err != nil {
		return nil, 0, giterr.Wrap(giterr.KindTruncatedInput, "re-reading delta header at %d: %v", child.offset, err)
	}
	typCode, _, _ := splitTypeAndSize(first)
	typ, err := typeFromCode(typCode)
	if err != nil {
		return nil, 0, err
	}
	size, err := readObjectSize(first, cr)
	if err != nil {
		return nil, 0, err
	}

	switch typ {
	case object.OfsDelta:
		if _, err := readOfsDeltaOffset(cr); err != nil {
			return nil, 0, err
		}
	case object.RefDelta:
		var discard object.ID
		if _, err := discard.ReadFrom(cr); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, giterr.Wrap(giterr.KindInvalidFormat, "object at %d is not a delta on re-read", child.offset)
	}

	zr, err := zlib.NewReader(cr)
	if err != nil {
		return nil, 0, giterr.Wrap(giterr.KindCorruptDelta, "zlib open on re-read: %v", err)
	}
	defer zr.Close()

	buf := &growBuffer{buf: make([]byte, 0, size)}
	n, err := io.Copy(buf, zr)
	if err != nil {
		return nil, 0, giterr.Wrap(giterr.KindCorruptDelta, "zlib inflate on re-read: %v", err)
	}
	if uint64(n) != size {
		return nil, 0, giterr.Wrap(giterr.KindCorruptDelta, "delta re-read size mismatch: got %d want %d", n, size)
	}

	crcSum := crcHash.Sum32()
	if crcSum != child.headerCRC {
		return nil, 0, giterr.Wrap(giterr.KindChecksumMismatch, "CRC mismatch re-reading object at %d: had %08x now %08x", child.offset, child.headerCRC, crcSum)
	}

	content, err := ApplyDelta(base, buf.buf)
	if err != nil {
		return nil, 0, err
	}
	return content, crcSum, nil
}
