package pack

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pjbgf/sha1cd"

	"gitpack/giterr"
	"gitpack/object"
)

// wholeObject is a fully inflated, hashed, whole (non-delta) object
// produced by pass one of the scan. Its content is kept in memory so
// that pass two can use it as a delta base without re-reading the pack.
type wholeObject struct {
	Info
	content []byte
}

// scanResult is everything pass one produces: the header, the set of
// immediately-resolved whole objects, the still-unresolved delta chains,
// and the footer checksum read at the end of the stream.
type scanResult struct {
	Header  Header
	Whole   []wholeObject
	Chains  *deltaChains
	NDeltas int
	Footer  object.ID
	// PackLen is the number of bytes written to out, i.e. everything up
	// to but not including the footer.
	PackLen int64
}

// ProgressSink receives coarse progress updates during indexing; both
// methods may be called with total == 0 if the count is not yet known.
type ProgressSink interface {
	ObjectsIndexed(done, total int)
	ObjectsResolved(done, total int)
}

// noopProgress discards every update.
type noopProgress struct{}

func (noopProgress) ObjectsIndexed(int, int)  {}
func (noopProgress) ObjectsResolved(int, int) {}

// NoopProgress is the ProgressSink used when the caller doesn't want
// progress reporting.
var NoopProgress ProgressSink = noopProgress{}

// scanPack runs pass one of the indexing algorithm: it streams r object
// by object, writing every consumed byte to out (a temp pack file) and
// into the streaming pack SHA-1. Whole objects are inflated, hashed and
// checked for collisions immediately; deltas are inflated and
// discarded, recorded only as pending chain members.
//
// cancel, if non-nil, is polled between objects; a true value aborts
// with giterr.ErrCancelled.
func scanPack(r io.Reader, out io.Writer, collide CollisionChecker, progress ProgressSink, cancel func() bool) (*scanResult, error) {
	packHash := sha1cd.New()
	crc := crc32.NewIEEE()
	src := newTeeCountReader(r, io.MultiWriter(packHash, crc, out))

	header, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}

	res := &scanResult{Header: header, Chains: newDeltaChains()}
	hasher := object.NewHasher()

	for i := uint32(0); i < header.ObjectsQty; i++ {
		if cancel != nil && cancel() {
			return nil, giterr.Wrap(giterr.KindCancelled, "indexing cancelled after %d/%d objects", i, header.ObjectsQty)
		}

		crc.Reset()
		offset := src.Offset()

		first, err := src.ReadByte()
		if err != nil {
			return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading object %d header: %v", i, err)
		}
		typCode, _, _ := splitTypeAndSize(first)
		typ, err := typeFromCode(typCode)
		if err != nil {
			return nil, err
		}
		size, err := readObjectSize(first, src)
		if err != nil {
			return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading object %d size: %v", i, err)
		}

		var base baseRef
		switch typ {
		case object.OfsDelta:
			rel, err := readOfsDeltaOffset(src)
			if err != nil {
				return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading ofs-delta offset: %v", err)
			}
			anchor := offset - int64(rel)
			if anchor < int64(len(Signature)+8) || anchor >= offset {
				return nil, giterr.Wrap(giterr.KindCorruptDelta, "ofs-delta base %d out of range (object at %d)", anchor, offset)
			}
			base = ofsBase(anchor)
		case object.RefDelta:
			var id object.ID
			if _, err := id.ReadFrom(src); err != nil {
				return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading ref-delta base id: %v", err)
			}
			base = refBase(id)
		}

		if typ.IsDelta() {
			if err := inflateDiscard(src, int64(size)); err != nil {
				return nil, err
			}
			res.Chains.add(pendingDelta{offset: offset, headerCRC: crc.Sum32(), base: base})
			res.NDeltas++
		} else {
			content, err := inflateToMemory(src, int64(size))
			if err != nil {
				return nil, err
			}
			id := hasher.Compute(typ, content)
			if collide != nil {
				if err := collide.Verify(id, typ, content); err != nil {
					return nil, err
				}
			}
			res.Whole = append(res.Whole, wholeObject{
				Info: Info{
					Offset: offset,
					CRC32:  crc.Sum32(),
					ID:     id,
					Type:   typ,
					Size:   int64(size),
				},
				content: content,
			})
		}

		progress.ObjectsIndexed(int(i)+1, int(header.ObjectsQty))
	}

	res.PackLen = src.Offset()

	// Sum before reading the footer: the footer bytes pass through the
	// same tee and must not be part of the hash they are checked against.
	sum := packHash.Sum(nil)
	var footer object.ID
	if _, err := footer.ReadFrom(src); err != nil {
		return nil, giterr.Wrap(giterr.KindTruncatedInput, "reading pack footer: %v", err)
	}
	var actual object.ID
	copy(actual[:], sum)
	if actual != footer {
		return nil, giterr.Wrap(giterr.KindChecksumMismatch, "pack footer %s does not match computed %s", footer, actual)
	}
	res.Footer = footer

	return res, nil
}

// CollisionChecker is consulted once per whole object hashed during
// scanning: the caller's local object store, used only to detect a
// same-id-different-bytes collision. Absence of the id is not an
// error; implementations should return nil in that case.
type CollisionChecker interface {
	Verify(id object.ID, typ object.Type, content []byte) error
}

func inflateToMemory(r io.Reader, declaredSize int64) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "zlib open: %v", err)
	}
	defer zr.Close()

	buf := make([]byte, 0, declaredSize)
	w := &growBuffer{buf: buf}
	n, err := io.Copy(w, zr)
	if err != nil {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "zlib inflate: %v", err)
	}
	if n != declaredSize {
		return nil, giterr.Wrap(giterr.KindCorruptDelta, "inflated %d bytes, declared size was %d", n, declaredSize)
	}
	return w.buf, nil
}

func inflateDiscard(r io.Reader, declaredSize int64) error {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return giterr.Wrap(giterr.KindCorruptDelta, "zlib open: %v", err)
	}
	defer zr.Close()

	n, err := io.Copy(io.Discard, zr)
	if err != nil {
		return giterr.Wrap(giterr.KindCorruptDelta, "zlib inflate: %v", err)
	}
	if n != declaredSize {
		return giterr.Wrap(giterr.KindCorruptDelta, "inflated %d bytes, declared size was %d", n, declaredSize)
	}
	return nil
}

// growBuffer is a minimal io.Writer over a pre-sized byte slice, used
// instead of bytes.Buffer to avoid its extra accounting when we already
// know the target size from the object header.
type growBuffer struct{ buf []byte }

func (g *growBuffer) Write(p []byte) (int, error) {
	g.buf = append(g.buf, p...)
	return len(p), nil
}
