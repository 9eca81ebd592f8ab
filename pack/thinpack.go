package pack

import (
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pjbgf/sha1cd"

	"gitpack/giterr"
	"gitpack/object"
)

// BaseSource supplies the bytes of an object this pack assumed the
// receiver already had — the "thin" half of a thin pack. It is
// typically backed by the Object Cache Gateway.
type BaseSource interface {
	Get(id object.ID) (typ object.Type, content []byte, err error)
}

// CompleteThinPack appends a synthetic full object for every REF-delta
// base that scanPack left unresolved, patches the pack's object count,
// and returns the Info records for the appended objects plus the new
// footer SHA-1 over the whole file.
//
// rw must be both readable (to recompute the footer hash of the
// now-longer pack) and writable at arbitrary offsets; a temp pack file
// opened os.O_RDWR satisfies this.
func CompleteThinPack(rw io.ReadWriteSeeker, res *scanResult, bases BaseSource) ([]Info, object.ID, error) {
	missing := res.Chains.remainingRefBases()
	if len(missing) == 0 {
		sum, err := recomputeFooter(rw, res.PackLen)
		return nil, sum, err
	}

	if _, err := rw.Seek(res.PackLen, io.SeekStart); err != nil {
		return nil, object.ZeroID, err
	}
	counted := &countingWriter{w: rw}

	appended := make([]Info, 0, len(missing))
	offset := res.PackLen
	for _, id := range missing {
		typ, content, err := bases.Get(id)
		if err != nil {
			return nil, object.ZeroID, giterr.Wrap(giterr.KindMissingBase, "thin pack base %s unavailable: %v", id, err)
		}

		code, err := typeCode(typ)
		if err != nil {
			return nil, object.ZeroID, err
		}

		crcHash := crc32.NewIEEE()
		tee := io.MultiWriter(counted, crcHash)
		if err := writeSyntheticObject(tee, code, content); err != nil {
			return nil, object.ZeroID, err
		}

		appended = append(appended, Info{
			Offset: offset,
			CRC32:  crcHash.Sum32(),
			ID:     id,
			Type:   typ,
			Size:   int64(len(content)),
		})
		offset = res.PackLen + counted.n
	}
	res.PackLen += counted.n

	if err := patchObjectCount(rw, res.Header.ObjectsQty+uint32(len(missing))); err != nil {
		return nil, object.ZeroID, err
	}

	sum, err := recomputeFooter(rw, res.PackLen)
	return appended, sum, err
}

// countingWriter tracks the total bytes written through it, since
// zlib.Writer reports nothing back about its compressed output size.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeSyntheticObject appends one whole-object entry (header + zlib
// stream) at the writer's current position.
func writeSyntheticObject(w io.Writer, code byte, content []byte) error {
	header := writeObjectHeader(code, uint64(len(content)))
	if _, err := w.Write(header); err != nil {
		return err
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(content); err != nil {
		return err
	}
	return zw.Close()
}

// patchObjectCount rewrites the 12-byte header's object-count field in
// place at offset 0.
func patchObjectCount(rw io.ReadWriteSeeker, qty uint32) error {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var buf [12]byte
	if _, err := io.ReadFull(rw, buf[:]); err != nil {
		return giterr.Wrap(giterr.KindTruncatedInput, "re-reading header to patch count: %v", err)
	}
	if err := rewriteObjectsQty(buf[:], qty); err != nil {
		return giterr.Wrap(giterr.KindInvalidFormat, "%v", err)
	}
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := rw.Write(buf[:])
	return err
}

// recomputeFooter re-hashes the whole pack body (everything up to but
// excluding the 20-byte footer, at position packLen) and writes the new
// SHA-1 footer in place.
func recomputeFooter(rw io.ReadWriteSeeker, packLen int64) (object.ID, error) {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return object.ZeroID, err
	}
	h := sha1cd.New()
	if _, err := io.CopyN(h, rw, packLen); err != nil {
		return object.ZeroID, giterr.Wrap(giterr.KindTruncatedInput, "rehashing completed pack: %v", err)
	}

	var sum object.ID
	copy(sum[:], h.Sum(nil))

	if _, err := rw.Seek(packLen, io.SeekStart); err != nil {
		return object.ZeroID, err
	}
	if _, err := rw.Write(sum[:]); err != nil {
		return object.ZeroID, err
	}
	return sum, nil
}

