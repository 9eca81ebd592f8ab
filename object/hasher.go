package object

import (
	"hash"
	"strconv"
	"sync"

	"github.com/pjbgf/sha1cd"
)

// Hasher computes the canonical object id for a piece of Git content:
// sha1(type_name || " " || ascii_decimal(size) || 0x00 || content).
//
// It uses sha1cd rather than crypto/sha1 so that a crafted collision
// in incoming pack data is detected instead of silently accepted — the
// same reasoning go-git registers sha1cd under crypto.SHA1 for.
type Hasher struct {
	h hash.Hash
	m sync.Mutex
}

// NewHasher returns a ready-to-use Hasher. A single Hasher may be
// reused across objects via Reset, or shared across goroutines through
// Compute, which takes the internal lock; Reset, Write and Sum do not.
func NewHasher() *Hasher {
	return &Hasher{h: sha1cd.New()}
}

// Size returns the digest size in bytes (always Size for SHA-1).
func (h *Hasher) Size() int { return h.h.Size() }

// Write feeds raw content bytes into the in-progress digest. Callers
// must have called Reset first to establish the type/size header.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Reset begins a new digest for an object of the given type and
// declared size, writing the loose-object header ahead of the content.
func (h *Hasher) Reset(t Type, size int64) {
	h.h.Reset()
	h.h.Write([]byte(t.String()))
	h.h.Write(spaceByte)
	h.h.Write([]byte(strconv.FormatInt(size, 10)))
	h.h.Write(nulByte)
}

// Sum finalizes the digest and returns it as an ID. It does not reset
// the underlying hash; call Reset before reusing the Hasher.
func (h *Hasher) Sum() ID {
	var id ID
	copy(id[:], h.h.Sum(nil))
	return id
}

// Compute is the one-shot convenience form: hash all of content as a
// single object of type t and return its id. It is safe for concurrent
// use; Reset/Write/Sum on a shared Hasher are not.
func (h *Hasher) Compute(t Type, content []byte) ID {
	h.m.Lock()
	defer h.m.Unlock()
	h.Reset(t, int64(len(content)))
	h.Write(content)
	return h.Sum()
}

var (
	spaceByte = []byte(" ")
	nulByte   = []byte{0}
)

// ComputeID is a package-level convenience that allocates a fresh
// Hasher. Prefer a pooled/reused Hasher on hot paths such as the pack
// scanner, which hashes one object per pack entry.
func ComputeID(t Type, content []byte) ID {
	h := NewHasher()
	return h.Compute(t, content)
}
