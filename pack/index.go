package pack

import (
	"sort"

	"gitpack/giterr"
	"gitpack/object"
)

// MemoryIndex is the in-memory form of a pack's .idx: every object id
// the pack contains, sorted, with enough per-object metadata to locate
// and re-verify it without touching the pack again.
type MemoryIndex struct {
	entries []Info
}

// NewMemoryIndex builds a MemoryIndex from the resolved object list
// produced by the scanner/resolver, sorting by id as the on-disk
// format requires.
func NewMemoryIndex(entries []Info) (*MemoryIndex, error) {
	sorted := make([]Info, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.Compare(sorted[j].ID) < 0
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return nil, giterr.Wrap(giterr.KindObjectCollision, "duplicate object id %s within one pack", sorted[i].ID)
		}
	}

	return &MemoryIndex{entries: sorted}, nil
}

// Find returns the Info for id, or (Info{}, false) if this pack does
// not contain it.
func (idx *MemoryIndex) Find(id object.ID) (Info, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].ID.Compare(id) >= 0
	})
	if i < len(idx.entries) && idx.entries[i].ID == id {
		return idx.entries[i], true
	}
	return Info{}, false
}

// Len returns the number of objects indexed.
func (idx *MemoryIndex) Len() int { return len(idx.entries) }

// Entries returns the sorted entries. Callers must not mutate the
// returned slice.
func (idx *MemoryIndex) Entries() []Info { return idx.entries }

// Fanout returns the count of entries whose id's first byte is <= b,
// the running total used to build the 256-slot fanout table in the
// on-disk .idx format.
func (idx *MemoryIndex) Fanout(b byte) int {
	return sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].ID[0] > b
	})
}
