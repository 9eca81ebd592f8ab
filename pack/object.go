package pack

import "gitpack/object"

// Info is a fully resolved packed object record: the sorted-index
// entry plus the information needed to re-derive or re-verify it.
type Info struct {
	Offset int64
	CRC32  uint32
	ID     object.ID
	Type   object.Type
	Size   int64
}

// baseKind distinguishes how an unresolved delta names its base.
type baseKind uint8

const (
	baseOffset baseKind = iota
	baseID
)

// baseRef is either an OFS-delta anchor offset or a REF-delta object
// id, matching the BaseRef variant in the design.
type baseRef struct {
	kind   baseKind
	offset int64
	id     object.ID
}

func ofsBase(offset int64) baseRef { return baseRef{kind: baseOffset, offset: offset} }
func refBase(id object.ID) baseRef { return baseRef{kind: baseID, id: id} }

// pendingDelta is one not-yet-resolved delta entry discovered during
// the streaming scan: its own file position/CRC and the base it names.
type pendingDelta struct {
	offset    int64
	headerCRC uint32 // CRC over the whole entry (header, base ref, compressed data); re-verified on resolution
	base      baseRef
}

// deltaChains indexes pendingDelta records two ways — by the absolute
// offset of their OFS base, and by the object id of their REF base —
// so that resolving a freshly-hashed object can find every delta that
// depends on it. Within one base, members are appended in arrival
// (pack stream) order; childrenOf merges the two chains and sorts the
// result by file offset, which is that same arrival order.
type deltaChains struct {
	byOffset map[int64][]pendingDelta
	byID     map[object.ID][]pendingDelta
}

func newDeltaChains() *deltaChains {
	return &deltaChains{
		byOffset: make(map[int64][]pendingDelta),
		byID:     make(map[object.ID][]pendingDelta),
	}
}

func (c *deltaChains) add(d pendingDelta) {
	switch d.base.kind {
	case baseOffset:
		c.byOffset[d.base.offset] = append(c.byOffset[d.base.offset], d)
	case baseID:
		c.byID[d.base.id] = append(c.byID[d.base.id], d)
	}
}

// childrenOf returns every delta directly based on the object at
// (offset, id), in ascending file-offset order — a merge of the two
// chains, since a single base can have both OFS and REF dependents.
func (c *deltaChains) childrenOf(offset int64, id object.ID) []pendingDelta {
	var merged []pendingDelta
	merged = append(merged, c.byOffset[offset]...)
	merged = append(merged, c.byID[id]...)
	delete(c.byOffset, offset)
	delete(c.byID, id)

	for i, j := 0, len(merged)-1; i < j; i, j = i+1, j-1 {
		merged[i], merged[j] = merged[j], merged[i]
	}
	sortPendingByOffset(merged)
	return merged
}

// remainingRefBases returns the base ids of every REF-delta chain that
// was never resolved — the set thin-pack completion must supply.
func (c *deltaChains) remainingRefBases() []object.ID {
	ids := make([]object.ID, 0, len(c.byID))
	for id, chain := range c.byID {
		if len(chain) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func sortPendingByOffset(d []pendingDelta) {
	// Small chains in practice; insertion sort keeps this allocation-free.
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j-1].offset > d[j].offset; j-- {
			d[j-1], d[j] = d[j], d[j-1]
		}
	}
}
