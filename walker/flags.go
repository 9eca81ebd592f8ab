// Package walker implements the Reachability Walker: a commit-time
// ordered traversal over a Repository's commit graph, used by the
// Upload Negotiator to find common ancestry and by the Pack Writer to
// enumerate every object reachable from a want set but not from a
// common set.
package walker

import "gitpack/object"

// Flag is one bit in an object's per-walk state word. The walker
// reserves the low bits for its own bookkeeping; callers allocate
// additional bits with FlagAllocator.Alloc for their own per-object
// state (ADVERTISED, WANT, PEER_HAS, COMMON, SATISFIED in
// upload-pack's vocabulary) without colliding with the
// walker's internal flags or each other.
type Flag uint32

const (
	// FlagParsed marks that an object's header (parents/tree or tag
	// target) has already been decoded and cached.
	FlagParsed Flag = 1 << iota
	// FlagSeen marks that an object has been enqueued at least once;
	// it guards against revisiting the same commit through multiple
	// parent edges.
	FlagSeen
	// FlagUninteresting marks an object (and, once propagated, all of
	// its ancestors) as not wanted in the result — the walker's
	// equivalent of `git rev-list --not`.
	FlagUninteresting
	// FlagBoundary names a commit that was itself marked
	// uninteresting but has at least one interesting child: the edge
	// of the "have" set. The walker reserves the bit but never sets
	// it; DepthWalk computes its shallow boundary without it.
	FlagBoundary
	// FlagPopped marks an object already returned by Next, so a walk
	// can be safely resumed or iterated defensively without
	// re-emitting it.
	FlagPopped

	// firstUserFlag is the first bit FlagAllocator.Alloc hands out.
	firstUserFlag = FlagPopped << 1
)

// MaxFlags is the total number of flag bits available, reserved ones
// included — the walker never allocates beyond a uint32's width.
const MaxFlags = 32

// reservedFlags is the count of bits the walker keeps for itself.
const reservedFlags = 5

// FlagAllocator hands out additional flag bits to callers (typically
// one WantPolicy or Negotiator instance), enforcing the MaxFlags cap.
type FlagAllocator struct {
	next Flag
}

// NewFlagAllocator returns an allocator starting just past the
// walker's own reserved flags.
func NewFlagAllocator() *FlagAllocator {
	return &FlagAllocator{next: firstUserFlag}
}

// Alloc returns a fresh, previously unused flag bit, or false if the
// 32-bit budget (minus the walker's 5 reserved bits) is exhausted.
func (a *FlagAllocator) Alloc() (Flag, bool) {
	if a.next == 0 {
		return 0, false
	}
	f := a.next
	a.next <<= 1
	return f, true
}

// state is the per-object bookkeeping the walker keeps during a single
// traversal: its flags plus whatever was decoded out of its content.
type state struct {
	flags   Flag
	parents []object.ID
	tree    object.ID
	when    int64 // Unix seconds, committer time
}

func (s *state) has(f Flag) bool  { return s.flags&f != 0 }
func (s *state) set(f Flag)       { s.flags |= f }
func (s *state) clear(f Flag)     { s.flags &^= f }
