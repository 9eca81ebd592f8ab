package walker

import (
	"io"

	"gitpack/giterr"
	"gitpack/object"
	"gitpack/repository"
)

// maxPeelDepth bounds tag-chain following so a corrupt or cyclic chain
// of annotated tags can't spin Peel forever.
const maxPeelDepth = 16

// BitmapIndex is an optional precomputed reachability index a
// Repository implementation may supply. When present, MarkUninteresting
// consults it before falling back to a full parent walk: a hit lets the
// walker mark an entire ancestor set uninteresting in one step instead
// of popping and parsing every commit in it. No concrete implementation
// ships with this module — SPEC_FULL.md leaves building one an open
// question, and the walker is written to simply not use the shortcut
// when none is configured.
type BitmapIndex interface {
	// Reachable returns every commit id reachable from (and including)
	// id, if a bitmap happens to be cached for it.
	Reachable(id object.ID) (object.Set, bool)
}

// Result is one commit Next returns: enough of its header to drive
// both pack traversal (Tree, Parents) and negotiation bookkeeping
// (Uninteresting).
type Result struct {
	ID            object.ID
	Tree          object.ID
	Parents       []object.ID
	Uninteresting bool
}

// Walker performs a commit-time ordered traversal of a Repository's
// commit graph starting from a set of "want" tips and optionally
// excluding everything reachable from a set of "have" tips, the same
// shape git rev-list and upload-pack's internal walker both use.
//
// A zero Walker is not usable; construct one with New.
type Walker struct {
	repo   repository.Repository
	states map[object.ID]*state
	queue  *commitTimeQueue
	bitmap BitmapIndex
}

// New returns a Walker reading objects from repo.
func New(repo repository.Repository) *Walker {
	return &Walker{
		repo:   repo,
		states: make(map[object.ID]*state),
		queue:  newCommitTimeQueue(),
	}
}

// SetBitmapIndex installs an optional reachability shortcut; see
// BitmapIndex.
func (w *Walker) SetBitmapIndex(b BitmapIndex) {
	w.bitmap = b
}

func (w *Walker) state(id object.ID) *state {
	st, ok := w.states[id]
	if !ok {
		st = &state{}
		w.states[id] = st
	}
	return st
}

// ParseAny reads id and reports its stored type, without attempting
// any commit- or tag-specific decoding. It is the generic entry point
// ParseCommit and Peel build on.
func (w *Walker) ParseAny(id object.ID) (object.Type, []byte, error) {
	typ, content, ok, err := w.repo.Read(id)
	if err != nil {
		return object.Bad, nil, err
	}
	if !ok {
		return object.Bad, nil, giterr.Wrap(giterr.KindMissingBase, "object %s not found", id)
	}
	return typ, content, nil
}

// Peel follows a chain of annotated tags down to the first non-tag
// object, returning that object's id and type. A non-tag id peels to
// itself.
func (w *Walker) Peel(id object.ID) (object.ID, object.Type, error) {
	cur := id
	for i := 0; i < maxPeelDepth; i++ {
		typ, content, err := w.ParseAny(cur)
		if err != nil {
			return object.ID{}, object.Bad, err
		}
		if typ != object.Tag {
			return cur, typ, nil
		}
		tag, err := parseTag(content)
		if err != nil {
			return object.ID{}, object.Bad, err
		}
		cur = tag.object
	}
	return object.ID{}, object.Bad, giterr.Wrap(giterr.KindProtocolViolation, "tag chain from %s exceeds depth %d", id, maxPeelDepth)
}

// ParseCommit decodes and caches id's commit header (tree, parents,
// committer time). It is idempotent: a commit already parsed this walk
// is returned from cache.
func (w *Walker) ParseCommit(id object.ID) (*state, error) {
	st := w.state(id)
	if st.has(FlagParsed) {
		return st, nil
	}
	typ, content, err := w.ParseAny(id)
	if err != nil {
		return nil, err
	}
	if typ != object.Commit {
		return nil, giterr.Wrap(giterr.KindInvalidFormat, "object %s is not a commit (got %s)", id, typ)
	}
	pc, err := parseCommit(content)
	if err != nil {
		return nil, err
	}
	st.tree = pc.tree
	st.parents = pc.parents
	st.when = pc.when
	st.set(FlagParsed)
	return st, nil
}

// MarkStart adds id (peeled through any tag) to the set of commits the
// walk starts from — a "want" tip.
func (w *Walker) MarkStart(id object.ID) error {
	target, typ, err := w.Peel(id)
	if err != nil {
		return err
	}
	if typ != object.Commit {
		return giterr.Wrap(giterr.KindInvalidFormat, "want %s does not peel to a commit (got %s)", id, typ)
	}
	st, err := w.ParseCommit(target)
	if err != nil {
		return err
	}
	if !st.has(FlagSeen) {
		st.set(FlagSeen)
		w.queue.push(target, st.when)
	}
	return nil
}

// MarkUninteresting excludes id and everything reachable from it — a
// "have" tip the peer already possesses. Non-commit refs (e.g. a tag
// that peels to a blob) are silently ignored: nothing reachable from a
// blob is ever walked.
func (w *Walker) MarkUninteresting(id object.ID) error {
	target, typ, err := w.Peel(id)
	if err != nil {
		return err
	}
	if typ != object.Commit {
		return nil
	}

	if w.bitmap != nil {
		if reach, ok := w.bitmap.Reachable(target); ok {
			for anc := range reach {
				st := w.state(anc)
				st.set(FlagUninteresting | FlagSeen | FlagParsed | FlagPopped)
			}
			return nil
		}
	}

	st, err := w.ParseCommit(target)
	if err != nil {
		return err
	}
	st.set(FlagUninteresting)
	if !st.has(FlagSeen) {
		st.set(FlagSeen)
		w.queue.push(target, st.when)
	}
	return nil
}

// ResetRetain clears the Popped flag of every popped commit that is
// not uninteresting and pushes it back onto the frontier, so a
// finished walk can be replayed from the same start/uninteresting
// marks without re-parsing anything; uninteresting commits stay
// popped. This gives a second pass over the same frontier (e.g. to
// recompute ok_to_give_up after new haves arrive).
func (w *Walker) ResetRetain() {
	for id, st := range w.states {
		if st.has(FlagPopped) && !st.has(FlagUninteresting) {
			st.clear(FlagPopped)
			w.queue.push(id, st.when)
		}
	}
}

// Next pops the most recent not-yet-visited commit off the frontier,
// in commit-time order, expanding its parents before returning. It
// returns io.EOF once the frontier is exhausted. Callers that only
// want the "want" side of history should skip results with
// Uninteresting set; the negotiator uses the uninteresting side too,
// to recognize the boundary of common history.
func (w *Walker) Next() (Result, error) {
	for {
		id, ok := w.queue.pop()
		if !ok {
			return Result{}, io.EOF
		}
		st := w.state(id)
		if st.has(FlagPopped) {
			continue
		}
		st.set(FlagPopped)

		uninteresting := st.has(FlagUninteresting)
		for _, p := range st.parents {
			pst := w.state(p)
			firstSeen := !pst.has(FlagSeen)
			if firstSeen {
				if _, err := w.ParseCommit(p); err != nil {
					return Result{}, err
				}
			}
			if uninteresting {
				pst.set(FlagUninteresting)
			}
			if firstSeen {
				pst.set(FlagSeen)
				w.queue.push(p, pst.when)
			}
		}

		return Result{
			ID:            id,
			Tree:          st.tree,
			Parents:       st.parents,
			Uninteresting: uninteresting,
		}, nil
	}
}

// DepthWalk returns the shallow boundary for a `deepen <n>` request:
// the commits exactly maxDepth-1 edges from the nearest start tip that
// still have unexplored parents. It runs independently of the
// want/have frontier maintained by MarkStart/MarkUninteresting/Next,
// since depth-limiting and reachability exclusion are orthogonal
// concerns that can be requested together or separately.
func (w *Walker) DepthWalk(starts []object.ID, maxDepth int) ([]object.ID, error) {
	if maxDepth <= 0 {
		return nil, giterr.Wrap(giterr.KindProtocolViolation, "depth must be positive, got %d", maxDepth)
	}

	depth := make(map[object.ID]int)
	q := newCommitTimeQueue()

	for _, tip := range starts {
		target, typ, err := w.Peel(tip)
		if err != nil {
			return nil, err
		}
		if typ != object.Commit {
			continue
		}
		st, err := w.ParseCommit(target)
		if err != nil {
			return nil, err
		}
		if d, seen := depth[target]; seen && d <= 0 {
			continue
		}
		depth[target] = 0
		q.push(target, st.when)
	}

	var shallow []object.ID
	for q.size() > 0 {
		id, _ := q.pop()
		d := depth[id]
		st, err := w.ParseCommit(id)
		if err != nil {
			return nil, err
		}
		if d >= maxDepth-1 {
			if len(st.parents) > 0 {
				shallow = append(shallow, id)
			}
			continue
		}
		for _, p := range st.parents {
			nd := d + 1
			if pd, seen := depth[p]; seen && pd <= nd {
				continue
			}
			depth[p] = nd
			pst, err := w.ParseCommit(p)
			if err != nil {
				return nil, err
			}
			q.push(p, pst.when)
		}
	}

	object.Sort(shallow)
	return shallow, nil
}
