package walker

import (
	"github.com/emirpasic/gods/trees/binaryheap"

	"gitpack/object"
)

// commitTimeQueue is a max-heap over pending commits ordered by
// committer timestamp, so Next() always returns the most recent
// not-yet-popped commit first — the same commit-time-ordered frontier
// `git rev-list`'s in-core walker keeps. Wraps gods' binaryheap the way
// go-git's commitgraph package wraps it for its own date-order
// iterator: the heap itself only ever sees interface{}, so this type
// exists purely to keep the Pop/Peek call sites typed.
type commitTimeQueue struct {
	heap *binaryheap.Heap
}

func newCommitTimeQueue() *commitTimeQueue {
	return &commitTimeQueue{
		heap: binaryheap.NewWith(func(a, b interface{}) int {
			ca, cb := a.(*pendingCommit), b.(*pendingCommit)
			switch {
			case ca.when > cb.when:
				return -1
			case ca.when < cb.when:
				return 1
			default:
				return ca.id.Compare(cb.id)
			}
		}),
	}
}

// pendingCommit is one entry in the frontier: an object id plus the
// commit-time key it was enqueued with.
type pendingCommit struct {
	id   object.ID
	when int64
}

func (q *commitTimeQueue) push(id object.ID, when int64) {
	q.heap.Push(&pendingCommit{id: id, when: when})
}

func (q *commitTimeQueue) pop() (object.ID, bool) {
	v, ok := q.heap.Pop()
	if !ok {
		return object.ID{}, false
	}
	return v.(*pendingCommit).id, true
}

func (q *commitTimeQueue) size() int {
	return q.heap.Size()
}
