package worklist

import "container/heap"

// Queue is the decoder driver's ordered worklist. Priority: entry points
// first; then strictly ascending address; ties broken by kind then
// insertion order. Duplicate (address, kind, fromInst) pushes are no-ops.
//
// No third-party priority-queue library appears anywhere in the reference
// corpus, so this is built on the standard library's container/heap —
// the one place this package leans on stdlib rather than an ecosystem
// dependency (see DESIGN.md).
type Queue struct {
	items []item
	seq   int
	seen  map[dedupeKey]bool
}

type item struct {
	target Target
	seq    int
}

// NewQueue returns an empty, ready-to-use worklist.
func NewQueue() *Queue {
	q := &Queue{seen: make(map[dedupeKey]bool)}
	heap.Init((*heapAdapter)(q))
	return q
}

// Push enqueues a jump target. Idempotent for identical
// (address, kind, fromInst) triples.
func (q *Queue) Push(addrVal Target) {
	key := addrVal.dedupeKey()
	if q.seen[key] {
		return
	}
	q.seen[key] = true
	q.seq++
	heap.Push((*heapAdapter)(q), item{target: addrVal, seq: q.seq})
}

// Pop removes and returns the highest-priority target. Panics if empty;
// callers must check Empty first (matching the driver's `for !empty` loop).
func (q *Queue) Pop() Target {
	it := heap.Pop((*heapAdapter)(q)).(item)
	return it.target
}

// Empty reports whether the worklist has no pending targets.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// less implements the worklist's priority order.
func less(a, b Target) bool {
	aEntry := a.Kind == EntryPoint
	bEntry := b.Kind == EntryPoint
	if aEntry != bEntry {
		return aEntry
	}
	if a.Address != b.Address {
		return a.Address.Less(b.Address)
	}
	return kindRank(a.Kind) < kindRank(b.Kind)
}

// heapAdapter implements container/heap.Interface over Queue's items slice.
type heapAdapter Queue

func (h *heapAdapter) Len() int { return len(h.items) }
func (h *heapAdapter) Less(i, j int) bool {
	if less(h.items[i].target, h.items[j].target) {
		return true
	}
	if less(h.items[j].target, h.items[i].target) {
		return false
	}
	return h.items[i].seq < h.items[j].seq
}
func (h *heapAdapter) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *heapAdapter) Push(x any)    { h.items = append(h.items, x.(item)) }
func (h *heapAdapter) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}
