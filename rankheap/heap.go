// Package rankheap implements the bounded min-heap used to keep the top-K
// results of a query under insertion. It is a thin generic wrapper over
// container/heap so callers get O(log K) Push and O(K log K) ExtractAll
// without hand-rolling heap maintenance.
package rankheap

import "container/heap"

// innerHeap adapts a generic slice + Less func to container/heap.Interface.
type innerHeap[T any] struct {
	items []T
	less  func(a, b T) bool
}

func (h *innerHeap[T]) Len() int            { return len(h.items) }
func (h *innerHeap[T]) Less(i, j int) bool  { return h.less(h.items[i], h.items[j]) }
func (h *innerHeap[T]) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *innerHeap[T]) Push(x any)          { h.items = append(h.items, x.(T)) }
func (h *innerHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// Heap is a capacity-bounded min-heap ordered by less. A capacity of 0
// means unbounded: every Push succeeds and the heap grows without limit.
// Otherwise, once Len() reaches capacity, Push only accepts items that
// sort strictly after the current minimum, evicting that minimum.
type Heap[T any] struct {
	inner    *innerHeap[T]
	capacity int
}

// New creates a Heap with the given capacity (0 for unbounded) ordered by
// less, where less(a, b) reports whether a sorts before b.
func New[T any](capacity int, less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{
		inner:    &innerHeap[T]{less: less},
		capacity: capacity,
	}
}

// Len returns the current number of items held.
func (h *Heap[T]) Len() int { return h.inner.Len() }

// Push inserts item if there is room, or if it sorts strictly after the
// current minimum (which is then evicted). Reports whether item was
// accepted.
func (h *Heap[T]) Push(item T) bool {
	if h.capacity <= 0 || h.inner.Len() < h.capacity {
		heap.Push(h.inner, item)
		return true
	}
	if h.inner.Len() == 0 {
		return false
	}
	min := h.inner.items[0]
	if h.inner.less(min, item) {
		h.inner.items[0] = item
		heap.Fix(h.inner, 0)
		return true
	}
	return false
}

// Peek returns the current minimum without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	var zero T
	if h.inner.Len() == 0 {
		return zero, false
	}
	return h.inner.items[0], true
}

// Pop removes and returns the current minimum.
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	if h.inner.Len() == 0 {
		return zero, false
	}
	return heap.Pop(h.inner).(T), true
}

// ExtractAll drains the heap and returns its items in ascending order
// (least first). After this call the heap is empty.
func (h *Heap[T]) ExtractAll() []T {
	out := make([]T, 0, h.inner.Len())
	for h.inner.Len() > 0 {
		out = append(out, heap.Pop(h.inner).(T))
	}
	return out
}

// Snapshot returns a copy of the heap's current contents in no particular
// order, leaving the heap untouched.
func (h *Heap[T]) Snapshot() []T {
	out := make([]T, len(h.inner.items))
	copy(out, h.inner.items)
	return out
}
