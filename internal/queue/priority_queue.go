// Package queue provides a binary-heap priority queue.
package queue

import "container/heap"

// Compare ranks a against b: negative means a is served first.
type Compare[T any] func(a, b T) int

// PriorityQueue is a min-heap by Compare. Elements of equal rank are served
// in insertion order. It is not safe for concurrent use.
type PriorityQueue[T any] struct {
	items *heapItems[T]
}

// New returns an empty queue ordered by compare.
func New[T any](compare Compare[T]) *PriorityQueue[T] {
	return &PriorityQueue[T]{items: &heapItems[T]{compare: compare}}
}

// Push adds value to the queue.
func (q *PriorityQueue[T]) Push(value T) {
	heap.Push(q.items, entry[T]{value: value, seq: q.items.nextSeq})
	q.items.nextSeq++
}

// Pop removes and returns the highest priority value. ok is false when the
// queue is empty.
func (q *PriorityQueue[T]) Pop() (value T, ok bool) {
	if q.items.Len() == 0 {
		return value, false
	}
	return heap.Pop(q.items).(entry[T]).value, true
}

// Peek returns the highest priority value without removing it.
func (q *PriorityQueue[T]) Peek() (value T, ok bool) {
	if q.items.Len() == 0 {
		return value, false
	}
	return q.items.entries[0].value, true
}

// Len returns the number of queued values.
func (q *PriorityQueue[T]) Len() int { return q.items.Len() }

type entry[T any] struct {
	value T
	seq   uint64
}

// heapItems implements heap.Interface.
type heapItems[T any] struct {
	entries []entry[T]
	compare Compare[T]
	nextSeq uint64
}

func (h *heapItems[T]) Len() int { return len(h.entries) }

func (h *heapItems[T]) Less(i, j int) bool {
	if c := h.compare(h.entries[i].value, h.entries[j].value); c != 0 {
		return c < 0
	}
	return h.entries[i].seq < h.entries[j].seq
}

func (h *heapItems[T]) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *heapItems[T]) Push(x any) { h.entries = append(h.entries, x.(entry[T])) }

func (h *heapItems[T]) Pop() any {
	last := len(h.entries) - 1
	item := h.entries[last]
	var zero entry[T]
	h.entries[last] = zero
	h.entries = h.entries[:last]
	return item
}
