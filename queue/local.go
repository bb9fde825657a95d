// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

// Local is a singly linked FIFO owned by exactly one thread.
//
// Local is not safe for concurrent use: a scheduler thread owns one Local
// queue per job source (its own local dispatch queue) and never shares it
// with another goroutine. Cells are recycled through an intrusive
// free-list so steady-state dispatch allocates nothing once the queue has
// warmed up to its working-set depth.
type Local[T any] struct {
	head, tail *localNode[T]
	free       *localNode[T]
	size       int
}

type localNode[T any] struct {
	val  T
	next *localNode[T]
}

// NewLocal creates an empty local queue.
func NewLocal[T any]() *Local[T] {
	return &Local[T]{}
}

// Len returns the number of elements currently queued.
func (q *Local[T]) Len() int { return q.size }

// PushBack appends val to the tail of the queue, taking a cell from the
// free-list when one is available.
func (q *Local[T]) PushBack(val T) {
	n := q.alloc()
	n.val = val
	n.next = nil
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.size++
}

// PopFront removes and returns the head element.
// ok is false if the queue is empty.
func (q *Local[T]) PopFront() (val T, ok bool) {
	if q.head == nil {
		return val, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	val = n.val
	q.release(n)
	q.size--
	return val, true
}

// alloc takes a cell from the free-list, or allocates a new one if empty.
func (q *Local[T]) alloc() *localNode[T] {
	if q.free == nil {
		return &localNode[T]{}
	}
	n := q.free
	q.free = n.next
	n.next = nil
	return n
}

// release returns a drained cell to the free-list for reuse.
func (q *Local[T]) release(n *localNode[T]) {
	var zero T
	n.val = zero
	n.next = q.free
	q.free = n
}
