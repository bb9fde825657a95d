// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import "code.hybscloud.com/atomix"

// SPSC is the cross-thread shared queue the graph compiler selects for
// one reader thread in §4.4 step 11 whenever exactly one writer thread
// feeds it: one producer thread's dispatch loop pushes *Job, the single
// reader thread drains it
// from its main loop's external-queue poll (§4.5).
//
// Based on Lamport's ring buffer with cached index optimization: the
// producer caches the consumer's dequeue index, and vice versa, so the
// hot path only re-reads the other side's atomic counter after its own
// cached view says the ring is full or empty, reducing cross-core cache
// line traffic on the steady-state push/pop path.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // reader thread's dequeue index
	_          pad
	cachedTail uint64 // reader's cached view of tail, refreshed only on a stale miss
	_          pad
	tail       atomix.Uint64 // writer thread's enqueue index
	_          pad
	cachedHead uint64 // writer's cached view of head, refreshed only on a stale miss
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates the shared queue backing one SPSC cross-thread edge
// with the graph.ExternalQueueSpec's configured capacity, rounded up to
// the next power of 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("queue: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// Enqueue pushes a job onto the edge (writer thread only).
// Returns ErrWouldBlock if the reader thread has fallen behind and the
// ring is full — the writer's §4.5 main loop treats this as backpressure,
// retries a bounded number of times and, on a cycle-participating edge,
// then diverts the job to its failover queue.
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return ErrWouldBlock
		}
	}

	q.buffer[tail&q.mask] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue pops the next job off the edge (reader thread only).
// Returns (zero-value, ErrWouldBlock) if no writer thread has pushed
// anything new since the reader's last drain.
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}

	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the edge's configured capacity after power-of-2 rounding.
func (q *SPSC[T]) Cap() int {
	return int(q.mask + 1)
}
