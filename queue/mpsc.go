// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is the cross-thread shared queue the graph compiler selects for
// one reader thread in §4.4 step 11 whenever more than one writer
// thread feeds it: every fan-in writer pushes *Job concurrently, and
// the single reader thread drains it from its
// main loop's external-queue poll (§4.5).
//
// Writers use FAA (fetch-and-add) to blindly claim a slot (SCQ-style),
// requiring 2n physical slots for a configured capacity of n so a slow
// writer's claimed-but-not-yet-written slot cannot be mistaken for a
// full ring by a writer racing it.
type MPSC[T any] struct {
	_      pad
	head   atomix.Uint64 // reader thread's dequeue index
	_      pad
	tail   atomix.Uint64 // next slot index claimed by FAA across all writer threads
	_      pad
	buffer []mpscSlot[T]
	capacity uint64 // n, the edge's configured capacity
	size     uint64 // 2n, physical slot count
	mask     uint64 // 2n - 1
}

type mpscSlot[T any] struct {
	cycle atomix.Uint64 // round number: which pass through the ring last wrote this slot
	data  T
	_     padShort
}

// NewMPSC creates the shared queue backing one MPSC cross-thread edge
// with the graph.ExternalQueueSpec's configured capacity, rounded up to
// the next power of 2.
func NewMPSC[T any](capacity int) *MPSC[T] {
	if capacity < 2 {
		panic("queue: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	size := n * 2

	q := &MPSC[T]{
		buffer:   make([]mpscSlot[T], size),
		capacity: n,
		size:     size,
		mask:     size - 1,
	}

	for i := uint64(0); i < size; i++ {
		q.buffer[i].cycle.StoreRelaxed(i / n)
	}

	return q
}

// Enqueue pushes a job onto the edge (any of the edge's writer threads
// may call this concurrently). Returns ErrWouldBlock if the reader
// thread has fallen behind and the ring is full — the caller's §4.5
// main loop treats this as backpressure, retries a bounded number of
// times and, on a cycle-participating edge, then diverts the job to its
// failover queue.
func (q *MPSC[T]) Enqueue(elem *T) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadRelaxed()
		if tail >= head+q.capacity {
			return ErrWouldBlock
		}

		myTail := q.tail.AddAcqRel(1) - 1

		slot := &q.buffer[myTail&q.mask]
		expectedCycle := myTail / q.capacity

		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			slot.data = *elem
			slot.cycle.StoreRelease(expectedCycle + 1)
			return nil
		}

		if int64(slotCycle) < int64(expectedCycle) {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// Dequeue pops the next job off the edge (reader thread only).
// Returns (zero-value, ErrWouldBlock) if no writer thread has pushed
// anything new since the reader's last drain.
func (q *MPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	cycle := head / q.capacity
	slot := &q.buffer[head&q.mask]

	slotCycle := slot.cycle.LoadAcquire()

	if slotCycle != cycle+1 {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.data
	var zero T
	slot.data = zero
	nextEnqCycle := (head + q.size) / q.capacity
	slot.cycle.StoreRelease(nextEnqCycle)
	q.head.StoreRelaxed(head + 1)

	return elem, nil
}

// Cap returns the edge's configured capacity after power-of-2 rounding.
func (q *MPSC[T]) Cap() int {
	return int(q.capacity)
}
