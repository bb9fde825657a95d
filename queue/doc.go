// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue provides the FIFO primitives the scheduler builds its
// per-thread main loop (§4.5) out of:
//
//   - Local: a singly linked, unbounded, single-owner queue used for a
//     thread's own in-thread dispatch work.
//   - Failover: an unbounded, doubly linked, single-owner queue used as
//     a cycle-participating thread's overflow once a cross-thread push
//     into a full shared queue fails (§5 "Deadlock policy").
//   - SPSC / MPSC: the bounded, lock-free, cross-thread shared queues
//     the graph compiler allocates one of per reader thread that has
//     cross-thread inbound edges (§4.4 step 11), chosen by whether that
//     thread has one writer thread or several.
//
// # Choosing a shared-queue variant
//
//	queue.NewSPSC[*Job](capacity) // reader has exactly one writer thread
//	queue.NewMPSC[*Job](capacity) // reader has two or more writer threads
//
// Both round capacity up to the next power of 2 and panic if capacity
// is below 2; scheduler.newExternalQueue picks between them using the
// graph.ExternalQueueSpec.Kind the compiler already resolved, so no
// runtime dispatch cost is paid on the hot push/pop path.
//
// # Backpressure
//
// Enqueue and Dequeue are both non-blocking and return [ErrWouldBlock]
// when they cannot proceed (ring full on push, ring empty on pop). This
// is a control-flow signal, not a failure: a writer thread that gets
// ErrWouldBlock retries the push a bounded number of times (the
// scheduler's maxPushRetries); if the ring is still full on a
// cycle-participating edge it then diverts the job to its own Failover
// queue, per §5's deadlock policy, and on any other edge it keeps
// retrying; a reader thread that gets ErrWouldBlock on an empty edge
// simply moves on to its next poll target.
//
// # Race detection
//
// Go's race detector is not designed for lock-free algorithm
// verification: it tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established purely through atomic acquire-release memory ordering.
// SPSC and MPSC rely on sequence numbers (cachedHead/cachedTail,
// mpscSlot.cycle) with acquire-release semantics to protect non-atomic
// payload fields; this is correct but may still surface false positives
// under -race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions during MPSC's FAA retry loop.
package queue
