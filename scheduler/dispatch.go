// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"code.hybscloud.com/spin"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/record"
)

// maxPushRetries is the bounded-retry budget a cross-thread push gets
// before the dispatch policy of §7 takes over (spin forever on an
// acyclic edge, divert to failover on a cycle edge).
const maxPushRetries = 1000

// nodeDoutput is the module.Doutput a running node's Process call
// receives; it closes over the emitting node so Emit can find that
// node's compiled subscriber lists (§4.5 "Dispatch").
type nodeDoutput struct {
	sched  *Scheduler
	thread *WorkerThread
	node   *graph.CompiledNode
}

var _ module.Doutput = (*nodeDoutput)(nil)

// Emit implements module.Doutput: ws_set_outdata (§4.5 "Dispatch").
func (d *nodeDoutput) Emit(r *record.Record, outtype module.Outtype) {
	var co *graph.CompiledOuttype
	for _, c := range d.node.Outtypes {
		if c.Type == outtype.Type && c.Label == outtype.Label {
			co = c
			break
		}
	}
	if co == nil {
		return
	}

	if len(co.Local) > 0 {
		r.Retain(1)
		job := d.thread.freeList.get(r, co.Local)
		d.thread.local.PushBack(job)
	}

	if len(co.External) > 0 {
		byThread := make(map[int][]*graph.Subscriber)
		for _, sub := range co.External {
			byThread[sub.Node.Thread] = append(byThread[sub.Node.Thread], sub)
		}
		for toThread, subs := range byThread {
			r.Retain(1)
			job := d.thread.freeList.get(r, subs)
			d.sched.pushExternal(d.thread, toThread, job)
		}
	}

	// Step 3: balance the reference the producer held since allocation.
	r.Release()
}

// pushExternal implements dispatch step 2: bounded-retry push to
// toThread's shared queue, with the cycle-edge deadlock diversion of §5
// and §7 ("Cross-thread push retry exhausted").
func (s *Scheduler) pushExternal(from *WorkerThread, toThread int, job *Job) {
	q := s.externalByReader[toThread]
	if q == nil {
		return
	}

	cyclic := s.cycles.threads[from.id] && s.cycles.threads[toThread]

	sw := spin.Wait{}
	for i := 0; i < maxPushRetries; i++ {
		if err := q.tryPush(job); err == nil {
			if cyclic {
				s.cycles.clearBlocked(from.id)
			}
			return
		}
		sw.Once()
	}

	if !cyclic {
		// Acyclic edges are effectively blocking: spin indefinitely
		// rather than drop or reorder a record (§7).
		for {
			if err := q.tryPush(job); err == nil {
				return
			}
			sw.Once()
		}
	}

	if s.cycles.markBlocked(from.id) {
		s.enterRecovery()
	}
	from.failover.AddBack(job)
}

// runLocalJob executes one job drained from a thread's own local queue
// (§4.5 "Local-job execution").
func runLocalJob(thread *WorkerThread, j *Job) {
	for _, sub := range j.Subscribers {
		if !sub.Filter.IsZero() {
			// A source-label filter is checked against labels the
			// record carries; modules without a label set never match
			// a non-empty filter.
			matched := false
			for _, l := range j.Record.Labels {
				if l.ID() == sub.Filter.ID() {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		var out module.Doutput
		if thread.flushing {
			out = &flushDoutput{sched: thread.sched, thread: thread, node: sub.Node}
		} else {
			out = &nodeDoutput{sched: thread.sched, thread: thread, node: sub.Node}
		}
		if err := module.SafeCall(sub.Process, sub.Node.Instance, j.Record, out, sub.Slot); err != nil {
			thread.sched.log.WithError(err).WithField("node", sub.Node.KidName).Warn("scheduler: process failed")
		}
	}
	j.Record.Release()
	thread.freeList.release(j)
}
