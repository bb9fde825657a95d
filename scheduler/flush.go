// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"runtime"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/record"
)

// participateInFlush is every worker thread's exit path once the
// cooperative exit counter has been raised (§4.5 "Source exhaustion and
// flush"). It runs the three phases in order: first every thread drains
// its own local and external queues until the whole scheduler is
// simultaneously idle, then thread 0 alone walks the flush order while
// every other thread keeps servicing external-queue drains for whatever
// cross-thread traffic was already in flight, then thread 0 releases the
// others once its walk is done.
//
// -X (SkipExitFlush) skips all three phases: threads return immediately,
// leaving any buffered-but-unflushed state in place.
func (s *Scheduler) participateInFlush(wt *WorkerThread) {
	if s.skipExitFlush {
		return
	}

	s.drainUntilQuiescent(wt)

	arrived := s.flushBarrier.AddAcqRel(1)
	if wt.id != 0 {
		for !s.flushDone.Load() {
			s.drainExternal(wt, maxExtJobsPerPass)
			runtime.Gosched()
		}
		return
	}

	for int(arrived) < len(s.threads) {
		runtime.Gosched()
		arrived = s.flushBarrier.LoadAcquire()
	}

	wt.flushing = true
	s.runFlushOrder(wt)
	wt.flushing = false
	s.flushDone.Store(true)
}

// drainUntilQuiescent is phase 1: every thread stops polling sources and
// only drains local and external work, until every thread reports empty
// in the same instant (§5 "spinning-on-jobs counter"). A thread that
// drains something decrements the counter again so a late arrival of
// cross-thread work reopens the quiescence check rather than racing a
// thread that already counted itself idle.
func (s *Scheduler) drainUntilQuiescent(wt *WorkerThread) {
	idle := false
	for {
		progressed := s.drainLocal(wt, maxExtJobsPerPass) || s.drainExternal(wt, maxExtJobsPerPass)
		if progressed {
			if idle {
				s.spinningOnJobs.AddAcqRel(-1)
				idle = false
			}
			continue
		}
		if !idle {
			idle = true
			if s.spinningOnJobs.AddAcqRel(1) >= int32(len(s.threads)) {
				return
			}
			continue
		}
		if s.spinningOnJobs.LoadAcquire() >= int32(len(s.threads)) {
			return
		}
		runtime.Gosched()
	}
}

// runFlushOrder is phase 2: thread 0 alone, walking §4.4 step 9's flush
// order, invokes every node's own registered ProcessFuncs with a
// synthesized flush record, draining its own local queue between each
// call so a flush-triggered cascade runs to completion before the next
// node's flush call. The whole walk repeats, up to MaxFlushIters times,
// as long as some call in the pass produced new local work; a module
// whose flush call only forwards buffered state needs one pass, but a
// chain of buffering modules needs one pass per link.
func (s *Scheduler) runFlushOrder(wt0 *WorkerThread) {
	for iter := 0; iter < s.maxFlushIters; iter++ {
		producedAny := false
		for _, n := range s.graph.FlushOrder {
			for slot, pf := range n.ProcessFuncs {
				if pf == nil {
					continue
				}
				fr := record.NewFlush()
				out := &flushDoutput{sched: s, thread: wt0, node: n}
				if err := module.SafeCall(pf, n.Instance, fr, out, slot); err != nil {
					s.log.WithError(err).WithField("node", n.KidName).Warn("scheduler: flush process error")
				}
				for {
					j, ok := wt0.local.PopFront()
					if !ok {
						break
					}
					producedAny = true
					runLocalJob(wt0, j)
				}
			}
		}
		if !producedAny {
			break
		}
	}
}

// flushDoutput is the module.Doutput a node's ProcessFunc receives during
// phase 2. Unlike nodeDoutput, it folds a node's local and external
// subscriber lists into one, always queued onto thread 0's own local
// queue: during single-thread flush no subscriber is reached through a
// cross-thread push, so every downstream call - however many thread
// hops its compiled edge crossed - still runs serialized on thread 0.
type flushDoutput struct {
	sched  *Scheduler
	thread *WorkerThread
	node   *graph.CompiledNode
}

var _ module.Doutput = (*flushDoutput)(nil)

func (d *flushDoutput) Emit(r *record.Record, outtype module.Outtype) {
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

	if n := len(co.Local) + len(co.External); n > 0 {
		all := make([]*graph.Subscriber, 0, n)
		all = append(all, co.Local...)
		all = append(all, co.External...)
		r.Retain(1)
		job := d.thread.freeList.get(r, all)
		d.thread.local.PushBack(job)
	}

	r.Release()
}

// noteSourceExhausted records that wt's sources produced nothing on the
// last poll and its local queue has drained; it is the per-thread half
// of §5's ready-to-flush counter. Once every source-bearing thread has
// reported exhaustion at the same time, the run as a whole has nothing
// left to produce, and the scheduler requests its own cooperative exit
// so Run returns (through the flush protocol above) instead of spinning
// forever on empty sources.
func (s *Scheduler) noteSourceExhausted(wt *WorkerThread) {
	if wt.countedExhaustion {
		return
	}
	wt.countedExhaustion = true
	if s.readyToFlush.AddAcqRel(1) >= int32(s.sourceThreads) {
		s.RequestExit()
	}
}

// noteSourceRearmed undoes noteSourceExhausted once a source that had
// reported exhaustion produces again, so a burst followed by a lull
// followed by more data does not trip the ready-to-flush counter early.
func (s *Scheduler) noteSourceRearmed(wt *WorkerThread) {
	if !wt.countedExhaustion {
		return
	}
	wt.countedExhaustion = false
	s.readyToFlush.AddAcqRel(-1)
}
