// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/sirupsen/logrus"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/queue"
)

// maxExtJobsPerPass bounds how many external-queue jobs one main-loop
// iteration drains before yielding back to local work, matching §4.5's
// MAX_EXTJOBS_LIMIT.
const maxExtJobsPerPass = 256

// WorkerThread is the per-thread state of §4.5's main loop: one OS
// thread, one local queue, one failover queue, and (if other threads
// write to it) one shared external queue.
type WorkerThread struct {
	sched    *Scheduler
	id       int
	local    *queue.Local[*Job]
	failover *queue.Failover[*Job]
	external externalQueue // this thread's reader-side shared queue, nil if it has no cross-thread inbound edges
	cpu      int

	freeList jobFreeList

	nodes   []*graph.CompiledNode
	sources []*graph.CompiledNode

	sourceExhausted   bool
	countedExhaustion bool // true once this thread has contributed to readyToFlush for the current exhaustion episode

	flushing bool // true only for thread 0, only during its phase-2 flush-order walk
}

// Scheduler owns every worker thread and the process-wide coordination
// state (§5 "Flush rendezvous, exit counter, spinning-on-jobs counter:
// global mutex-guarded").
type Scheduler struct {
	graph   *graph.CompiledGraph
	threads []*WorkerThread

	externalByReader map[int]externalQueue
	cycles           *cycleGuard

	doExit         atomix.Int32
	readyToFlush   atomix.Int32
	spinningOnJobs atomix.Int32
	sourceThreads  int

	flushBarrier atomix.Int32
	flushDone    atomix.Bool

	skipExitFlush bool
	maxFlushIters int
	keepShared    bool

	log *logrus.Entry

	wg sync.WaitGroup
}

// Options configures a Scheduler beyond what the compiled graph itself
// determines.
type Options struct {
	PinPlan       graph.PinPlan
	SkipExitFlush bool // -X, §6
	MaxFlushIters int  // cap on repeated flush passes, default 64
	KeepShared    bool // -v, skip Destroy so a debugger can still inspect bound instances
	Logger        *logrus.Entry
}

// New builds a Scheduler from a compiled graph, constructing one
// WorkerThread per dense thread id and one shared queue per
// graph.ExternalQueueSpec.
func New(g *graph.CompiledGraph, opts Options) *Scheduler {
	if opts.MaxFlushIters <= 0 {
		opts.MaxFlushIters = 64
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Scheduler{
		graph:            g,
		externalByReader: make(map[int]externalQueue, len(g.Queues)),
		skipExitFlush:    opts.SkipExitFlush,
		maxFlushIters:    opts.MaxFlushIters,
		keepShared:       opts.KeepShared,
		log:              opts.Logger,
	}

	cycleIDs := g.CycleThreads.ToSlice()
	s.cycles = newCycleGuard(cycleIDs)

	for _, spec := range g.Queues {
		q := newExternalQueue(spec)
		s.externalByReader[spec.ToThread] = q
	}

	byThread := make(map[int][]*graph.CompiledNode)
	for _, n := range g.Nodes {
		byThread[n.Thread] = append(byThread[n.Thread], n)
	}

	sourceThreadSet := make(map[int]bool)
	for _, tid := range g.ThreadIDs {
		wt := &WorkerThread{
			sched:    s,
			id:       tid,
			local:    queue.NewLocal[*Job](),
			failover: queue.NewFailover[*Job](),
			external: s.externalByReader[tid],
			nodes:    byThread[tid],
		}
		if tid < len(opts.PinPlan.CPUForThread) {
			wt.cpu = opts.PinPlan.CPUForThread[tid]
		} else {
			wt.cpu = -1
		}
		for _, n := range wt.nodes {
			if n.IsSource {
				wt.sources = append(wt.sources, n)
				sourceThreadSet[tid] = true
			}
		}
		s.threads = append(s.threads, wt)
	}
	s.sourceThreads = len(sourceThreadSet)

	return s
}

// RequestExit increments the cooperative exit counter (§4.5
// "Cancellation"); do_exit >= 1 makes every thread leave its main loop
// after the record it is currently processing.
func (s *Scheduler) RequestExit() int32 {
	return s.doExit.AddAcqRel(1)
}

func (s *Scheduler) exitRequested() bool {
	return s.doExit.LoadRelaxed() >= 1
}

// Run starts one goroutine per worker thread, pins it to its OS thread
// (§5 "Scheduling model"), and blocks until every thread's main loop
// returns.
func (s *Scheduler) Run() {
	s.wg.Add(len(s.threads))
	for _, wt := range s.threads {
		wt := wt
		go func() {
			defer s.wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := graph.Pin(wt.cpu); err != nil {
				s.log.WithError(err).WithField("thread", wt.id).Warn("scheduler: cpu pin failed")
			}
			s.mainLoop(wt)
		}()
	}
	s.wg.Wait()
	s.teardown()
}

// teardown calls Destroy on every bound node instance once every worker
// thread has returned, per module.Adapter's documented lifecycle (Init ->
// InputSet (many) -> Process (many) -> Destroy once). Skipped entirely
// when -v (KeepShared) asked to leave instances alive for a debugger to
// inspect after the process would otherwise have torn them down.
func (s *Scheduler) teardown() {
	if s.keepShared {
		return
	}
	for _, n := range s.graph.Nodes {
		if n.Adapter == nil {
			continue
		}
		if err := n.Adapter.Destroy(n.Instance); err != nil {
			s.log.WithError(err).WithField("node", n.KidName).Warn("scheduler: destroy failed")
		}
	}
}

// mainLoop is the per-thread loop of §4.5.
func (s *Scheduler) mainLoop(wt *WorkerThread) {
	backoff := spinBackoff{}
	for {
		progressed := false

		if s.cycles.inRecovery() {
			drained := s.drainExternal(wt, maxExtJobsPerPass)
			progressed = drained || progressed
			if !drained {
				s.tryDrainFailoverToSiblings(wt)
			}
			if s.allFailoversEmpty() {
				s.cycles.leaveRecovery()
			}
		} else {
			anyProduced := false
			for _, src := range wt.sources {
				out := &nodeDoutput{sched: s, thread: wt, node: src}
				if pollSource(src, src.Poll, out) {
					anyProduced = true
				}
			}
			if anyProduced {
				progressed = true
				s.noteSourceRearmed(wt)
			}
			wt.sourceExhausted = !anyProduced

			progressed = s.drainLocal(wt, 64) || progressed
			progressed = s.drainExternal(wt, maxExtJobsPerPass) || progressed
		}

		if s.exitRequested() {
			s.participateInFlush(wt)
			return
		}
		if len(wt.sources) > 0 && wt.sourceExhausted && wt.local.Len() == 0 {
			s.noteSourceExhausted(wt)
		}
		if !progressed {
			backoff.wait()
		} else {
			backoff.reset()
		}
	}
}

func (s *Scheduler) drainLocal(wt *WorkerThread, limit int) bool {
	progressed := false
	for i := 0; i < limit; i++ {
		j, ok := wt.local.PopFront()
		if !ok {
			break
		}
		runLocalJob(wt, j)
		progressed = true
	}
	return progressed
}

func (s *Scheduler) drainExternal(wt *WorkerThread, limit int) bool {
	if wt.external == nil {
		return false
	}
	progressed := false
	for i := 0; i < limit; i++ {
		j, ok := wt.external.tryPop()
		if !ok {
			break
		}
		runLocalJob(wt, j)
		progressed = true
	}
	return progressed
}

func (s *Scheduler) tryDrainFailoverToSiblings(wt *WorkerThread) {
	for {
		j, ok := wt.failover.PopFront()
		if !ok {
			return
		}
		delivered := false
		for _, sub := range j.Subscribers {
			if s.externalByReader[sub.Node.Thread] != nil {
				if err := s.externalByReader[sub.Node.Thread].tryPush(j); err == nil {
					delivered = true
					break
				}
			}
		}
		if !delivered {
			wt.failover.AddFront(j)
			return
		}
	}
}

func (s *Scheduler) allFailoversEmpty() bool {
	for _, wt := range s.threads {
		if wt.failover.Len() > 0 {
			return false
		}
	}
	return true
}

func (s *Scheduler) enterRecovery() {
	s.log.Warn("scheduler: entering deadlock-recovery mode")
}

// pollSource wraps a CompiledNode's registered SourcePoll, matching the
// module.Sources.RegisterSource bookkeeping done in graph.Compile.
func pollSource(_ *graph.CompiledNode, poll module.SourcePoll, out module.Doutput) bool {
	if poll == nil {
		return false
	}
	return poll(out)
}

type spinBackoff struct {
	stage int
}

func (b *spinBackoff) wait() {
	switch {
	case b.stage == 0:
		runtime.Gosched()
	case b.stage < 4:
		time.Sleep(10 * time.Microsecond)
	case b.stage < 8:
		time.Sleep(100 * time.Microsecond)
	default:
		time.Sleep(5 * time.Millisecond)
	}
	if b.stage < 16 {
		b.stage++
	}
}

func (b *spinBackoff) reset() { b.stage = 0 }
