// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import "sync"

// cycleGuard tracks, per cycle-participant thread, whether its last
// cross-thread push into a cycle edge is currently blocked (its target
// queue stayed full through the retry budget), and drives the global
// deadlock predicate of §5 "Deadlock policy": recovery mode begins once
// every participant in a communication cycle is simultaneously blocked.
type cycleGuard struct {
	mu       sync.Mutex
	threads  map[int]bool // cycle-participant thread ids, from §4.4 step 10
	blocked  map[int]bool
	recovery bool
}

func newCycleGuard(threadIDs []int) *cycleGuard {
	g := &cycleGuard{
		threads: make(map[int]bool, len(threadIDs)),
		blocked: make(map[int]bool, len(threadIDs)),
	}
	for _, t := range threadIDs {
		g.threads[t] = true
	}
	return g
}

// markBlocked flags thread as unable to push into a cycle edge right
// now. It returns true if this push is what completed the "every
// participant blocked" condition, entering recovery mode.
func (g *cycleGuard) markBlocked(thread int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.threads[thread] {
		return false
	}
	g.blocked[thread] = true
	if g.recovery {
		return false
	}
	for t := range g.threads {
		if !g.blocked[t] {
			return false
		}
	}
	g.recovery = true
	return true
}

// clearBlocked records that thread has successfully pushed again,
// clearing its blocked flag (a cycle-edge push that later succeeds means
// that producer is no longer contributing to the deadlock condition).
func (g *cycleGuard) clearBlocked(thread int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocked, thread)
}

// inRecovery reports whether the scheduler is currently in
// deadlock-recovery mode.
func (g *cycleGuard) inRecovery() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recovery
}

// leaveRecovery exits recovery mode once every participant's failover
// queue has drained (§4.5 main loop, "if all failover queues globally
// empty: leave recovery mode").
func (g *cycleGuard) leaveRecovery() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recovery = false
	for t := range g.blocked {
		delete(g.blocked, t)
	}
}
