// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"code.hybscloud.com/flowmesh/scheduler"
)

// shutdownController bridges the OS signal handler (installed once, for
// the life of the process) to whichever scheduler is currently running
// the active `-l` loop iteration: a fresh Scheduler is built per
// iteration, but the signal channel must only ever be registered once.
type shutdownController struct {
	mu     sync.Mutex
	sig    int32
	active *scheduler.Scheduler
}

// setActive registers sched as the scheduler a signal should currently
// target, replaying any signal count already received against it so a
// signal that arrived between two loop iterations is not lost.
func (c *shutdownController) setActive(sched *scheduler.Scheduler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = sched
	for i := int32(0); i < c.sig; i++ {
		sched.RequestExit()
	}
}

func (c *shutdownController) requestExit() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sig++
	if c.active != nil {
		c.active.RequestExit()
	}
	return c.sig
}

// installSignalHandler wires INT/TERM/QUIT/ABRT to the cooperative exit
// counter of whatever scheduler is active (§7, §9): the first signal of
// any of these raises do_exit so every worker thread leaves its main
// loop after its current record and runs the flush protocol; the
// original's behavior of forcing immediate termination on the third
// signal is preserved, but unlike the original's `_exit(0)` (which
// reports success even on a forced kill, §9 open question), this
// implementation exits with the conventional 128+signal code so a
// supervising process or shell script can tell a clean shutdown from a
// forced one.
func installSignalHandler(log *logrus.Entry) *shutdownController {
	c := &shutdownController{}
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGABRT)
	go func() {
		for sig := range ch {
			n := c.requestExit()
			log.WithField("signal", sig).WithField("count", n).Warn("flowmesh: received shutdown signal")
			if n >= 3 {
				log.Error("flowmesh: third signal received, forcing immediate exit")
				os.Exit(128 + signalNumber(sig))
			}
		}
	}()
	return c
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 1
}
