// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/queue"
)

// externalQueue is the reader-thread side of one cross-thread shared
// queue, erasing the SPSC/MPSC distinction the compiler resolved in
// §4.4 step 11 behind a single interface the scheduler dispatches
// through uninformed of which concrete variant backs it.
type externalQueue interface {
	tryPush(j *Job) error
	tryPop() (*Job, bool)
}

func newExternalQueue(spec graph.ExternalQueueSpec) externalQueue {
	if spec.Kind == graph.QueueSPSC {
		return &spscJobQueue{q: queue.NewSPSC[*Job](spec.Capacity)}
	}
	return &mpscJobQueue{q: queue.NewMPSC[*Job](spec.Capacity)}
}

type spscJobQueue struct{ q *queue.SPSC[*Job] }

func (s *spscJobQueue) tryPush(j *Job) error {
	return s.q.Enqueue(&j)
}

func (s *spscJobQueue) tryPop() (*Job, bool) {
	j, err := s.q.Dequeue()
	if err != nil {
		return nil, false
	}
	return j, true
}

type mpscJobQueue struct{ q *queue.MPSC[*Job] }

func (m *mpscJobQueue) tryPush(j *Job) error {
	return m.q.Enqueue(&j)
}

func (m *mpscJobQueue) tryPop() (*Job, bool) {
	j, err := m.q.Dequeue()
	if err != nil {
		return nil, false
	}
	return j, true
}
