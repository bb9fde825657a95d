// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler implements the per-thread main loop, dispatch,
// flush, and deadlock-recovery protocol of §4.5, running the graph
// compiler's output (§4.4).
package scheduler

import (
	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/record"
)

// Job is one unit of dispatched work: a record plus the subscriber list
// it must be walked against (§4.5 "Dispatch" step 1, "attach
// (record, subscriber-list-head)").
type Job struct {
	Record      *record.Record
	Subscribers []*graph.Subscriber
	next        *Job // free-list / queue linkage, thread-local only
}

// jobFreeList is a strictly thread-local free-list of Job cells (§5
// "Free-lists: strictly thread-local"). It is not safe for concurrent
// use; each worker thread owns exactly one.
type jobFreeList struct {
	head *Job
}

func (fl *jobFreeList) get(r *record.Record, subs []*graph.Subscriber) *Job {
	if fl.head == nil {
		return &Job{Record: r, Subscribers: subs}
	}
	j := fl.head
	fl.head = j.next
	j.next = nil
	j.Record = r
	j.Subscribers = subs
	return j
}

func (fl *jobFreeList) release(j *Job) {
	j.Record = nil
	j.Subscribers = nil
	j.next = fl.head
	fl.head = j
}
