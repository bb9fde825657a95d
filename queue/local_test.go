// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue_test

import (
	"testing"

	"code.hybscloud.com/flowmesh/queue"
)

func TestLocalFIFOOrder(t *testing.T) {
	q := queue.NewLocal[int]()
	for i := range 10 {
		q.PushBack(i)
	}
	if q.Len() != 10 {
		t.Fatalf("Len: got %d, want 10", q.Len())
	}
	for i := range 10 {
		v, ok := q.PopFront()
		if !ok {
			t.Fatalf("PopFront(%d): queue unexpectedly empty", i)
		}
		if v != i {
			t.Fatalf("PopFront(%d): got %d, want %d", i, v, i)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Fatalf("PopFront on empty queue: got ok=true")
	}
}

func TestLocalReusesFreedCells(t *testing.T) {
	q := queue.NewLocal[int]()
	for i := range 3 {
		q.PushBack(i)
	}
	for range 3 {
		q.PopFront()
	}
	// Cells should now be on the free-list; push again and confirm the
	// queue is still correct (this is a behavioral check, not a
	// allocation-count check, since Go doesn't expose one portably).
	for i := range 5 {
		q.PushBack(i + 100)
	}
	for i := range 5 {
		v, _ := q.PopFront()
		if v != i+100 {
			t.Fatalf("after reuse, got %d want %d", v, i+100)
		}
	}
}
