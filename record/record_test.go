// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package record_test

import (
	"testing"

	"code.hybscloud.com/flowmesh/record"
)

func TestLabelInternIsStable(t *testing.T) {
	lt := record.NewLabelTable()
	a := lt.Intern("EVEN")
	b := lt.Intern("EVEN")
	if a.ID() != b.ID() {
		t.Fatalf("Intern same name twice: got different ids %d, %d", a.ID(), b.ID())
	}
	odd := lt.Intern("ODD")
	if odd.ID() == a.ID() {
		t.Fatalf("distinct names got the same id %d", a.ID())
	}
}

func TestLabelLookupMiss(t *testing.T) {
	lt := record.NewLabelTable()
	if _, ok := lt.Lookup("NOPE"); ok {
		t.Fatalf("Lookup of never-interned name: got ok=true")
	}
}

func TestDataTypeRegisterDuplicate(t *testing.T) {
	dtt := record.NewDataTypeTable()
	dt := &record.DataType{Name: "int"}
	if err := dtt.Register(dt); err != nil {
		t.Fatalf("Register: unexpected error %v", err)
	}
	if err := dtt.Register(&record.DataType{Name: "int"}); err == nil {
		t.Fatalf("Register duplicate: expected error, got nil")
	}
}

func TestRecordRefCountLifecycle(t *testing.T) {
	freed := false
	dt := &record.DataType{
		Name:  "counted",
		Alloc: func() any { return 0 },
		Free:  func(any) { freed = true },
	}

	r := record.New(dt, false)
	if r.RefCount() != 1 {
		t.Fatalf("RefCount after New: got %d, want 1", r.RefCount())
	}

	r.Retain(2) // simulate 2 additional surviving subscriber edges
	if r.RefCount() != 3 {
		t.Fatalf("RefCount after Retain(2): got %d, want 3", r.RefCount())
	}

	for i := 0; i < 2; i++ {
		if r.Release() {
			t.Fatalf("Release(%d): freed too early", i)
		}
	}
	if freed {
		t.Fatalf("Free callback ran before refcount reached zero")
	}
	if !r.Release() {
		t.Fatalf("final Release: expected true (freed)")
	}
	if !freed {
		t.Fatalf("Free callback did not run at refcount zero")
	}
}

func TestRecordReleaseBelowZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Release on already-freed record: expected panic")
		}
	}()
	dt := &record.DataType{Name: "x"}
	r := record.New(dt, true)
	r.Release()
	r.Release() // invariant violation: must panic
}

func TestRecordLabels(t *testing.T) {
	lt := record.NewLabelTable()
	even := lt.Intern("EVEN")
	r := record.New(&record.DataType{Name: "int"}, false)
	if r.HasLabel(even) {
		t.Fatalf("fresh record unexpectedly has label EVEN")
	}
	r.AddLabel(even)
	if !r.HasLabel(even) {
		t.Fatalf("record missing label EVEN after AddLabel")
	}
	r.AddLabel(even) // idempotent
	if len(r.Labels) != 1 {
		t.Fatalf("AddLabel not idempotent: got %d labels", len(r.Labels))
	}
}
