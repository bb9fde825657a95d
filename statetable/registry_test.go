// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable_test

import (
	"testing"

	"code.hybscloud.com/flowmesh/statetable"
)

type fakeTable struct{}

func (fakeTable) Kind() statetable.Kind { return statetable.KindExact }
func (fakeTable) MemoryUsage() uint64   { return 0 }

func TestRegisterSharedCoalesces(t *testing.T) {
	reg := statetable.NewRegistry()

	t1, err := reg.RegisterShared(fakeTable{}, statetable.KindExact, "counts", 100, 1)
	if err != nil {
		t.Fatalf("first RegisterShared: %v", err)
	}
	t2, err := reg.RegisterShared(fakeTable{}, statetable.KindExact, "counts", 100, 1)
	if err != nil {
		t.Fatalf("second RegisterShared: %v", err)
	}
	if t1 != t2 {
		t.Fatalf("second RegisterShared returned a different table instance")
	}

	desc, ok := reg.Describe("counts")
	if !ok {
		t.Fatalf("Describe: label not found")
	}
	if desc.RefCount != 2 {
		t.Fatalf("RefCount: got %d, want 2", desc.RefCount)
	}
	if !desc.Shared {
		t.Fatalf("Shared: got false, want true (refcount > 1)")
	}
}

func TestVerifySharingDemotesSingletons(t *testing.T) {
	reg := statetable.NewRegistry()
	reg.RegisterShared(fakeTable{}, statetable.KindExact, "solo", 10, 1)

	demoted := reg.VerifySharing()
	if len(demoted) != 1 || demoted[0] != "solo" {
		t.Fatalf("VerifySharing: got %v, want [solo]", demoted)
	}

	desc, ok := reg.Describe("solo")
	if !ok {
		t.Fatalf("Describe after demotion: label not found")
	}
	if desc.Shared {
		t.Fatalf("Shared after demotion: got true, want false")
	}
}

func TestVerifySharingKeepsMultiRef(t *testing.T) {
	reg := statetable.NewRegistry()
	reg.RegisterShared(fakeTable{}, statetable.KindExact, "dual", 10, 1)
	reg.RegisterShared(fakeTable{}, statetable.KindExact, "dual", 10, 1)

	demoted := reg.VerifySharing()
	if len(demoted) != 0 {
		t.Fatalf("VerifySharing demoted a table with refcount 2: %v", demoted)
	}
}

func TestRegisterSharedKindMismatch(t *testing.T) {
	reg := statetable.NewRegistry()
	reg.RegisterShared(fakeTable{}, statetable.KindExact, "x", 10, 1)
	if _, err := reg.RegisterShared(fakeTable{}, statetable.KindBloom, "x", 10, 1); err == nil {
		t.Fatalf("RegisterShared with mismatched kind: expected error")
	}
}

func TestTeardownSummaryVerbosity(t *testing.T) {
	reg := statetable.NewRegistry()
	reg.RegisterShared(fakeTable{}, statetable.KindExact, "a", 10, 7)

	count := reg.TeardownSummary(statetable.VerbosityCount)
	if count == "" {
		t.Fatalf("TeardownSummary(VerbosityCount): got empty string")
	}
	full := reg.TeardownSummary(statetable.VerbosityFull)
	if len(full) <= len(count) {
		t.Fatalf("TeardownSummary(VerbosityFull) not more detailed than VerbosityCount")
	}
}
