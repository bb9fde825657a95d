// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/flowmesh/statetable"
)

func TestExactTableGetSet(t *testing.T) {
	tbl, err := statetable.NewExact(1024)
	if err != nil {
		t.Fatalf("NewExact: %v", err)
	}
	tbl.Set([]byte("a"), []byte("1"))
	v, ok := tbl.Get([]byte("a"))
	if !ok || string(v) != "1" {
		t.Fatalf("Get(a): got (%q,%v), want (1,true)", v, ok)
	}
	if _, ok := tbl.Get([]byte("missing")); ok {
		t.Fatalf("Get(missing): got ok=true")
	}
}

func TestBloomTableNoFalseNegatives(t *testing.T) {
	tbl := statetable.NewBloom(1000, 3, 42)
	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, k := range keys {
		tbl.Add(k)
	}
	for _, k := range keys {
		if !tbl.Test(k) {
			t.Fatalf("Test(%s): false negative", k)
		}
	}
}

func TestBloomTableResetClearsMembership(t *testing.T) {
	tbl := statetable.NewBloom(100, 3, 1)
	tbl.Add([]byte("x"))
	tbl.Reset(nil)
	// Reset clears every bit, so no probe of a key added before reset can
	// find a set bit; the bit array itself keeps its size.
	if tbl.Test([]byte("x")) {
		t.Fatalf("Test(x) after Reset: got true, want false")
	}
	if tbl.MemoryUsage() == 0 {
		t.Fatalf("MemoryUsage: got 0, want > 0")
	}
}

func TestFreqTableObserveAndTop(t *testing.T) {
	tbl, err := statetable.NewFreq(16)
	if err != nil {
		t.Fatalf("NewFreq: %v", err)
	}
	for i := 0; i < 5; i++ {
		tbl.Observe("hot")
	}
	tbl.Observe("cold")

	top := tbl.Top(1)
	if len(top) != 1 || top[0] != "hot" {
		t.Fatalf("Top(1): got %v, want [hot]", top)
	}
}

func TestBloomRoundTrip(t *testing.T) {
	tbl := statetable.NewBloom(100, 3, 99)
	tbl.Add([]byte("p"))
	tbl.Add([]byte("q"))

	var buf bytes.Buffer
	if err := statetable.WriteBloom(&buf, tbl); err != nil {
		t.Fatalf("WriteBloom: %v", err)
	}

	loaded, err := statetable.ReadBloom(&buf)
	if err != nil {
		t.Fatalf("ReadBloom: %v", err)
	}
	if !loaded.Test([]byte("p")) || !loaded.Test([]byte("q")) {
		t.Fatalf("round-tripped bloom table lost membership")
	}
}
