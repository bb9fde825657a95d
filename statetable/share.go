// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable

// ShareDescriptor is a read-only snapshot of one share-label's state,
// returned by [Registry.Describe] for diagnostics and tests; the graph
// compiler does not call Describe.
type ShareDescriptor struct {
	Label     string
	Kind      Kind
	RefCount  int
	Shared    bool // false once demoted by VerifySharing
	Size      uint64
	ExpireCnt uint64
}

// Describe returns a snapshot of shareLabel's current registry state, or
// ok=false if no such label was ever registered. A label VerifySharing
// has demoted is still found (by scanning local entries) and is
// reported with Shared=false.
func (r *Registry) Describe(shareLabel string) (ShareDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.shared[shareLabel]; ok {
		return descriptorFrom(e), true
	}
	for _, e := range r.local {
		if e.shareLabel == shareLabel {
			return descriptorFrom(e), true
		}
	}
	return ShareDescriptor{}, false
}

func descriptorFrom(e *entry) ShareDescriptor {
	return ShareDescriptor{
		Label:     e.shareLabel,
		Kind:      e.kind,
		RefCount:  e.refCount,
		Shared:    e.shared,
		Size:      e.size,
		ExpireCnt: e.expireCnt,
	}
}
