// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

// PinPlan maps each dense runtime thread id to the OS CPU it should be
// scheduled on (§4.4 step 12, §5 "pinned to a CPU").
type PinPlan struct {
	CPUForThread []int // len == number of dense thread ids; -1 means "let the OS decide"
}

// Pin pins the calling goroutine's OS thread to cpu (one entry of a
// PinPlan's CPUForThread), to be invoked
// once by each scheduler worker immediately after it locks itself to its
// OS thread. cpu < 0 is a no-op (hwloc-disabled / -W case).
func Pin(cpu int) error {
	if cpu < 0 {
		return nil
	}
	return pinOSThread(cpu)
}

// PlanOffset builds a PinPlan that assigns dense thread i to CPU
// (offset+i), the behavior of -T n (§6 "disables hwloc").
func PlanOffset(numThreads, offset int) PinPlan {
	cpus := make([]int, numThreads)
	for i := range cpus {
		cpus[i] = offset + i
	}
	return PinPlan{CPUForThread: cpus}
}

// PlanDisabled builds a PinPlan that never pins (-W, §6).
func PlanDisabled(numThreads int) PinPlan {
	cpus := make([]int, numThreads)
	for i := range cpus {
		cpus[i] = -1
	}
	return PinPlan{CPUForThread: cpus}
}
