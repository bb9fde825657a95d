// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package graph

// pinOSThread is a no-op on platforms without sched_setaffinity; the
// scheduler still locks each worker to its own OS thread via
// runtime.LockOSThread, it just cannot pin that thread to a specific CPU.
func pinOSThread(cpu int) error {
	return nil
}
