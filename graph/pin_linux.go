// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package graph

import "golang.org/x/sys/unix"

// pinOSThread pins the calling OS thread to cpu via sched_setaffinity.
// The caller must have already called runtime.LockOSThread.
func pinOSThread(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}
