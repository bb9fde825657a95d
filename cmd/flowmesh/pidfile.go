// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// pidFile holds an advisory lock on the -p path for the life of the
// process, writing the current PID into it so an operator (or a second
// accidental launch) can tell whether a flowmesh instance is already
// running against this config.
type pidFile struct {
	path string
	lock *flock.Flock
}

// acquirePIDFile locks path exclusively and writes the current PID into
// it. The lock is released (and the file removed) by release.
func acquirePIDFile(path string) (*pidFile, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("pidfile: lock %q: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("pidfile: %q is already locked by another instance", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("pidfile: write %q: %w", path, err)
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("pidfile: write %q: %w", path, werr)
	}
	if cerr != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("pidfile: close %q: %w", path, cerr)
	}
	return &pidFile{path: path, lock: lock}, nil
}

func (p *pidFile) release() {
	_ = p.lock.Unlock()
	_ = os.Remove(p.path)
}
