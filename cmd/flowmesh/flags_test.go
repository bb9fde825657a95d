// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/spf13/cobra"

	"code.hybscloud.com/flowmesh/statetable"
)

func TestRegisterFlagsDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "flowmesh"}
	f := registerFlags(cmd)
	if f.loopCount != 1 {
		t.Fatalf("loopCount default: got %d, want 1", f.loopCount)
	}
	if f.threadOffset != -1 {
		t.Fatalf("threadOffset default: got %d, want -1", f.threadOffset)
	}
	if f.graphFile != "" || f.pidFile != "" || f.aliasPath != "" {
		t.Fatalf("path flags: expected empty defaults, got %+v", f)
	}
}

func TestRegisterFlagsParsesArgv(t *testing.T) {
	cmd := &cobra.Command{Use: "flowmesh", RunE: func(*cobra.Command, []string) error { return nil }}
	f := registerFlags(cmd)
	cmd.SetArgs([]string{
		"-F", "graph.json",
		"-l", "3",
		"-s", "42",
		"-T", "2",
		"-t", "2",
		"-X",
		"-V",
		"-v",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.graphFile != "graph.json" {
		t.Fatalf("graphFile: got %q, want graph.json", f.graphFile)
	}
	if f.loopCount != 3 {
		t.Fatalf("loopCount: got %d, want 3", f.loopCount)
	}
	if f.seed != 42 {
		t.Fatalf("seed: got %d, want 42", f.seed)
	}
	if f.threadOffset != 2 {
		t.Fatalf("threadOffset: got %d, want 2", f.threadOffset)
	}
	if !f.skipExitFlow || !f.verbose || !f.keepShared {
		t.Fatalf("bool flags: got skipExitFlow=%v verbose=%v keepShared=%v, want all true", f.skipExitFlow, f.verbose, f.keepShared)
	}
	if f.statsLevel != 2 {
		t.Fatalf("statsLevel: got %d, want 2", f.statsLevel)
	}
}

func TestStateVerbosityMapping(t *testing.T) {
	cases := []struct {
		level int
		want  statetable.Verbosity
	}{
		{0, statetable.VerbosityCount},
		{1, statetable.VerbositySize},
		{2, statetable.VerbosityFull},
		{5, statetable.VerbosityFull},
	}
	for _, c := range cases {
		f := &cliFlags{statsLevel: c.level}
		if got := f.stateVerbosity(); got != c.want {
			t.Fatalf("stateVerbosity(%d): got %v, want %v", c.level, got, c.want)
		}
	}
}
