// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"code.hybscloud.com/flowmesh/statetable"
)

// cliFlags mirrors §6's CLI surface one field per flag.
type cliFlags struct {
	graphFile    string // -F
	loopCount    int    // -l
	logFile      string // -L
	skipExitFlow bool   // -X
	seed         int64  // -s
	graphvizPre  string // -G
	graphvizPost string // -Z
	configPath   string // -C
	datatypePath string // -D
	procPath     string // -P
	aliasPath    string // -A
	pidFile      string // -p
	validate     bool   // -r
	verbose      bool   // -V
	keepShared   bool   // -v
	statsLevel   int    // -t
	threadOffset int    // -T
	noHwloc      bool   // -W
}

// registerFlags binds every §6 flag onto cmd and returns the struct its
// values land in once cmd.Execute parses argv.
func registerFlags(cmd *cobra.Command) *cliFlags {
	f := &cliFlags{threadOffset: -1}
	flags := cmd.Flags()

	flags.StringVarP(&f.graphFile, "graph-file", "F", "", "load the compiled graph description from file")
	flags.IntVarP(&f.loopCount, "loop", "l", 1, "run the graph this many times (0 = forever until signaled)")
	flags.StringVarP(&f.logFile, "log-file", "L", "", "redirect logging output to file instead of stderr")
	flags.BoolVarP(&f.skipExitFlow, "skip-exit-flush", "X", false, "skip the flush protocol on exit")
	flags.Int64VarP(&f.seed, "seed", "s", 0, "hash seed, recorded in the runtime options (no state table reads it)")
	flags.StringVarP(&f.graphvizPre, "graphviz-pre", "G", "", "dump the graphviz representation of the compiled graph and exit without running")
	flags.StringVarP(&f.graphvizPost, "graphviz-post", "Z", "", "dump the graphviz representation after compile and continue")
	flags.StringVarP(&f.configPath, "config-path", "C", "", "override WS_CONFIG_PATH")
	flags.StringVarP(&f.datatypePath, "datatype-path", "D", "", "override WS_DATATYPE_PATH")
	flags.StringVarP(&f.procPath, "proc-path", "P", "", "override WS_PROC_PATH")
	flags.StringVarP(&f.aliasPath, "alias-path", "A", "", "override WS_ALIAS_PATH; a YAML map of alias to canonical module name")
	flags.StringVarP(&f.pidFile, "pid-file", "p", "", "write and lock a PID file at this path")
	flags.BoolVarP(&f.validate, "validate-inputs", "r", false, "reject any node with no valid producer edge (compile step 13)")
	flags.BoolVarP(&f.verbose, "verbose", "V", false, "verbose diagnostics (debug logging, verbose graphviz dumps)")
	flags.BoolVarP(&f.keepShared, "keep-shared", "v", false, "keep bound module instances alive for debugger inspection at exit")
	flags.IntVarP(&f.statsLevel, "stats-level", "t", 0, "state-table teardown stats verbosity: 0=count, 1=size, 2=full")
	flags.IntVarP(&f.threadOffset, "thread-offset", "T", -1, "fixed CPU offset for thread pinning, disables hwloc-style placement")
	flags.BoolVarP(&f.noHwloc, "no-hwloc", "W", false, "disable CPU pinning entirely, without an explicit offset")

	return f
}

func (f *cliFlags) stateVerbosity() statetable.Verbosity {
	switch {
	case f.statsLevel >= 2:
		return statetable.VerbosityFull
	case f.statsLevel == 1:
		return statetable.VerbositySize
	default:
		return statetable.VerbosityCount
	}
}
