// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command flowmesh is the driver glue of §4.6: it reads CLI flags and
// environment variables, builds the alias table, loads and compiles a
// graph description, and runs it to completion, looping -l times and
// joining worker threads at each shutdown.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/runtime"
)

func main() {
	log := logrus.New()
	entry := logrus.NewEntry(log)

	cmd := &cobra.Command{
		Use:          "flowmesh",
		Short:        "compile and run a flowmesh graph",
		SilenceUsage: true,
	}
	flags := registerFlags(cmd)
	cmd.RunE = func(*cobra.Command, []string) error {
		return run(entry, flags)
	}

	if err := cmd.Execute(); err != nil {
		entry.WithError(err).Error("flowmesh: fatal")
		os.Exit(1)
	}
}

func run(log *logrus.Entry, f *cliFlags) error {
	if f.logFile != "" {
		lf, err := os.OpenFile(f.logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("flowmesh: open log file: %w", err)
		}
		defer lf.Close()
		log.Logger.SetOutput(lf)
	}

	opts := runtime.DefaultOptions()
	opts.Logger = log.Logger
	opts.Verbose = f.verbose
	opts.ValidateInputs = f.validate
	opts.Seed = uint64(f.seed)
	opts.ThreadOffset = f.threadOffset
	opts.DisablePinning = f.noHwloc
	opts.SkipExitFlush = f.skipExitFlow
	opts.KeepShared = f.keepShared
	opts.StateStatsLevel = f.stateVerbosity()

	envOverride(&opts)

	rt := runtime.New(opts)
	logInertPathFlags(rt.Log(), f)

	aliasPath := f.aliasPath
	if aliasPath == "" {
		aliasPath = os.Getenv("WS_ALIAS_PATH")
	}
	if aliasPath != "" {
		if err := loadAliasFile(rt.Modules, aliasPath); err != nil {
			return err
		}
	}

	if f.graphFile == "" {
		return fmt.Errorf("flowmesh: -F graph file is required")
	}

	graphFile, err := os.Open(f.graphFile)
	if err != nil {
		return fmt.Errorf("flowmesh: open graph file: %w", err)
	}
	stmts, err := graph.ParseGraphJSON(graphFile)
	_ = graphFile.Close()
	if err != nil {
		return fmt.Errorf("flowmesh: parse graph file: %w", err)
	}

	var pf *pidFile
	if f.pidFile != "" {
		pf, err = acquirePIDFile(f.pidFile)
		if err != nil {
			return err
		}
		defer pf.release()
	}

	shutdown := installSignalHandler(rt.Log())

	loops := f.loopCount
	forever := loops <= 0
	for iter := 0; forever || iter < loops; iter++ {
		if err := runOnce(rt, f, stmts, shutdown, iter); err != nil {
			return err
		}
	}
	return nil
}

// runOnce runs one `-l` loop iteration: compile, optionally dump
// graphviz, run the scheduler to completion (or until a signal requests
// exit), then print the state-table teardown summary.
func runOnce(rt *runtime.Runtime, f *cliFlags, stmts *graph.StatementList, shutdown *shutdownController, iter int) error {
	g, err := rt.Compile(stmts)
	if err != nil {
		return err
	}

	if f.graphvizPre != "" {
		if err := rt.DumpGraphviz(f.graphvizPre, g); err != nil {
			return err
		}
		color.Yellow("flowmesh: wrote graphviz dump to %s (iteration %d), exiting without running (-G)", f.graphvizPre, iter)
		return nil
	}
	if f.graphvizPost != "" {
		if err := rt.DumpGraphviz(f.graphvizPost, g); err != nil {
			return err
		}
	}

	sched := rt.NewScheduler(g)
	shutdown.setActive(sched)
	sched.Run()

	if summary := rt.TeardownSummary(); summary != "" {
		rt.Log().Info(summary)
	}
	return nil
}
