// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"code.hybscloud.com/flowmesh/runtime"
)

// envOverride applies §6's environment-variable fallbacks: flags read at
// parse time already win when both are present, so this only fills in
// values the user never passed on the command line.
//
// WS_CONFIG_PATH, WS_DATATYPE_PATH, and WS_PROC_PATH have no concrete
// effect in this implementation: modules are bound through a compile-time
// static registry (design note "Dynamic symbol resolution", option (a)),
// not loaded from a directory of shared objects, so there is no path for
// these to point at. envOverride does not read them; the matching -C/-D/-P
// flags are only logged, by logInertPathFlags. WS_ALIAS_PATH is read by
// run, as the fallback for -A.
func envOverride(opts *runtime.Options) {
	if v, ok := os.LookupEnv("WS_STATESTORE_MAX"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			opts.StateStoreMax = n
		}
	}
}

// logInertPathFlags logs -C/-D/-P when the operator passed them, so their
// having no effect (see envOverride's doc comment) is visible rather than
// silently swallowed.
func logInertPathFlags(log *logrus.Entry, f *cliFlags) {
	if f.configPath != "" {
		log.WithField("path", f.configPath).Warn("flowmesh: -C config-path has no effect (static module registry)")
	}
	if f.datatypePath != "" {
		log.WithField("path", f.datatypePath).Warn("flowmesh: -D datatype-path has no effect (static module registry)")
	}
	if f.procPath != "" {
		log.WithField("path", f.procPath).Warn("flowmesh: -P proc-path has no effect (static module registry)")
	}
}
