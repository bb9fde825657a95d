// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"

	"code.hybscloud.com/flowmesh/runtime"
)

func TestEnvOverrideReadsStateStoreMax(t *testing.T) {
	t.Setenv("WS_STATESTORE_MAX", "12345")
	opts := runtime.DefaultOptions()
	envOverride(&opts)
	if opts.StateStoreMax != 12345 {
		t.Fatalf("StateStoreMax: got %d, want 12345", opts.StateStoreMax)
	}
}

func TestEnvOverrideIgnoresMalformedValue(t *testing.T) {
	t.Setenv("WS_STATESTORE_MAX", "not-a-number")
	opts := runtime.DefaultOptions()
	envOverride(&opts)
	if opts.StateStoreMax != 0 {
		t.Fatalf("StateStoreMax: got %d, want 0 (malformed env value left default untouched)", opts.StateStoreMax)
	}
}

func TestEnvOverrideLeavesDefaultWhenUnset(t *testing.T) {
	opts := runtime.DefaultOptions()
	envOverride(&opts)
	if opts.StateStoreMax != 0 {
		t.Fatalf("StateStoreMax: got %d, want 0 when WS_STATESTORE_MAX is unset", opts.StateStoreMax)
	}
}

func TestLogInertPathFlagsWarnsOnlyWhenSet(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	entry := logrus.NewEntry(log)

	logInertPathFlags(entry, &cliFlags{})
	if buf.Len() != 0 {
		t.Fatalf("logInertPathFlags with no path flags set: expected no output, got %q", buf.String())
	}

	buf.Reset()
	logInertPathFlags(entry, &cliFlags{configPath: "/etc/flowmesh"})
	if buf.Len() == 0 {
		t.Fatalf("logInertPathFlags with -C set: expected a warning line")
	}
}
