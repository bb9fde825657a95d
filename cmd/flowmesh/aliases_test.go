// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/record"
)

type noopAdapter struct{}

func (noopAdapter) Init(argv []string, sv module.Sources, tt *record.DataTypeTable) (module.Instance, error) {
	return nil, nil
}
func (noopAdapter) InputSet(inst module.Instance, inputType *record.DataType, port record.Label, outlist *[]module.Outtype, slot int, tt *record.DataTypeTable) (module.ProcessFunc, error) {
	return nil, nil
}
func (noopAdapter) InitFinish(module.Instance) error { return nil }
func (noopAdapter) Destroy(module.Instance) error    { return nil }

func writeAliasFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	return path
}

func TestLoadAliasFileMergesIntoRegistry(t *testing.T) {
	reg := graph.NewModuleRegistry()
	if err := reg.Register("count", func() module.Adapter { return noopAdapter{} }); err != nil {
		t.Fatalf("register count: %v", err)
	}

	path := writeAliasFile(t, "legacy_count: count\n")

	if err := loadAliasFile(reg, path); err != nil {
		t.Fatalf("loadAliasFile: %v", err)
	}
	if canonical, _, _, err := reg.Bind("legacy_count"); err != nil || canonical != "count" {
		t.Fatalf("Bind(legacy_count): got (%q, %v), want count", canonical, err)
	}
}

func TestLoadAliasFileRejectsMissingFile(t *testing.T) {
	reg := graph.NewModuleRegistry()
	if err := loadAliasFile(reg, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("loadAliasFile with missing file: expected error")
	}
}

func TestLoadAliasFileRejectsCollisionWithCanonicalName(t *testing.T) {
	reg := graph.NewModuleRegistry()
	if err := reg.Register("count", func() module.Adapter { return noopAdapter{} }); err != nil {
		t.Fatalf("register count: %v", err)
	}

	path := writeAliasFile(t, "count: somethingelse\n")

	if err := loadAliasFile(reg, path); err == nil {
		t.Fatalf("loadAliasFile with a canonical-name collision: expected error")
	}
}
