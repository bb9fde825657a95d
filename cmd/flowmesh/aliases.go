// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"code.hybscloud.com/flowmesh/graph"
)

// loadAliasFile reads a YAML file of `alias: canonical-name` pairs (§6's
// WS_ALIAS_PATH / -A) and merges it into the module registry, extending
// the built-in alias map without a recompile.
func loadAliasFile(modules *graph.ModuleRegistry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("flowmesh: read alias file: %w", err)
	}
	var aliases map[string]string
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return fmt.Errorf("flowmesh: parse alias file %q: %w", path, err)
	}
	if err := modules.RegisterAliasFile(aliases); err != nil {
		return fmt.Errorf("flowmesh: load alias file %q: %w", path, err)
	}
	return nil
}
