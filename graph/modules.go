// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"code.hybscloud.com/flowmesh/module"
)

// ModuleFactory constructs a fresh module.Adapter instance. Per design
// note "Dynamic symbol resolution" option (a), modules are statically
// linked and dispatched through this compile-time registry of
// (name, factory) entries rather than dlopen/dlsym.
type ModuleFactory func() module.Adapter

// ModuleRegistry resolves kid names to module factories, through an
// alias table (§6 proc_alias), and counts how many instances of each
// module name have been bound so each gets a distinct version number
// (§4.4 step 4).
type ModuleRegistry struct {
	mu       sync.Mutex
	byName   map[string]ModuleFactory
	alias    map[string]string // alias -> canonical name
	useCount map[string]int
	warned   map[string]bool // one-time deprecation warnings, by module name
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		byName:   make(map[string]ModuleFactory),
		alias:    make(map[string]string),
		useCount: make(map[string]int),
		warned:   make(map[string]bool),
	}
}

// Register binds name to factory. Any aliases passed are registered too,
// resolving to the same canonical name.
func (r *ModuleRegistry) Register(name string, factory ModuleFactory, aliases ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("graph: module %q already registered", name)
	}
	r.byName[name] = factory
	for _, a := range aliases {
		if a == "" || a == name {
			continue
		}
		r.alias[a] = name
	}
	return nil
}

// RegisterAliasFile merges an externally loaded alias map (e.g. parsed
// from a YAML file per §6's WS_ALIAS_PATH) into the registry. Entries
// that collide with an existing alias or canonical name are rejected
// with an error naming the offending alias, rather than silently
// overwritten.
func (r *ModuleRegistry) RegisterAliasFile(aliases map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for alias, canonical := range aliases {
		if _, exists := r.byName[alias]; exists {
			return fmt.Errorf("graph: alias %q collides with a canonical module name", alias)
		}
		if existing, ok := r.alias[alias]; ok && existing != canonical {
			return fmt.Errorf("graph: alias %q already maps to %q", alias, existing)
		}
		r.alias[alias] = canonical
	}
	return nil
}

// resolve maps a kid-def name through the alias table to its canonical
// registered name, erroring if neither resolves to a known module
// (§7 "Unknown module").
func (r *ModuleRegistry) resolve(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return name, nil
	}
	if canonical, ok := r.alias[name]; ok {
		if _, ok := r.byName[canonical]; ok {
			return canonical, nil
		}
	}
	return "", fmt.Errorf("graph: unknown module %q (not registered, no matching alias)", name)
}

// Bind resolves name, creates a fresh Adapter instance from its factory,
// and returns the canonical name plus a dense per-name version number
// (the module-use counter, §4.4 step 4).
func (r *ModuleRegistry) Bind(name string) (canonical string, version int, inst module.Adapter, err error) {
	canonical, err = r.resolve(name)
	if err != nil {
		return "", 0, nil, err
	}

	r.mu.Lock()
	r.useCount[canonical]++
	version = r.useCount[canonical]
	factory := r.byName[canonical]
	r.mu.Unlock()

	return canonical, version, factory(), nil
}

// WarnOnce logs (via the caller-supplied logf) a one-time deprecation
// notice for moduleName, e.g. when it sets Flags.IsDeprecated. Repeated
// calls for the same name after the first are no-ops, matching the
// original's per-process (not per-kid) deprecation bookkeeping.
func (r *ModuleRegistry) WarnOnce(moduleName string, logf func(format string, args ...any)) {
	r.mu.Lock()
	already := r.warned[moduleName]
	r.warned[moduleName] = true
	r.mu.Unlock()
	if !already && logf != nil {
		logf("module %q is deprecated", moduleName)
	}
}

// KidUID mints a fresh, globally unique kid identifier for a bound node,
// used in diagnostics and as the graphviz node identifier (the visible
// node label is name#version) rather than for any
// dispatch-path logic (which always keys off dense integer indices).
func KidUID() string {
	return uuid.NewString()
}
