// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package record

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Locator returns (offset, len) into a payload for keying purposes, e.g.
// the byte range a state table should hash to look up or insert a record.
type Locator func(payload any) (offset, length int)

// AllocFunc allocates a fresh per-record payload for a DataType.
type AllocFunc func() any

// FreeFunc releases a per-record payload back to its DataType, called by
// the scheduler when a Record's ref-count reaches zero.
type FreeFunc func(payload any)

// SubElement describes one named field of a DataType's schema.
type SubElement struct {
	Name string
	Kind string // e.g. "string", "uint64", "bytes", "nested"
}

// DataType is an immutable descriptor discovered at startup and
// registered in the process-wide DataTypeTable (§3 "Data type").
type DataType struct {
	Name        string
	Alloc       AllocFunc
	Free        FreeFunc
	HashLocator Locator
	Schema      []SubElement

	// seed is the default hash seed new state tables derive their own
	// seed from (xxhash digest of the type name), giving deterministic
	// per-type seeding across repeated `-l n` loop iterations. The `-s
	// seed` flag does not change it.
	seed uint64
}

// DefaultSeed returns the type's deterministic default hash seed.
func (dt *DataType) DefaultSeed() uint64 { return dt.seed }

// DataTypeTable is the process-wide registry of discovered data types.
type DataTypeTable struct {
	mu    sync.RWMutex
	types map[string]*DataType
}

// NewDataTypeTable creates an empty data-type table.
func NewDataTypeTable() *DataTypeTable {
	return &DataTypeTable{types: make(map[string]*DataType)}
}

// Register adds dt to the table, computing its default seed from its
// name. Returns an error if a type with the same name is already
// registered (module authors must pick distinct type names).
func (t *DataTypeTable) Register(dt *DataType) error {
	if dt.Name == "" {
		return fmt.Errorf("record: data type must have a non-empty name")
	}
	dt.seed = xxhash.Sum64String(dt.Name)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.types[dt.Name]; exists {
		return fmt.Errorf("record: data type %q already registered", dt.Name)
	}
	t.types[dt.Name] = dt
	return nil
}

// Lookup returns the named DataType, or false if it is unknown.
func (t *DataTypeTable) Lookup(name string) (*DataType, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	dt, ok := t.types[name]
	return dt, ok
}

// Names returns every registered type name, for diagnostic dumps.
func (t *DataTypeTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.types))
	for name := range t.types {
		names = append(names, name)
	}
	return names
}
