// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package settings

import (
	"maps"
	"reflect"
	"sync"
)

// Default is a hard-coded fallback for one key. Value holds the serialized
// form and is nil for keys that only declare a type.
type Default struct {
	Value *string
	Type  reflect.Type
}

// Defaults is the default registry of a hierarchy.
type Defaults struct {
	mu sync.RWMutex
	m  map[string]Default
}

// NewDefaults returns an empty registry.
func NewDefaults() *Defaults {
	return &Defaults{m: map[string]Default{}}
}

// Add registers the serialized default value and type of key. A nil typ
// means string. A later registration for the same key replaces the earlier
// one.
func (d *Defaults) Add(key, value string, typ reflect.Type) {
	if typ == nil {
		typ = stringType
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[key] = Default{Value: &value, Type: typ}
}

// AddTyped declares the type of key without a default value.
func (d *Defaults) AddTyped(key string, typ reflect.Type) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[key] = Default{Type: typ}
}

// Lookup returns the default registered for key.
func (d *Defaults) Lookup(key string) (Default, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.m[key]
	return def, ok
}

// All returns a copy of every registered default.
func (d *Defaults) All() map[string]Default {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.m)
}
