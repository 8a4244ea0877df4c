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
	"context"
	"errors"
	"fmt"
	"reflect"
)

// GlobalScopeID is the identity shared by every global scope node.
const GlobalScopeID = "_global"

// Node is one addressable level of a settings hierarchy. ScopeID must be
// stable: it is the cache key suffix and the owner id of persisted records.
type Node interface {
	ScopeID() string
}

// Row is a scope node backed by a persisted row, such as an organization
// or a user. ScopeID is expected to return the row's primary key.
type Row interface {
	Node
	TableName() string
}

// Kinded lets one Go type represent several scope kinds. Without it the
// kind of a node is derived from its type.
type Kinded interface {
	ScopeKind() string
}

// GlobalScope is embedded by the type that carries the global settings of
// a hierarchy:
//
//	type GlobalSettings struct{ settings.GlobalScope }
type GlobalScope struct{}

// ScopeID implements Node.
func (GlobalScope) ScopeID() string { return GlobalScopeID }

func (GlobalScope) isGlobalScope() {}

type globalNode interface {
	Node
	isGlobalScope()
}

// ParentFunc returns the parent of a node. Returning a nil Node or an error
// matching ErrNoParent means the node has no parent of its own.
type ParentFunc func(ctx context.Context, node Node) (Node, error)

// LoaderFunc resolves a row scope node from its ScopeID. It is used when a
// stored setting is requested as that row type.
type LoaderFunc func(ctx context.Context, id string) (Node, error)

// scopeType is the registration record of one scope kind.
type scopeType struct {
	kind       string
	name       string
	global     bool
	typ        reflect.Type
	namespace  string
	collection string
	parent     ParentFunc
	loader     LoaderFunc
}

func (s *scopeType) owner(node Node) Owner {
	if s.global {
		return Owner{Collection: s.collection}
	}
	id := node.ScopeID()
	return Owner{Collection: s.collection, ObjectID: &id}
}

// baseType strips pointers so that T and *T register as the same scope.
func baseType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// scopeKind returns the registry key and the short name of a node's kind.
func scopeKind(v any) (key string, name string) {
	if k, ok := v.(Kinded); ok {
		return "kind:" + k.ScopeKind(), k.ScopeKind()
	}
	t := baseType(v)
	if t == nil {
		return "", ""
	}
	return t.PkgPath() + "." + t.Name(), t.Name()
}

// fieldParent reads a parent node from an exported field or zero-argument
// method of the node. Nil pointers and zero values mean "no parent".
func fieldParent(field string) ParentFunc {
	return func(_ context.Context, node Node) (Node, error) {
		v := reflect.ValueOf(node)
		if m := v.MethodByName(field); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() >= 1 {
			out := m.Call(nil)
			if len(out) == 2 && !out[1].IsNil() {
				return nil, out[1].Interface().(error)
			}
			return asParent(out[0])
		}
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, nil
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: parent field %q on non-struct %s", ErrConfiguration, field, v.Type())
		}
		f := v.FieldByName(field)
		if !f.IsValid() {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrConfiguration, v.Type(), field)
		}
		return asParent(f)
	}
}

func asParent(v reflect.Value) (Node, error) {
	if !v.IsValid() || v.IsZero() {
		return nil, nil
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil, nil
	}
	if !v.CanInterface() {
		return nil, fmt.Errorf("%w: parent field is not exported", ErrConfiguration)
	}
	n, ok := v.Interface().(Node)
	if !ok {
		if v.CanAddr() {
			if n, ok = v.Addr().Interface().(Node); ok {
				return n, nil
			}
		}
		return nil, fmt.Errorf("%w: parent of type %s is not a settings.Node", ErrConfiguration, v.Type())
	}
	return n, nil
}

func isNoParent(err error) bool {
	return errors.Is(err, ErrNoParent)
}
