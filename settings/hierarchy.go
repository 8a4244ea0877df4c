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
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Hierarchy wires scope types to a backing store and a cache and hands out
// proxies for their nodes. It owns the serializer and default registries
// shared by those proxies.
type Hierarchy struct {
	attribute string
	backend   Backend
	cache     Cache
	storage   FileStorage
	ttl       time.Duration
	logger    *slog.Logger

	types    *Types
	defaults *Defaults

	mu     sync.RWMutex
	scopes map[string]*scopeType
	global *scopeType
}

// Option configures a Hierarchy.
type Option func(*Hierarchy)

// WithFileStorage sets the storage used by file settings.
func WithFileStorage(fs FileStorage) Option {
	return func(h *Hierarchy) { h.storage = fs }
}

// WithCacheTTL overrides DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(h *Hierarchy) { h.ttl = ttl }
}

// WithLogger sets the logger used for best-effort cleanup failures. By
// default the logger is taken from the request context.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hierarchy) { h.logger = logger }
}

// New returns a hierarchy exposing its settings under attribute, for
// instance "settings". A nil cache disables external caching.
func New(attribute string, backend Backend, cache Cache, opts ...Option) (*Hierarchy, error) {
	if !namespacePattern.MatchString(attribute) {
		return nil, fmt.Errorf("%w: attribute name %q", ErrConfiguration, attribute)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: no backend", ErrConfiguration)
	}
	if cache == nil {
		cache = uncached{}
	}
	h := &Hierarchy{
		attribute: attribute,
		backend:   backend,
		cache:     cache,
		ttl:       DefaultCacheTTL,
		types:     NewTypes(),
		defaults:  NewDefaults(),
		scopes:    map[string]*scopeType{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Attribute returns the attribute name given to New.
func (h *Hierarchy) Attribute() string { return h.attribute }

// Types returns the serializer registry.
func (h *Hierarchy) Types() *Types { return h.types }

// Defaults returns the default registry.
func (h *Hierarchy) Defaults() *Defaults { return h.defaults }

// AddDefault registers a serialized default value for key.
func (h *Hierarchy) AddDefault(key, value string, typ reflect.Type) {
	h.defaults.Add(key, value, typ)
}

// AddType registers serialization support for a custom type.
func (h *Hierarchy) AddType(typ reflect.Type, serialize func(any) (string, error), unserialize func(string) (any, error)) {
	h.types.Register(typ, serialize, unserialize)
}

// AddGlobal registers the type holding the global settings. The prototype
// must embed GlobalScope and must not be a Row. Only one global type may
// be registered; registering the same type again is a no-op.
func (h *Hierarchy) AddGlobal(prototype any, namespace string) error {
	if prototype == nil {
		return fmt.Errorf("%w: nil global scope", ErrConfiguration)
	}
	if _, ok := prototype.(Row); ok {
		return fmt.Errorf("%w: AddGlobal used on row type %T, use Add", ErrConfiguration, prototype)
	}
	if _, ok := prototype.(globalNode); !ok {
		return fmt.Errorf("%w: %T must embed settings.GlobalScope", ErrConfiguration, prototype)
	}
	key, name := scopeKind(prototype)
	namespace, err := h.namespace(namespace, name)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.global != nil {
		if h.global.kind == key {
			return nil
		}
		return fmt.Errorf("%w: global scope already registered as %s", ErrConfiguration, h.global.name)
	}
	st := &scopeType{
		kind:       key,
		name:       name,
		global:     true,
		typ:        baseType(prototype),
		namespace:  namespace,
		collection: h.collection(name),
	}
	h.global = st
	h.scopes[key] = st
	return nil
}

// ScopeOption configures a row scope registered with Add.
type ScopeOption func(*scopeType)

// WithParentField reads the parent from an exported field or zero-argument
// method of the node. Nil and zero values mean "no parent".
func WithParentField(field string) ScopeOption {
	return func(s *scopeType) { s.parent = fieldParent(field) }
}

// WithParentFunc resolves the parent with fn.
func WithParentFunc(fn ParentFunc) ScopeOption {
	return func(s *scopeType) { s.parent = fn }
}

// WithLoader lets settings be read back as nodes of this scope.
func WithLoader(fn LoaderFunc) ScopeOption {
	return func(s *scopeType) { s.loader = fn }
}

// WithCollection overrides the backing collection name.
func WithCollection(name string) ScopeOption {
	return func(s *scopeType) { s.collection = name }
}

// Add registers a row scope type. Nodes without a parent of their own
// resolve through the global scope, if one is registered. Registering a
// type again is a no-op; the first registration stays in effect.
func (h *Hierarchy) Add(prototype any, namespace string, opts ...ScopeOption) error {
	if prototype == nil {
		return fmt.Errorf("%w: nil scope", ErrConfiguration)
	}
	if _, ok := prototype.(globalNode); ok {
		return fmt.Errorf("%w: Add used on global type %T, use AddGlobal", ErrConfiguration, prototype)
	}
	if _, ok := prototype.(Row); !ok {
		return fmt.Errorf("%w: %T is not a settings.Row", ErrConfiguration, prototype)
	}
	key, name := scopeKind(prototype)
	namespace, err := h.namespace(namespace, name)
	if err != nil {
		return err
	}

	st := &scopeType{
		kind:       key,
		name:       name,
		typ:        baseType(prototype),
		namespace:  namespace,
		collection: h.collection(name),
	}
	for _, opt := range opts {
		opt(st)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.scopes[key]; ok {
		return nil
	}
	h.scopes[key] = st
	return nil
}

func (h *Hierarchy) namespace(ns, kind string) (string, error) {
	if ns == "" {
		return kind + "_" + h.attribute, nil
	}
	if !namespacePattern.MatchString(ns) {
		return "", fmt.Errorf("%w: cache namespace %q is not an identifier", ErrConfiguration, ns)
	}
	return ns, nil
}

func (h *Hierarchy) collection(kind string) string {
	attr := h.attribute
	if attr != "" {
		attr = strings.ToUpper(attr[:1]) + attr[1:]
	}
	return strings.ToLower(kind + "_" + attr + "Store")
}

func (h *Hierarchy) lookup(node Node) (*scopeType, error) {
	if isNilNode(node) {
		return nil, fmt.Errorf("%w: nil node", ErrNotRegistered)
	}
	key, name := scopeKind(node)
	h.mu.RLock()
	defer h.mu.RUnlock()
	st, ok := h.scopes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return st, nil
}

// loaderFor returns the loader of the row scope backed by typ.
func (h *Hierarchy) loaderFor(typ reflect.Type) (LoaderFunc, bool) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, st := range h.scopes {
		if !st.global && st.typ == typ {
			return st.loader, true
		}
	}
	return nil, false
}

func (h *Hierarchy) globalNode() Node {
	h.mu.RLock()
	st := h.global
	h.mu.RUnlock()
	if st == nil {
		return nil
	}
	return reflect.New(st.typ).Interface().(Node)
}

// Proxy returns a new proxy for node. Use a Session to share proxies
// between lookups in one unit of work.
func (h *Hierarchy) Proxy(node Node) (*Proxy, error) {
	return h.newProxy(node, nil)
}

func (h *Hierarchy) newProxy(node Node, session *Session) (*Proxy, error) {
	st, err := h.lookup(node)
	if err != nil {
		return nil, err
	}
	return &Proxy{h: h, scope: st, node: node, session: session}, nil
}

func isNilNode(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// uncached reloads from the backend on every proxy hydration.
type uncached struct{}

func (uncached) GetOrSet(ctx context.Context, _ string, load func(context.Context) (map[string]string, error), _ time.Duration) (map[string]string, error) {
	return load(ctx)
}

func (uncached) Delete(context.Context, string) error { return nil }
