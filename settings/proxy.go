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
	"reflect"
	"time"
)

// Store is the settings surface of one scope node.
type Store interface {
	Get(ctx context.Context, key string, opts ...GetOption) (any, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Freeze(ctx context.Context) (map[string]any, error)
	Flush(ctx context.Context) error
}

var _ Store = (*Proxy)(nil)

// Proxy reads and writes the settings of one scope node. It caches the
// node's stored settings on first use and is not safe for concurrent use.
type Proxy struct {
	h       *Hierarchy
	scope   *scopeType
	node    Node
	session *Session

	parent         *Proxy
	parentResolved bool

	cached  map[string]string
	written map[string]*Record
}

type getOptions struct {
	def        any
	asType     reflect.Type
	binaryFile bool
}

// GetOption configures Get.
type GetOption func(*getOptions)

// WithDefault is returned when neither the scope chain nor the default
// registry has a value for the key.
func WithDefault(v any) GetOption {
	return func(o *getOptions) { o.def = v }
}

// AsType converts the stored value to typ.
func AsType(typ reflect.Type) GetOption {
	return func(o *getOptions) { o.asType = typ }
}

// BinaryFile opens file settings without newline translation.
func BinaryFile() GetOption {
	return func(o *getOptions) { o.binaryFile = true }
}

// Node returns the scope node of the proxy.
func (p *Proxy) Node() Node { return p.node }

// Get resolves key through this scope, its ancestors, the default registry
// and finally the WithDefault value. It returns nil when nothing matches.
func (p *Proxy) Get(ctx context.Context, key string, opts ...GetOption) (any, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	def, hasDefault := p.h.defaults.Lookup(key)
	if o.asType == nil && hasDefault {
		o.asType = def.Type
	}

	cache, err := p.readCache(ctx)
	if err != nil {
		return nil, err
	}

	var value any
	if raw, ok := cache[key]; ok {
		value = raw
	} else {
		parent, err := p.parentProxy(ctx)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			if value, err = parent.Get(ctx, key, AsType(stringType)); err != nil {
				return nil, err
			}
		}
		if value == nil && hasDefault && def.Value != nil {
			value = *def.Value
		}
		if value == nil && o.def != nil {
			value = o.def
		}
	}

	return p.h.types.Deserialize(ctx, value, o.asType, DecodeOptions{
		BinaryFile: o.binaryFile,
		Storage:    p.h.storage,
		Loader:     p.h.loaderFor,
	})
}

// GetAs resolves key as a T. A missing value yields the zero T.
func GetAs[T any](ctx context.Context, store Store, key string, opts ...GetOption) (T, error) {
	var zero T
	v, err := store.Get(ctx, key, append(opts[:len(opts):len(opts)], AsType(reflect.TypeFor[T]()))...)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		if b, isBool := v.(bool); isBool && !b && reflect.TypeFor[T]() == fileType {
			return zero, nil
		}
		return zero, fmt.Errorf("settings: %q resolved to %T, not %s", key, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// GetFile resolves a file setting. The boolean is false when the key has
// no value or the referenced object no longer exists.
func (p *Proxy) GetFile(ctx context.Context, key string, binary bool) (*File, bool, error) {
	opts := []GetOption{AsType(fileType)}
	if binary {
		opts = append(opts, BinaryFile())
	}
	v, err := p.Get(ctx, key, opts...)
	if err != nil {
		return nil, false, err
	}
	f, ok := v.(*File)
	return f, ok && f != nil, nil
}

// Set stores value under key in this scope. Values that cannot be
// serialized leave the stored value untouched.
func (p *Proxy) Set(ctx context.Context, key string, value any) error {
	raw, err := p.h.types.Serialize(value)
	if err != nil {
		return err
	}

	wc, err := p.writeCache(ctx)
	if err != nil {
		return err
	}
	rec, ok := wc[key]
	if !ok {
		rec = &Record{Key: key}
	}
	prev := rec.Value
	rec.Value = raw
	if err := p.h.backend.SaveRecord(ctx, p.owner(), rec); err != nil {
		rec.Value = prev
		return fmt.Errorf("settings: save %s %q: %w", p.owner(), key, err)
	}
	wc[key] = rec
	recordWrite(ctx, p.scope.namespace, "set")

	cache, err := p.readCache(ctx)
	if err != nil {
		return err
	}
	cache[key] = raw
	return p.flushExternal(ctx)
}

// Delete removes key from this scope. Lookups fall through to the parent
// afterwards.
func (p *Proxy) Delete(ctx context.Context, key string) error {
	wc, err := p.writeCache(ctx)
	if err != nil {
		return err
	}
	if rec, ok := wc[key]; ok {
		if err := p.h.backend.DeleteRecord(ctx, p.owner(), *rec); err != nil {
			return fmt.Errorf("settings: delete %s %q: %w", p.owner(), key, err)
		}
		delete(wc, key)
		recordWrite(ctx, p.scope.namespace, "delete")
	}

	cache, err := p.readCache(ctx)
	if err != nil {
		return err
	}
	delete(cache, key)
	return p.flushExternal(ctx)
}

// Freeze returns every effective setting of this scope: defaults, then the
// frozen parent, then the keys stored here.
func (p *Proxy) Freeze(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	for key, def := range p.h.defaults.All() {
		var raw any
		if def.Value != nil {
			raw = *def.Value
		}
		v, err := p.h.types.Deserialize(ctx, raw, def.Type, DecodeOptions{
			Storage: p.h.storage,
			Loader:  p.h.loaderFor,
		})
		if err != nil {
			return nil, fmt.Errorf("settings: default %q: %w", key, err)
		}
		out[key] = v
	}

	parent, err := p.parentProxy(ctx)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		inherited, err := parent.Freeze(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range inherited {
			out[k] = v
		}
	}

	cache, err := p.readCache(ctx)
	if err != nil {
		return nil, err
	}
	for key := range cache {
		v, err := p.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// Flush drops everything this proxy cached and the external cache entry.
func (p *Proxy) Flush(ctx context.Context) error {
	p.cached = nil
	p.written = nil
	return p.flushExternal(ctx)
}

// GetItem is Get without options.
func (p *Proxy) GetItem(ctx context.Context, key string) (any, error) {
	return p.Get(ctx, key)
}

// SetItem is Set.
func (p *Proxy) SetItem(ctx context.Context, key string, value any) error {
	return p.Set(ctx, key, value)
}

// DeleteItem is Delete.
func (p *Proxy) DeleteItem(ctx context.Context, key string) error {
	return p.Delete(ctx, key)
}

func (p *Proxy) owner() Owner {
	return p.scope.owner(p.node)
}

func (p *Proxy) cacheKey() string {
	return cacheKey(p.scope.namespace, p.node.ScopeID())
}

func (p *Proxy) readCache(ctx context.Context) (map[string]string, error) {
	if p.cached != nil {
		return p.cached, nil
	}
	m, err := p.h.cache.GetOrSet(ctx, p.cacheKey(), func(ctx context.Context) (map[string]string, error) {
		recs, err := p.listRecords(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(recs))
		for _, r := range recs {
			out[r.Key] = r.Value
		}
		return out, nil
	}, p.h.ttl)
	if err != nil {
		return nil, fmt.Errorf("settings: load %s: %w", p.owner(), err)
	}
	if m == nil {
		m = map[string]string{}
	}
	p.cached = m
	return m, nil
}

func (p *Proxy) writeCache(ctx context.Context) (map[string]*Record, error) {
	if p.written != nil {
		return p.written, nil
	}
	recs, err := p.listRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: load %s: %w", p.owner(), err)
	}
	wc := make(map[string]*Record, len(recs))
	for i := range recs {
		wc[recs[i].Key] = &recs[i]
	}
	p.written = wc
	return wc, nil
}

func (p *Proxy) listRecords(ctx context.Context) ([]Record, error) {
	start := time.Now()
	recs, err := p.h.backend.ListRecords(ctx, p.owner())
	recordBackendLoad(ctx, p.scope.namespace, start, err)
	return recs, err
}

func (p *Proxy) flushExternal(ctx context.Context) error {
	if err := p.h.cache.Delete(ctx, p.cacheKey()); err != nil {
		return fmt.Errorf("settings: invalidate %s: %w", p.cacheKey(), err)
	}
	recordInvalidation(ctx, p.scope.namespace)
	return nil
}

func (p *Proxy) parentProxy(ctx context.Context) (*Proxy, error) {
	if p.parentResolved {
		return p.parent, nil
	}
	if p.scope.global {
		p.parentResolved = true
		return nil, nil
	}

	var parent Node
	if p.scope.parent != nil {
		n, err := p.scope.parent(ctx, p.node)
		if err != nil && !isNoParent(err) {
			return nil, fmt.Errorf("settings: parent of %s: %w", p.owner(), err)
		}
		if err == nil && !isNilNode(n) {
			parent = n
		}
	}
	if parent == nil {
		parent = p.h.globalNode()
	}
	if parent != nil {
		pp, err := p.proxyFor(parent)
		if err != nil {
			return nil, err
		}
		p.parent = pp
	}
	p.parentResolved = true
	return p.parent, nil
}

func (p *Proxy) proxyFor(node Node) (*Proxy, error) {
	if p.session != nil {
		return p.session.Settings(node)
	}
	return p.h.newProxy(node, nil)
}
