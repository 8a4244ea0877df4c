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

package settingscache

import (
	"context"
	"maps"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/cardinalhq/hierarkey/settings"
)

// TTL keeps scope mappings in process memory.
type TTL struct {
	cache *ttlcache.Cache[string, map[string]string]
}

var _ settings.Cache = (*TTL)(nil)

// NewTTL creates a TTL cache whose entries expire after ttl unless the
// caller passes its own ttl to GetOrSet. Call Close to stop the expiry
// goroutine.
func NewTTL(ttl time.Duration) *TTL {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, map[string]string](ttl),
		ttlcache.WithDisableTouchOnHit[string, map[string]string](),
	)
	go cache.Start()
	return &TTL{cache: cache}
}

// Close stops the cache background goroutine.
func (t *TTL) Close() {
	t.cache.Stop()
}

// GetOrSet returns the cached mapping for key, loading and storing it on a
// miss. Load errors are returned and not cached.
func (t *TTL) GetOrSet(ctx context.Context, key string, load func(context.Context) (map[string]string, error), ttl time.Duration) (map[string]string, error) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}

	var (
		loaded  bool
		loadErr error
	)
	loader := ttlcache.LoaderFunc[string, map[string]string](
		func(c *ttlcache.Cache[string, map[string]string], k string) *ttlcache.Item[string, map[string]string] {
			loaded = true
			m, err := load(ctx)
			if err != nil {
				loadErr = err
				return nil
			}
			return c.Set(k, maps.Clone(m), ttl)
		},
	)

	item := t.cache.Get(key, ttlcache.WithLoader(loader))
	recordLookup(ctx, "ttl", !loaded)
	if loadErr != nil {
		return nil, loadErr
	}
	if item == nil {
		return map[string]string{}, nil
	}
	return maps.Clone(item.Value()), nil
}

// Delete drops key.
func (t *TTL) Delete(_ context.Context, key string) error {
	t.cache.Delete(key)
	return nil
}

// Len reports the number of live entries.
func (t *TTL) Len() int {
	return t.cache.Len()
}
