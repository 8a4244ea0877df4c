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

	"github.com/patrickmn/go-cache"

	"github.com/cardinalhq/hierarkey/settings"
)

// DefaultFrontTTL is how long Tiered keeps a mapping in process memory.
const DefaultFrontTTL = 10 * time.Second

// Tiered answers from a short-lived in-process cache and falls back to a
// shared cache such as Redis. Deletes clear both levels, but only in this
// process; other processes see the change once their front entry expires.
type Tiered struct {
	front    *cache.Cache
	frontTTL time.Duration
	back     settings.Cache
}

var _ settings.Cache = (*Tiered)(nil)

func NewTiered(back settings.Cache, frontTTL time.Duration) *Tiered {
	if frontTTL <= 0 {
		frontTTL = DefaultFrontTTL
	}
	return &Tiered{
		front:    cache.New(frontTTL, 2*frontTTL),
		frontTTL: frontTTL,
		back:     back,
	}
}

func (t *Tiered) GetOrSet(ctx context.Context, key string, load func(context.Context) (map[string]string, error), ttl time.Duration) (map[string]string, error) {
	v, ok := t.front.Get(key)
	recordLookup(ctx, "front", ok)
	if ok {
		return maps.Clone(v.(map[string]string)), nil
	}

	m, err := t.back.GetOrSet(ctx, key, load, ttl)
	if err != nil {
		return nil, err
	}

	frontTTL := t.frontTTL
	if ttl > 0 && ttl < frontTTL {
		frontTTL = ttl
	}
	t.front.Set(key, maps.Clone(m), frontTTL)
	return m, nil
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	t.front.Delete(key)
	return t.back.Delete(ctx, key)
}
