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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardinalhq/hierarkey/internal/logctx"
	"github.com/cardinalhq/hierarkey/settings"
)

// Redis stores scope mappings as JSON objects in Redis so that every
// process sharing the server sees the same invalidations.
type Redis struct {
	client redis.UniversalClient
}

var _ settings.Cache = (*Redis)(nil)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens a client for a single Redis server.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Ping checks that the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetOrSet returns the mapping stored under key. On a miss, or when the
// stored payload cannot be decoded, it loads and stores a fresh mapping.
func (r *Redis) GetOrSet(ctx context.Context, key string, load func(context.Context) (map[string]string, error), ttl time.Duration) (map[string]string, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var m map[string]string
		if err := json.Unmarshal(b, &m); err == nil {
			if m == nil {
				m = map[string]string{}
			}
			recordLookup(ctx, "redis", true)
			return m, nil
		}
		logctx.FromContext(ctx).Warn("Discarding undecodable cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	recordLookup(ctx, "redis", false)

	m, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]string{}
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set %s: %w", key, err)
	}
	return m, nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
