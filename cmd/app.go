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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardinalhq/hierarkey/blobstore"
	"github.com/cardinalhq/hierarkey/config"
	"github.com/cardinalhq/hierarkey/internal/dbopen"
	"github.com/cardinalhq/hierarkey/internal/logctx"
	"github.com/cardinalhq/hierarkey/migrations"
	"github.com/cardinalhq/hierarkey/settings"
	"github.com/cardinalhq/hierarkey/settingscache"
	"github.com/cardinalhq/hierarkey/settingsdb"
)

// backend is what the commands need from the settings database.
type backend interface {
	settings.Backend
	settingsdb.DuplicateCleaner
	ListSettingCollections(ctx context.Context) ([]string, error)
	Close()
}

// openBackend is replaced in tests.
var openBackend = func(ctx context.Context, cfg *config.Config) (backend, error) {
	mode, err := migrations.ParseCheckMode(cfg.Migration.CheckMode)
	if err != nil {
		return nil, err
	}
	return settingsdb.SettingsDBStore(ctx, dbopen.ForCheckMode(mode))
}

type app struct {
	cfg     *config.Config
	backend backend
	h       *settings.Hierarchy
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.backend = b
	a.closers = append(a.closers, b.Close)

	cache, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	storage, err := blobstore.Open(ctx, cfg.Storage.BlobstoreOptions())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open file storage: %w", err)
	}

	a.h, err = buildHierarchy(cfg, b, cache, storage, logctx.FromContext(ctx))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func buildHierarchy(cfg *config.Config, b settings.Backend, cache settings.Cache, storage settings.FileStorage, logger *slog.Logger) (*settings.Hierarchy, error) {
	h, err := settings.New(cfg.Attribute, b, cache,
		settings.WithFileStorage(storage),
		settings.WithCacheTTL(cfg.Cache.TTL),
		settings.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	var errs []error
	errs = append(errs, h.AddGlobal(&global{}, ""))
	for _, kind := range cfg.Scopes {
		errs = append(errs, h.Add(&scopeRow{kind: kind}, "", settings.WithParentFunc(scopeRowParent)))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for key, value := range cfg.Defaults {
		h.AddDefault(key, value, settings.StringType)
	}
	return h, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig) (settings.Cache, func(), error) {
	switch cfg.Backend {
	case "memory":
		c := settingscache.NewTTL(cfg.TTL)
		return c, c.Close, nil
	case "redis", "tiered":
		r := settingscache.NewRedis(settingscache.NewRedisClient(settingscache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		closeRedis := func() { _ = r.Close() }
		if err := r.Ping(ctx); err != nil {
			closeRedis()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		if cfg.Backend == "tiered" {
			return settingscache.NewTiered(r, cfg.FrontTTL), closeRedis, nil
		}
		return r, closeRedis, nil
	case "none":
		return settingscache.Disabled{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// withProxy opens the app and runs fn against the proxy of the scope
// selected by --scope.
func (o *rootOptions) withProxy(ctx context.Context, fn func(ctx context.Context, a *app, p *settings.Proxy) error) error {
	node, err := parseScopePath(o.cfg.Scopes, o.scopes)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.h.NewSession().Settings(node)
	if err != nil {
		return err
	}
	ctx = logctx.WithAttrs(ctx, slog.String("scope", scopeName(node)), slog.String("scope_id", node.ScopeID()))
	return fn(ctx, a, p)
}
