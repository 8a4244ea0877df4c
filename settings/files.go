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
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/cardinalhq/hierarkey/internal/idgen"
	"github.com/cardinalhq/hierarkey/internal/logctx"
)

// StoreFile saves r as the new content of the file setting key. The file
// previously referenced by this scope is removed from storage unless
// another scope still references it.
func (p *Proxy) StoreFile(ctx context.Context, key, filename string, r io.Reader) (*File, error) {
	if p.h.storage == nil {
		return nil, fmt.Errorf("%w: no file storage", ErrConfiguration)
	}
	if err := p.releaseFile(ctx, key); err != nil {
		return nil, err
	}

	name, err := p.h.storage.Save(ctx, p.newFilename(filename), r)
	if err != nil {
		return nil, fmt.Errorf("settings: store %q: %w", filename, err)
	}
	f := &File{Name: name, URL: p.h.storage.URL(name), Binary: true}
	if err := p.Set(ctx, key, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteFile removes the file setting key, releasing the stored object
// when no other scope references it.
func (p *Proxy) DeleteFile(ctx context.Context, key string) error {
	if p.h.storage != nil {
		if err := p.releaseFile(ctx, key); err != nil {
			return err
		}
	}
	return p.Delete(ctx, key)
}

func (p *Proxy) releaseFile(ctx context.Context, key string) error {
	f, ok, err := p.GetFile(ctx, key, true)
	if err != nil || !ok {
		return err
	}
	_ = f.Close()

	token, err := p.h.types.Serialize(f)
	if err != nil {
		return err
	}
	refs, err := p.h.backend.CountReferences(ctx, key, token, p.owner())
	if err != nil {
		return fmt.Errorf("settings: count references to %q: %w", f.Name, err)
	}
	if refs > 0 {
		return nil
	}

	if err := p.h.storage.Delete(ctx, f.Name); err != nil {
		p.logger(ctx).Error("Deleting stored file failed",
			slog.String("file", f.Name),
			slog.String("key", key),
			slog.Any("error", err))
	}
	return nil
}

// newFilename builds <kind>-<attribute>/<scope id>/<name>.<nonce>.<ext>.
func (p *Proxy) newFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := base[strings.LastIndex(base, ".")+1:]
	return fmt.Sprintf("%s-%s/%s/%s.%s.%s",
		strings.ToLower(p.scope.name), p.h.attribute, p.node.ScopeID(),
		base, idgen.Nonce(), ext)
}

func (p *Proxy) logger(ctx context.Context) *slog.Logger {
	if p.h.logger != nil {
		return p.h.logger
	}
	return logctx.FromContext(ctx)
}
