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

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cardinalhq/hierarkey/internal/idgen"
	"github.com/cardinalhq/hierarkey/settings"
)

// Local stores files under a root directory.
type Local struct {
	root    string
	baseURL string
}

var _ settings.FileStorage = (*Local)(nil)

// NewLocal returns storage rooted at root. Files are addressed as
// baseURL + name.
func NewLocal(root, baseURL string) *Local {
	return &Local{root: root, baseURL: baseURL}
}

func (l *Local) path(name string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("blobstore: invalid name %q", name)
	}
	return filepath.Join(l.root, filepath.FromSlash(name)), nil
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, settings.ErrFileNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) URL(name string) string {
	if l.baseURL == "" {
		return name
	}
	return joinURL(l.baseURL, name)
}

// Save writes r to name. When name already exists a nonce is added to the
// base name and the new name is returned.
func (l *Local) Save(_ context.Context, name string, r io.Reader) (string, error) {
	for attempt := 0; ; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = withNonce(name)
		}
		p, err := l.path(candidate)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) && attempt < 10 {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(f, r); err != nil {
			_ = f.Close()
			_ = os.Remove(p)
			return "", err
		}
		return candidate, f.Close()
	}
}

// Delete removes name. Missing files are ignored.
func (l *Local) Delete(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// withNonce turns dir/name.ext into dir/name_<nonce>.ext.
func withNonce(name string) string {
	ext := path.Ext(name)
	nonce := idgen.Nonce()
	return strings.TrimSuffix(name, ext) + "_" + nonce[len(nonce)-8:] + ext
}
