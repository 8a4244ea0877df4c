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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 1800*time.Second, cfg.Cache.TTL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HIERARKEY_ATTRIBUTE", "prefs")
	t.Setenv("HIERARKEY_SCOPES", "organization, event ,")
	t.Setenv("HIERARKEY_CACHE_BACKEND", "tiered")
	t.Setenv("HIERARKEY_CACHE_TTL", "5m")
	t.Setenv("HIERARKEY_CACHE_REDIS_ADDR", "redis:6380")
	t.Setenv("HIERARKEY_CACHE_REDIS_DB", "3")
	t.Setenv("HIERARKEY_STORAGE_BACKEND", "s3")
	t.Setenv("HIERARKEY_STORAGE_BUCKET", "media")
	t.Setenv("HIERARKEY_STORAGE_PATH_STYLE", "true")
	t.Setenv("HIERARKEY_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefs", cfg.Attribute)
	assert.Equal(t, []string{"organization", "event"}, cfg.Scopes)
	assert.Equal(t, "tiered", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "redis:6380", cfg.Cache.Redis.Addr)
	assert.Equal(t, 3, cfg.Cache.Redis.DB)
	assert.Equal(t, "json", cfg.Log.Format)

	bo := cfg.Storage.BlobstoreOptions()
	assert.Equal(t, "s3", bo.Backend)
	assert.Equal(t, "media", bo.Bucket)
	assert.True(t, bo.PathStyle)
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "hierarkey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
attribute: settings
scopes: [organization, event]
defaults:
  retention: "30"
cache:
  backend: none
storage:
  backend: azure
  container: uploads
  connection_string: UseDevelopmentStorage=true
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"organization", "event"}, cfg.Scopes)
	assert.Equal(t, map[string]string{"retention": "30"}, cfg.Defaults)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Container)
	assert.Equal(t, "UseDevelopmentStorage=true", cfg.Storage.ConnectionString)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty attribute", func(c *Config) { c.Attribute = "" }},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"storage backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"check mode", func(c *Config) { c.Migration.CheckMode = "never" }},
		{"duplicate scope", func(c *Config) { c.Scopes = []string{"org", "user", "org"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}
