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
	"fmt"
	"reflect"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/viper"

	"github.com/cardinalhq/hierarkey/blobstore"
	"github.com/cardinalhq/hierarkey/migrations"
	"github.com/cardinalhq/hierarkey/settings"
)

var (
	cacheBackends   = mapset.NewSet("memory", "redis", "tiered", "none")
	storageBackends = mapset.NewSet("local", "s3", "azure")
	logFormats      = mapset.NewSet("json", "text")
)

// Config aggregates configuration for the hierarkey command.
type Config struct {
	// Attribute names the settings attribute on every scope.
	Attribute string `mapstructure:"attribute"`
	// Scopes lists the row scope kinds below the global scope, root first.
	Scopes []string `mapstructure:"scopes"`
	// Defaults are registered as string defaults of the hierarchy.
	Defaults  map[string]string `mapstructure:"defaults"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Log       LogConfig         `mapstructure:"log"`
	Migration MigrationConfig   `mapstructure:"migration"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	FrontTTL time.Duration `mapstructure:"front_ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	Path             string `mapstructure:"path"`
	BaseURL          string `mapstructure:"base_url"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	Endpoint         string `mapstructure:"endpoint"`
	PathStyle        bool   `mapstructure:"path_style"`
	Prefix           string `mapstructure:"prefix"`
	Container        string `mapstructure:"container"`
	ConnectionString string `mapstructure:"connection_string"`
}

// BlobstoreOptions maps the storage section onto blobstore.Options.
func (s StorageConfig) BlobstoreOptions() blobstore.Options {
	return blobstore.Options{
		Backend:          s.Backend,
		Path:             s.Path,
		BaseURL:          s.BaseURL,
		Bucket:           s.Bucket,
		Region:           s.Region,
		Endpoint:         s.Endpoint,
		PathStyle:        s.PathStyle,
		Prefix:           s.Prefix,
		Container:        s.Container,
		ConnectionString: s.ConnectionString,
	}
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type MigrationConfig struct {
	// CheckMode is "wait", "warn" or "skip".
	CheckMode string `mapstructure:"check_mode"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Attribute: "settings",
		Cache: CacheConfig{
			Backend:  "memory",
			TTL:      settings.DefaultCacheTTL,
			FrontTTL: 10 * time.Second,
			Redis:    RedisConfig{Addr: "localhost:6379"},
		},
		Storage: StorageConfig{
			Backend: "local",
			Path:    "media",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Migration: MigrationConfig{CheckMode: "wait"},
	}
}

// Load reads configuration from an optional config.yaml and environment
// variables. Environment variables use the prefix "HIERARKEY" and the dot
// character in keys is replaced by an underscore. For example,
// "cache.redis.addr" becomes "HIERARKEY_CACHE_REDIS_ADDR".
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml, which need not exist.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("HIERARKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); path != "" || !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if s := v.GetString("scopes"); s != "" {
		cfg.Scopes = splitList(s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and duplicate scopes.
func (c *Config) Validate() error {
	if c.Attribute == "" {
		return fmt.Errorf("config: attribute must not be empty")
	}
	if !cacheBackends.Contains(c.Cache.Backend) {
		return fmt.Errorf("config: unknown cache.backend %q, want one of %v", c.Cache.Backend, cacheBackends.ToSlice())
	}
	if !storageBackends.Contains(c.Storage.Backend) {
		return fmt.Errorf("config: unknown storage.backend %q, want one of %v", c.Storage.Backend, storageBackends.ToSlice())
	}
	if !logFormats.Contains(c.Log.Format) {
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	if _, err := migrations.ParseCheckMode(c.Migration.CheckMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, s := range c.Scopes {
		if !seen.Add(s) {
			return fmt.Errorf("config: scope %q listed twice", s)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts[:len(parts):len(parts)], tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
