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

package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/hierarkey/migrations"
)

const dbName = "settingsdb"

// CheckVersion verifies that the settings database is at the migration
// version embedded in this binary.
func CheckVersion(ctx context.Context, pool *pgxpool.Pool, options ...migrations.CheckOption) error {
	if !migrationCheckEnabled() {
		slog.Debug("Migration version checking disabled for settingsdb")
		return nil
	}

	opts := migrations.DefaultCheckOptions()
	for _, option := range options {
		option(&opts)
	}
	if opts.Mode == migrations.CheckModeSkip {
		slog.Debug("Migration version checking skipped for settingsdb")
		return nil
	}
	applyEnvironmentOverrides(&opts)

	expected, err := LatestVersion()
	if err != nil {
		return err
	}
	return checkVersion(ctx, expected, opts, func(ctx context.Context) (uint, bool, error) {
		return CurrentVersion(ctx, pool)
	})
}

// LatestVersion is the highest migration version embedded in this binary.
func LatestVersion() (uint, error) {
	return extractLatestMigrationVersion(migrationFiles)
}

func migrationCheckEnabled() bool {
	if val := os.Getenv("SETTINGSDB_MIGRATION_CHECK_ENABLED"); val != "" {
		return strings.ToLower(val) == "true"
	}
	return true
}

func applyEnvironmentOverrides(opts *migrations.CheckOptions) {
	if val := os.Getenv("MIGRATION_CHECK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			opts.Timeout = d
		}
	}
	if val := os.Getenv("MIGRATION_CHECK_RETRY_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			opts.RetryInterval = d
		}
	}
	if val := os.Getenv("MIGRATION_CHECK_ALLOW_DIRTY"); val != "" {
		opts.AllowDirty = strings.ToLower(val) == "true"
	}
}

// extractLatestMigrationVersion reads versions from names like
// "1760486400_hierarkey_settings.up.sql".
func extractLatestMigrationVersion(files fs.ReadDirFS) (uint, error) {
	entries, err := files.ReadDir(".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var maxVersion uint
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		maxVersion = max(maxVersion, uint(version))
	}

	if maxVersion == 0 {
		return 0, fmt.Errorf("no valid migration files found")
	}
	return maxVersion, nil
}

type versionFunc func(ctx context.Context) (version uint, dirty bool, err error)

func checkVersion(ctx context.Context, expected uint, opts migrations.CheckOptions, current versionFunc) error {
	version, dirty, err := current(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current migration version for %s: %w", dbName, err)
	}

	if dirty {
		switch {
		case opts.AllowDirty:
			slog.Warn("Database migration is dirty but allowed to continue", slog.String("database", dbName))
		case opts.Mode == migrations.CheckModeWarn:
			slog.Warn("Database migration is in dirty state, but continuing anyway", slog.String("database", dbName))
		default:
			return fmt.Errorf("database %s migration is in dirty state, please fix before proceeding", dbName)
		}
	}

	if version == expected {
		return nil
	}

	attrs := []any{
		slog.String("database", dbName),
		slog.Uint64("current_version", uint64(version)),
		slog.Uint64("expected_version", uint64(expected)),
	}

	if version > expected {
		if opts.Mode == migrations.CheckModeWarn {
			slog.Warn("Database version is newer than expected, but continuing anyway", attrs...)
			return nil
		}
		return fmt.Errorf("database %s version %d is newer than expected version %d - you may need to update the application",
			dbName, version, expected)
	}

	if opts.Mode == migrations.CheckModeWarn {
		slog.Warn("Database version is older than expected, but continuing anyway", attrs...)
		return nil
	}

	deadline := time.Now().Add(opts.Timeout)
	ticker := time.NewTicker(opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for %s migrations", dbName)
		case <-ticker.C:
		}

		version, _, err = current(ctx)
		if err != nil {
			return fmt.Errorf("failed to get current migration version for %s: %w", dbName, err)
		}
		if version == expected {
			slog.Info("Migration version check passed",
				slog.String("database", dbName),
				slog.Uint64("version", uint64(version)))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for %s migrations: at version %d, want %d",
				opts.Timeout, dbName, version, expected)
		}

		slog.Info("Waiting for migrations to complete",
			slog.String("database", dbName),
			slog.Uint64("current_version", uint64(version)),
			slog.Uint64("expected_version", uint64(expected)),
			slog.Duration("remaining_timeout", time.Until(deadline)))
	}
}
