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

package settingsdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/hierarkey/internal/dbopen"
	"github.com/cardinalhq/hierarkey/migrations"
	settingsdbmigrations "github.com/cardinalhq/hierarkey/settingsdb/migrations"
)

func ConnectToSettingsDB(ctx context.Context, opts ...dbopen.Options) (*pgxpool.Pool, error) {
	connectionString, err := dbopen.GetDatabaseURLFromEnv("SETTINGSDB")
	if err != nil {
		return nil, errors.Join(dbopen.ErrDatabaseNotConfigured, fmt.Errorf("failed to get SETTINGSDB connection string: %w", err))
	}

	pool, err := NewConnectionPool(ctx, connectionString)
	if err != nil {
		return nil, err
	}

	var migrationCheckOptions []migrations.CheckOption
	if len(opts) > 0 && len(opts[0].MigrationCheckOptions) > 0 {
		migrationCheckOptions = opts[0].MigrationCheckOptions
	}

	if err := settingsdbmigrations.CheckVersion(ctx, pool, migrationCheckOptions...); err != nil {
		pool.Close()
		return nil, fmt.Errorf("SETTINGSDB migration version check failed: %w", err)
	}

	return pool, nil
}

func SettingsDBStore(ctx context.Context, opts ...dbopen.Options) (QuerierFull, error) {
	pool, err := ConnectToSettingsDB(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// SettingsDBStoreForAdmin warns and continues on migration mismatches
// instead of waiting for them.
func SettingsDBStoreForAdmin(ctx context.Context) (QuerierFull, error) {
	return SettingsDBStore(ctx, dbopen.WarnOnMigrationMismatch())
}
