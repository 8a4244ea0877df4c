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

// Package testhelpers provisions throwaway settings databases for tests
// that run against a real Postgres server.
package testhelpers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/hierarkey/internal/dbopen"
	"github.com/cardinalhq/hierarkey/settingsdb"
	settingsdbmigrations "github.com/cardinalhq/hierarkey/settingsdb/migrations"
)

// SetupTestSettingsDB creates a clean database with migrations applied on
// the server named by the SETTINGSDB_* environment. The database is dropped
// during t.Cleanup.
func SetupTestSettingsDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	dbName := fmt.Sprintf("test_hierarkey_%d_%d", time.Now().Unix(), rand.Intn(10000))

	baseURL, err := dbopen.GetDatabaseURL("SETTINGSDB", func(name string) string {
		switch name {
		case "SETTINGSDB_HOST":
			return getEnvOrDefault(name, "localhost")
		case "SETTINGSDB_DBNAME":
			return getEnvOrDefault(name, "testing_hierarkey")
		case "SETTINGSDB_USER":
			return getEnvOrDefault(name, os.Getenv("USER"))
		}
		return os.Getenv(name)
	})
	if err != nil {
		t.Fatalf("Failed to build settings database URL: %v", err)
	}

	basePool, err := pgxpool.New(ctx, baseURL)
	if err != nil {
		t.Fatalf("Failed to connect to base database: %v", err)
	}

	if _, err := basePool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		basePool.Close()
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}

	testURL, err := withDatabase(baseURL, dbName)
	if err != nil {
		basePool.Close()
		t.Fatalf("Failed to build test database URL: %v", err)
	}
	testPool, err := settingsdb.NewConnectionPool(ctx, testURL)
	if err != nil {
		basePool.Close()
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := settingsdbmigrations.RunMigrationsUp(ctx, testPool); err != nil {
		testPool.Close()
		basePool.Close()
		t.Fatalf("Failed to run settingsdb migrations: %v", err)
	}

	t.Cleanup(func() {
		testPool.Close()
		_, err := basePool.Exec(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
		if err != nil {
			slog.Error("Failed to drop test database", slog.String("dbName", dbName), slog.Any("error", err))
		}
		basePool.Close()
	})

	return testPool
}

// NewTestSettingsDBStore creates a settings store connected to a test database.
func NewTestSettingsDBStore(t *testing.T) *settingsdb.Store {
	return settingsdb.NewStore(SetupTestSettingsDB(t))
}

func withDatabase(rawURL, dbName string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
