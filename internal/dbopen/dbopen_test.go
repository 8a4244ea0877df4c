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

package dbopen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(name string) string { return m[name] }
}

func TestGetDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		want    string
		wantErr string
	}{
		{
			name: "url wins",
			vars: map[string]string{"SETTINGSDB_URL": "postgres://x/y", "SETTINGSDB_HOST": "ignored"},
			want: "postgres://x/y",
		},
		{
			name: "minimal",
			vars: map[string]string{"SETTINGSDB_HOST": "db", "SETTINGSDB_DBNAME": "settings"},
			want: "postgresql://db:5432/settings",
		},
		{
			name: "full",
			vars: map[string]string{
				"SETTINGSDB_HOST":     "db",
				"SETTINGSDB_PORT":     "6543",
				"SETTINGSDB_DBNAME":   "settings",
				"SETTINGSDB_USER":     "app",
				"SETTINGSDB_PASSWORD": "s3cret",
				"SETTINGSDB_SSLMODE":  "require",
			},
			want: "postgresql://app:s3cret@db:6543/settings?sslmode=require",
		},
		{
			name: "user without password",
			vars: map[string]string{"SETTINGSDB_HOST": "db", "SETTINGSDB_DBNAME": "settings", "SETTINGSDB_USER": "app"},
			want: "postgresql://app@db:5432/settings",
		},
		{
			name: "application name",
			vars: map[string]string{"SETTINGSDB_HOST": "db", "SETTINGSDB_DBNAME": "s", "OTEL_SERVICE_NAME": "hierarkey cli"},
			want: "postgresql://db:5432/s?application_name=hierarkey_cli",
		},
		{
			name:    "missing",
			vars:    map[string]string{"SETTINGSDB_PORT": "1"},
			wantErr: "SETTINGSDB_HOST, SETTINGSDB_DBNAME",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetDatabaseURL("SETTINGSDB", mapLookup(tt.vars))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetDatabaseURLFromEnv(t *testing.T) {
	t.Setenv("HKTEST_URL", "")
	t.Setenv("HKTEST_HOST", "localhost")
	t.Setenv("HKTEST_DBNAME", "hk")
	t.Setenv("OTEL_SERVICE_NAME", "")

	got, err := GetDatabaseURLFromEnv("HKTEST_")
	require.NoError(t, err)
	assert.Equal(t, "postgresql://localhost:5432/hk", got)
}

func TestApplicationNameTruncates(t *testing.T) {
	assert.Len(t, applicationName(strings.Repeat("a", 80)), 63)
	assert.Equal(t, "a_b-c", applicationName("a.b-c"))
}
