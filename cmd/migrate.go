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
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/hierarkey/internal/dbopen"
	"github.com/cardinalhq/hierarkey/internal/logctx"
	"github.com/cardinalhq/hierarkey/settingsdb"
	settingsdbmigrations "github.com/cardinalhq/hierarkey/settingsdb/migrations"
)

func newMigrateCmd(_ *rootOptions) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run settings database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd, statusOnly)
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Only report the applied and expected versions")
	return cmd
}

func migrate(cmd *cobra.Command, statusOnly bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	logger := logctx.FromContext(ctx)

	pool, err := settingsdb.ConnectToSettingsDB(ctx, dbopen.SkipMigrationCheck())
	if err != nil {
		return err
	}
	defer pool.Close()

	var result *multierror.Error
	if !statusOnly {
		logger.Info("Running settingsdb migrations")
		if err := settingsdbmigrations.RunMigrationsUp(ctx, pool); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to migrate settingsdb: %w", err))
		}
	}

	current, dirty, err := settingsdbmigrations.CurrentVersion(ctx, pool)
	if err != nil {
		result = multierror.Append(result, err)
		return result.ErrorOrNil()
	}
	expected, err := settingsdbmigrations.LatestVersion()
	if err != nil {
		result = multierror.Append(result, err)
		return result.ErrorOrNil()
	}

	logger.Info("settingsdb migration status",
		slog.Uint64("current_version", uint64(current)),
		slog.Uint64("expected_version", uint64(expected)),
		slog.Bool("dirty", dirty))
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "current=%d expected=%d dirty=%t\n", current, expected, dirty)
	return result.ErrorOrNil()
}
