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

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/hierarkey/internal/logctx"
)

func newDedupeCmd(root *rootOptions) *cobra.Command {
	var collections []string
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate settings rows, keeping the last stored one",
		Long: `Remove rows that repeat a key within one scope node. The row stored last
is kept, which is the value lookups already return.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			return dedupe(ctx, b, collections)
		},
	}
	cmd.Flags().StringSliceVar(&collections, "collection", nil, "Collections to clean (default all)")
	return cmd
}

func dedupe(ctx context.Context, b backend, collections []string) error {
	logger := logctx.FromContext(ctx)
	if len(collections) == 0 {
		var err error
		if collections, err = b.ListSettingCollections(ctx); err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
	}

	var result *multierror.Error
	for _, coll := range collections {
		n, err := b.CleanDuplicates(ctx, coll)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", coll, err))
			continue
		}
		if n > 0 {
			logger.Info("Removed duplicate settings", slog.String("collection", coll), slog.Int64("rows", n))
		}
	}
	return result.ErrorOrNil()
}
