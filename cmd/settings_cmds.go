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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/hierarkey/internal/logctx"
	"github.com/cardinalhq/hierarkey/settings"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	var (
		typeName string
		def      string
		binary   bool
	)
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the effective value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := parseValueType(typeName)
			if err != nil {
				return err
			}
			return root.withProxy(cmd.Context(), func(ctx context.Context, a *app, p *settings.Proxy) error {
				opts := []settings.GetOption{settings.AsType(typ)}
				if cmd.Flags().Changed("default") {
					opts = append(opts, settings.WithDefault(def))
				}
				if binary {
					opts = append(opts, settings.BinaryFile())
				}
				v, err := p.Get(ctx, args[0], opts...)
				if err != nil {
					return err
				}
				if b, ok := v.(bool); ok && !b && typ == settings.FileType {
					return fmt.Errorf("file for %q is missing from storage", args[0])
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), displayValue(a.h.Types(), v))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "Read the value as this type")
	cmd.Flags().StringVar(&def, "default", "", "Value to use when the setting is not set anywhere")
	cmd.Flags().BoolVar(&binary, "binary", false, "Open file settings in binary mode")
	return cmd
}

func newSetCmd(root *rootOptions) *cobra.Command {
	var (
		typeName string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "set KEY [VALUE]",
		Short: "Store a setting in the selected scope",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (len(args) == 1) {
				return fmt.Errorf("give either VALUE or --file")
			}
			typ, err := parseValueType(typeName)
			if err != nil {
				return err
			}
			return root.withProxy(cmd.Context(), func(ctx context.Context, a *app, p *settings.Proxy) error {
				key := args[0]
				if file != "" {
					return storeFile(ctx, cmd, p, key, file)
				}
				v, err := convertValue(ctx, a.h.Types(), args[1], typ)
				if err != nil {
					return err
				}
				if err := p.Set(ctx, key, v); err != nil {
					return err
				}
				logctx.FromContext(ctx).Info("Setting stored", slog.String("key", key))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "Parse VALUE as this type before storing it")
	cmd.Flags().StringVar(&file, "file", "", "Upload this file and store a reference to it")
	return cmd
}

func storeFile(ctx context.Context, cmd *cobra.Command, p *settings.Proxy, key, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	f, err := p.StoreFile(ctx, key, filepath.Base(path), fh)
	if err != nil {
		return err
	}
	logctx.FromContext(ctx).Info("File stored", slog.String("key", key), slog.String("file", f.Name))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), f.URL)
	return err
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var file bool
	cmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a setting from the selected scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withProxy(cmd.Context(), func(ctx context.Context, _ *app, p *settings.Proxy) error {
				if file {
					return p.DeleteFile(ctx, args[0])
				}
				return p.Delete(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&file, "file", false, "Also release the stored file when nothing else references it")
	return cmd
}

func newFreezeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "freeze",
		Short: "Print every effective setting of the selected scope as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withProxy(cmd.Context(), func(ctx context.Context, a *app, p *settings.Proxy) error {
				frozen, err := p.Freeze(ctx)
				if err != nil {
					return err
				}
				out := make(map[string]any, len(frozen))
				for k, v := range frozen {
					out[k] = jsonValue(a.h.Types(), v)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}
}

func newFlushCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Drop the cached settings of the selected scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withProxy(cmd.Context(), func(ctx context.Context, _ *app, p *settings.Proxy) error {
				return p.Flush(ctx)
			})
		},
	}
}
