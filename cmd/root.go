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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/hierarkey/config"
	"github.com/cardinalhq/hierarkey/internal/logctx"
)

type rootOptions struct {
	configFile     string
	logFormat      string
	logLevel       string
	migrationCheck string
	scopes         []string

	cfg               *config.Config
	shutdownTelemetry func() error
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "hierarkey",
		Short: "Inspect and edit hierarchical settings",
		Long: `Read and write the hierarchical settings stored in the settings database.

Scopes are addressed root first with repeated --scope kind:id flags. Without
--scope the global scope is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.shutdownTelemetry == nil {
				return nil
			}
			return opts.shutdownTelemetry()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Path to a config file (default ./config.yaml if present)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: json or text")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.migrationCheck, "migration-check", "", "Migration version check: wait, warn or skip")
	pf.StringArrayVar(&opts.scopes, "scope", nil, "Scope as kind:id, repeated from root to leaf")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newGetCmd(opts),
		newSetCmd(opts),
		newDeleteCmd(opts),
		newFreezeCmd(opts),
		newFlushCmd(opts),
		newDedupeCmd(opts),
	)
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return err
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.migrationCheck != "" {
		cfg.Migration.CheckMode = o.migrationCheck
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logctx.NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cmd.SetContext(logctx.WithLogger(cmd.Context(), logger))

	shutdown, err := setupTelemetry(cmd.Context())
	if err != nil {
		return err
	}
	o.shutdownTelemetry = shutdown

	o.cfg = cfg
	return nil
}

// Execute runs the hierarkey command line. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
