// DatKeeper
// Copyright (c) 2025 The DatKeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of DatKeeper.
//
// DatKeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// DatKeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with DatKeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package cli builds the datkeeper command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/helpers"
	"github.com/datkeeper/datkeeper/pkg/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Options are the streams the commands talk to. LogWriters receive log
// output in addition to the log file when --verbose is set. Defaults
// without a schema version means config.BaseDefaults.
type Options struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	LogWriters []io.Writer
	Defaults   config.Values
}

// Setup initialises logging and loads the config file.
//
//nolint:gocritic // config struct copied for immutability
func Setup(configDir, dataDir string, defaults config.Values, writers []io.Writer) (*config.Instance, error) {
	err := helpers.InitLogging(filepath.Join(dataDir, config.LogsDir), writers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logging: %w", err)
	}

	cfg, err := config.NewConfig(configDir, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return cfg, nil
}

// app holds what the commands share. It is filled in by the root
// command's pre-run hook, once flags are parsed.
type app struct {
	cfg       *config.Instance
	engine    *service.Engine
	stop      func() error
	opts      Options
	configDir string
	dataDir   string
	verbose   bool
}

func (a *app) start() error {
	var writers []io.Writer
	if a.verbose {
		writers = a.opts.LogWriters
	}

	cfg, err := Setup(a.configDir, a.dataDir, a.opts.Defaults, writers)
	if err != nil {
		return err
	}
	a.cfg = cfg

	engine, stop, err := service.Start(cfg, a.dataDir)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	a.engine = engine
	a.stop = stop
	return nil
}

func (a *app) close() {
	if a.stop == nil {
		return
	}
	if err := a.stop(); err != nil {
		log.Error().Err(err).Msg("error stopping engine")
	}
	a.stop = nil
}

func (a *app) out() io.Writer {
	return a.opts.Out
}

// Execute runs the command line args. Cancelling ctx stops a running scan;
// its partial results are still reported.
//
//nolint:gocritic // options copied once per run
func Execute(ctx context.Context, opts Options, args []string) error {
	if opts.Defaults.ConfigSchema == 0 {
		opts.Defaults = config.BaseDefaults
	}
	a := &app{opts: opts}
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	if opts.In != nil {
		root.SetIn(opts.In)
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Strs("args", args).Msg("command failed")
	}
	return err
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Reconcile ROM collections against DAT catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.opts.Out == nil {
				a.opts.Out = cmd.OutOrStdout()
			}
			if a.opts.In == nil {
				a.opts.In = cmd.InOrStdin()
			}
			if a.opts.Err == nil {
				a.opts.Err = cmd.ErrOrStderr()
			}
			return a.start()
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", helpers.ConfigDir(), "folder holding config.toml")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", helpers.DataDir(), "folder holding the catalog database and logs")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print log output to the terminal")

	root.AddCommand(
		newImportCommand(a),
		newSystemsCommand(a),
		newFoldersCommand(a),
		newRemoveCommand(a),
		newWatchCommand(a),
		newScanCommand(a),
		newMissingCommand(a),
		newApplyCommand(a),
		newStatusCommand(a),
		newFiltersCommand(a),
		newHideCommand(a),
		newIgnoreCommand(a),
	)
	return root
}
