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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/datkeeper/datkeeper/pkg/cli"
	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/helpers"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	//nolint:wrapcheck // command errors are already wrapped
	return cli.Execute(ctx, cli.Options{
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		LogWriters: []io.Writer{helpers.ConsoleWriter()},
		Defaults:   config.BaseDefaults,
	}, os.Args[1:])
}
