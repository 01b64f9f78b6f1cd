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

// Package service runs scans in the background and ties the catalog
// store, scanner and filter engine together.
package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/database/catalogdb"
	"github.com/datkeeper/datkeeper/pkg/helpers"
	"github.com/datkeeper/datkeeper/pkg/scanner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func setupEnvironment(dataDir string) error {
	if _, ok := helpers.HasUserDir(); ok {
		log.Info().Msg("using 'user' directory for storage")
	}

	dirs := []string{
		dataDir,
		filepath.Join(dataDir, config.LocksDir),
	}
	for _, dir := range dirs {
		err := os.MkdirAll(dir, 0o750)
		if err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func makeDatabase(dataDir string) (database.CatalogStore, error) {
	log.Debug().Msg("opening catalog database")
	db, err := catalogdb.Open(filepath.Join(dataDir, catalogdb.DBFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	return db, nil
}

// Start prepares the data directory, opens the catalog database and
// returns an engine working on the real filesystem. stop waits for
// background work and closes the database.
func Start(cfg *config.Instance, dataDir string) (engine *Engine, stop func() error, err error) {
	if err := setupEnvironment(dataDir); err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		return nil, nil, err
	}

	db, err := makeDatabase(dataDir)
	if err != nil {
		log.Error().Err(err).Msg("error opening database")
		return nil, nil, err
	}

	locker := scanner.NewLocker(filepath.Join(dataDir, config.LocksDir))
	engine = NewEngine(cfg, db, afero.NewOsFs(), locker)

	stop = func() error {
		engine.Close()
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close catalog database: %w", err)
		}
		return nil
	}
	return engine, stop, nil
}
