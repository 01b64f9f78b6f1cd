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

package database

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/datkeeper/datkeeper/pkg/helpers/syncutil"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

// goose keeps its filesystem and dialect in package globals.
var migrationMutex syncutil.Mutex

// gooseLogger sends goose output to zerolog at debug level.
type gooseLogger struct {
	store string
}

func (l *gooseLogger) Printf(format string, v ...any) {
	log.Debug().Str("store", l.store).Msgf(format, v...)
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	log.Fatal().Str("store", l.store).Msgf(format, v...)
}

// MigrateUp applies every pending migration found in dir of files and
// returns the resulting schema version. store names the database in logs.
func MigrateUp(db *sql.DB, files fs.FS, dir, store string) (int64, error) {
	migrationMutex.Lock()
	defer migrationMutex.Unlock()

	goose.SetLogger(&gooseLogger{store: store})
	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return 0, fmt.Errorf("failed to run %s migrations: %w", store, err)
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s schema version: %w", store, err)
	}
	log.Debug().Str("store", store).Int64("version", version).Msg("schema up to date")
	return version, nil
}
