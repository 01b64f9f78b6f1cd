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

// Package catalogdb is the SQLite implementation of database.CatalogStore.
package catalogdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNullSQL is returned by every operation on a closed store.
var ErrNullSQL = errors.New("catalog database is not connected")

// DBFile is the store's file name inside the data directory.
const DBFile = "catalog.db"

const sqliteConnParams = "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"

var _ database.CatalogStore = (*CatalogDB)(nil)

// CatalogDB stores catalogs and per-system settings in one SQLite file.
type CatalogDB struct {
	sql   *sql.DB
	clock clockwork.Clock
	path  string
}

// Open opens (creating when needed) the store at path and migrates it to
// the latest schema.
func Open(path string) (*CatalogDB, error) {
	db := &CatalogDB{path: path, clock: clockwork.NewRealClock()}
	if err := db.Open(); err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects to the database file and applies pending migrations.
func (db *CatalogDB) Open() error {
	if err := os.MkdirAll(filepath.Dir(db.path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for database: %w", err)
	}
	sqlInstance, err := sql.Open("sqlite3", db.path+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	if db.clock == nil {
		db.clock = clockwork.NewRealClock()
	}
	return db.Allocate()
}

func (db *CatalogDB) GetDBPath() string {
	return db.path
}

func (db *CatalogDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

func (db *CatalogDB) Truncate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlTruncate(context.Background(), db.sql)
}

func (db *CatalogDB) Allocate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CatalogDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CatalogDB) Vacuum() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlVacuum(context.Background(), db.sql)
}

func (db *CatalogDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	db.sql = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting injects a connection and clock and migrates the schema.
// Only for tests.
func (db *CatalogDB) SetSQLForTesting(sqlDB *sql.DB, clock clockwork.Clock) error {
	db.sql = sqlDB
	db.clock = clock
	return db.Allocate()
}

func (db *CatalogDB) UpsertCatalog(
	ctx context.Context,
	systemID, datPath string,
	cat *catalog.Catalog,
) (database.System, error) {
	if db.sql == nil {
		return database.System{}, ErrNullSQL
	}
	if err := sqlUpsertCatalog(ctx, db.sql, db.clock.Now(), systemID, datPath, cat); err != nil {
		return database.System{}, err
	}
	return sqlGetSystem(ctx, db.sql, systemID)
}

func (db *CatalogDB) GetSystem(ctx context.Context, systemID string) (database.System, error) {
	if db.sql == nil {
		return database.System{}, ErrNullSQL
	}
	return sqlGetSystem(ctx, db.sql, systemID)
}

func (db *CatalogDB) ListSystems(ctx context.Context) ([]database.System, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListSystems(ctx, db.sql)
}

func (db *CatalogDB) DeleteSystem(ctx context.Context, systemID string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlDeleteSystem(ctx, db.sql, systemID)
}

func (db *CatalogDB) ListEntriesForSystem(ctx context.Context, systemID string) ([]*catalog.GameEntry, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListEntries(ctx, db.sql, systemID)
}

func (db *CatalogDB) GetFilterConfig(ctx context.Context, systemID string) (filter.Config, error) {
	if db.sql == nil {
		return filter.Config{}, ErrNullSQL
	}
	return sqlGetFilterConfig(ctx, db.sql, systemID)
}

//nolint:gocritic // config passed by value like the interface
func (db *CatalogDB) SetFilterConfig(ctx context.Context, systemID string, cfg filter.Config) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSetFilterConfig(ctx, db.sql, db.clock.Now(), systemID, cfg)
}

func (db *CatalogDB) ListHiddenTitles(ctx context.Context, systemID string) ([]string, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListHiddenTitles(ctx, db.sql, systemID)
}

func (db *CatalogDB) SetHidden(ctx context.Context, systemID, title string, hidden bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSetHidden(ctx, db.sql, systemID, title, hidden)
}

func (db *CatalogDB) RecordIgnoreOverride(ctx context.Context, systemID string, crc uint32, ignored bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlRecordIgnoreOverride(ctx, db.sql, db.clock.Now(), systemID, crc, ignored)
}

func (db *CatalogDB) ListIgnoreOverrides(ctx context.Context, systemID string) (classify.IgnoreSet, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListIgnoreOverrides(ctx, db.sql, systemID)
}

func (db *CatalogDB) SaveScan(ctx context.Context, systemID string, scan *database.ScanRecord) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlSaveScan(ctx, db.sql, systemID, scan)
}

func (db *CatalogDB) GetLastScan(ctx context.Context, systemID string) (*database.ScanRecord, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlGetLastScan(ctx, db.sql, systemID)
}
