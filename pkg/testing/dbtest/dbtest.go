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

// Package dbtest opens throwaway catalog stores for tests. It lives outside
// helpers because the store imports packages whose tests use helpers.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/datkeeper/datkeeper/pkg/database/catalogdb"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
)

// NewInMemoryCatalogDB returns a migrated store backed by a temporary file
// and driven by clock. A nil clock uses a new fake clock.
func NewInMemoryCatalogDB(t *testing.T, clock clockwork.Clock) (db *catalogdb.CatalogDB, cleanup func()) {
	t.Helper()

	if clock == nil {
		clock = clockwork.NewFakeClock()
	}

	// A temp file rather than :memory: so every pooled connection sees the
	// same database.
	dbPath := filepath.Join(t.TempDir(), "catalogdb_test.db")
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=ON")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	db = &catalogdb.CatalogDB{}
	if err := db.SetSQLForTesting(sqlDB, clock); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			t.Errorf("Failed to close SQL database after setup error: %v", closeErr)
		}
		t.Fatalf("Failed to set up CatalogDB for testing: %v", err)
	}

	cleanup = func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close CatalogDB: %v", err)
		}
	}
	return db, cleanup
}
