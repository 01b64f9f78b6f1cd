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

// Package sqlmock builds go-sqlmock connections for store tests. It is kept
// apart from helpers so store packages can import it without a cycle.
package sqlmock

import (
	"database/sql"
	"fmt"

	"github.com/DATA-DOG/go-sqlmock"
)

// NewSQLMock returns a mock connection whose expectations match queries by
// regular expression.
func NewSQLMock() (*sql.DB, sqlmock.Sqlmock, error) {
	db, mockDB, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sqlmock: %w", err)
	}
	return db, mockDB, nil
}

// ExpectSystemLookup expects the system id lookup every per-system query
// starts with, answering with dbid.
func ExpectSystemLookup(mock sqlmock.Sqlmock, systemID string, dbid int64) {
	mock.ExpectQuery(`select DBID from Systems where SystemID = \?`).
		WithArgs(systemID).
		WillReturnRows(sqlmock.NewRows([]string{"DBID"}).AddRow(dbid))
}

// ExpectMissingSystem expects a system id lookup that finds nothing.
func ExpectMissingSystem(mock sqlmock.Sqlmock, systemID string) {
	mock.ExpectQuery(`select DBID from Systems where SystemID = \?`).
		WithArgs(systemID).
		WillReturnRows(sqlmock.NewRows([]string{"DBID"}))
}
