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

// Package database declares the persistent store for imported catalogs and
// per-system user choices. The SQLite implementation lives in catalogdb.
package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/filter"
)

var (
	// ErrSystemNotFound is returned for a system id that was never imported.
	ErrSystemNotFound = errors.New("system not found")
	// ErrScanNotFound is returned when no scan was saved for a system.
	ErrScanNotFound = errors.New("no scan recorded")
)

// System is one imported catalog.
type System struct {
	ImportedAt  time.Time
	SystemID    string
	Name        string
	Description string
	Version     string
	Author      string
	Homepage    string
	DatPath     string
	DBID        int64
	GameCount   int
	RomCount    int
}

// ScannedFile is the persisted outcome of one file of the last scan.
type ScannedFile struct {
	Path    string
	RomName string
	CRC32   string
	Status  classify.Status
	Size    int64
}

// ScanRecord describes the last scan stored for a system.
type ScanRecord struct {
	ScannedAt time.Time
	ScanID    string
	// Roots are the scanned folders in configured order.
	Roots     []string
	Files     []ScannedFile
	Summary   classify.Summary
	Cancelled bool
}

// GenericDBI is the lifecycle shared by every store.
type GenericDBI interface {
	Open() error
	UnsafeGetSQLDb() *sql.DB
	Truncate() error
	Allocate() error
	MigrateUp() error
	Vacuum() error
	Close() error
	GetDBPath() string
}

// CatalogStore persists imported catalogs and the user's choices for each
// system. Importing a catalog replaces the previous one for that system
// wholesale.
type CatalogStore interface {
	GenericDBI

	UpsertCatalog(ctx context.Context, systemID, datPath string, cat *catalog.Catalog) (System, error)
	GetSystem(ctx context.Context, systemID string) (System, error)
	ListSystems(ctx context.Context) ([]System, error)
	DeleteSystem(ctx context.Context, systemID string) error
	ListEntriesForSystem(ctx context.Context, systemID string) ([]*catalog.GameEntry, error)

	GetFilterConfig(ctx context.Context, systemID string) (filter.Config, error)
	SetFilterConfig(ctx context.Context, systemID string, cfg filter.Config) error
	ListHiddenTitles(ctx context.Context, systemID string) ([]string, error)
	SetHidden(ctx context.Context, systemID, title string, hidden bool) error

	RecordIgnoreOverride(ctx context.Context, systemID string, crc uint32, ignored bool) error
	ListIgnoreOverrides(ctx context.Context, systemID string) (classify.IgnoreSet, error)

	SaveScan(ctx context.Context, systemID string, scan *ScanRecord) error
	GetLastScan(ctx context.Context, systemID string) (*ScanRecord, error)
}
