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

// Package mocks holds testify mocks of the store interfaces.
//
// Example:
//
//	func TestImportFailure(t *testing.T) {
//		store := mocks.NewMockCatalogStore()
//		store.On("GetSystem", mock.Anything, "snes").Return(database.System{}, nil)
//		store.On("UpsertCatalog", mock.Anything, "snes", mock.Anything, mock.Anything).
//			Return(database.System{}, errors.New("disk full"))
//
//		_, err := engine.ImportCatalog(ctx, "snes", path)
//		require.Error(t, err)
//		store.AssertExpectations(t)
//	}
package mocks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/stretchr/testify/mock"
)

var _ database.CatalogStore = (*MockCatalogStore)(nil)

// MockCatalogStore is a mock implementation of database.CatalogStore.
type MockCatalogStore struct {
	mock.Mock
}

func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{}
}

func (m *MockCatalogStore) Open() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore open failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) UnsafeGetSQLDb() *sql.DB {
	args := m.Called()
	if db, ok := args.Get(0).(*sql.DB); ok {
		return db
	}
	return nil
}

func (m *MockCatalogStore) Truncate() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore truncate failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) Allocate() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore allocate failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) MigrateUp() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore migrate up failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) Vacuum() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore vacuum failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) Close() error {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore close failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) GetDBPath() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCatalogStore) UpsertCatalog(
	ctx context.Context,
	systemID, datPath string,
	cat *catalog.Catalog,
) (database.System, error) {
	args := m.Called(ctx, systemID, datPath, cat)
	sys, _ := args.Get(0).(database.System)
	if err := args.Error(1); err != nil {
		return sys, fmt.Errorf("mock CatalogStore upsert catalog failed: %w", err)
	}
	return sys, nil
}

func (m *MockCatalogStore) GetSystem(ctx context.Context, systemID string) (database.System, error) {
	args := m.Called(ctx, systemID)
	sys, _ := args.Get(0).(database.System)
	if err := args.Error(1); err != nil {
		return sys, fmt.Errorf("mock CatalogStore get system failed: %w", err)
	}
	return sys, nil
}

func (m *MockCatalogStore) ListSystems(ctx context.Context) ([]database.System, error) {
	args := m.Called(ctx)
	systems, _ := args.Get(0).([]database.System)
	if err := args.Error(1); err != nil {
		return systems, fmt.Errorf("mock CatalogStore list systems failed: %w", err)
	}
	return systems, nil
}

func (m *MockCatalogStore) DeleteSystem(ctx context.Context, systemID string) error {
	args := m.Called(ctx, systemID)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore delete system failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) ListEntriesForSystem(ctx context.Context, systemID string) ([]*catalog.GameEntry, error) {
	args := m.Called(ctx, systemID)
	games, _ := args.Get(0).([]*catalog.GameEntry)
	if err := args.Error(1); err != nil {
		return games, fmt.Errorf("mock CatalogStore list entries failed: %w", err)
	}
	return games, nil
}

func (m *MockCatalogStore) GetFilterConfig(ctx context.Context, systemID string) (filter.Config, error) {
	args := m.Called(ctx, systemID)
	cfg, _ := args.Get(0).(filter.Config)
	if err := args.Error(1); err != nil {
		return cfg, fmt.Errorf("mock CatalogStore get filter config failed: %w", err)
	}
	return cfg, nil
}

//nolint:gocritic // matches the interface
func (m *MockCatalogStore) SetFilterConfig(ctx context.Context, systemID string, cfg filter.Config) error {
	args := m.Called(ctx, systemID, cfg)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore set filter config failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) ListHiddenTitles(ctx context.Context, systemID string) ([]string, error) {
	args := m.Called(ctx, systemID)
	titles, _ := args.Get(0).([]string)
	if err := args.Error(1); err != nil {
		return titles, fmt.Errorf("mock CatalogStore list hidden titles failed: %w", err)
	}
	return titles, nil
}

func (m *MockCatalogStore) SetHidden(ctx context.Context, systemID, title string, hidden bool) error {
	args := m.Called(ctx, systemID, title, hidden)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore set hidden failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) RecordIgnoreOverride(ctx context.Context, systemID string, crc uint32, ignored bool) error {
	args := m.Called(ctx, systemID, crc, ignored)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore record ignore override failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) ListIgnoreOverrides(ctx context.Context, systemID string) (classify.IgnoreSet, error) {
	args := m.Called(ctx, systemID)
	set, _ := args.Get(0).(classify.IgnoreSet)
	if err := args.Error(1); err != nil {
		return set, fmt.Errorf("mock CatalogStore list ignore overrides failed: %w", err)
	}
	return set, nil
}

func (m *MockCatalogStore) SaveScan(ctx context.Context, systemID string, scan *database.ScanRecord) error {
	args := m.Called(ctx, systemID, scan)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock CatalogStore save scan failed: %w", err)
	}
	return nil
}

func (m *MockCatalogStore) GetLastScan(ctx context.Context, systemID string) (*database.ScanRecord, error) {
	args := m.Called(ctx, systemID)
	rec, _ := args.Get(0).(*database.ScanRecord)
	if err := args.Error(1); err != nil {
		return rec, fmt.Errorf("mock CatalogStore get last scan failed: %w", err)
	}
	return rec, nil
}
