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

package catalogdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/datkeeper/datkeeper/pkg/testing/fixtures"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*CatalogDB, *clockwork.FakeClock) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog_test.db")
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=ON")
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(testEpoch)
	db := &CatalogDB{path: dbPath}
	if err := db.SetSQLForTesting(sqlDB, clock); err != nil {
		_ = sqlDB.Close()
		t.Fatalf("failed to set up catalog db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close catalog db: %v", err)
		}
	})
	return db, clock
}

func parseSample(t *testing.T) *catalog.Catalog {
	t.Helper()
	games := fixtures.Games(".bin", 64, "Alpha (USA)", "Alpha (Europe) (Rev 1)", "Long Quest (Japan) (Disc 2)")
	games[1].Roms = append(games[1].Roms, &catalog.RomRecord{
		Name: "Alpha (Europe) (Rev 1) (Track 2).bin", Size: 32, CRC32: 0xFFFFFFFF, MD5: "abc", Status: "verified",
	})
	games[2].CloneOf = "Long Quest (USA) (Disc 2)"
	games[2].Description = "Long Quest, disc two"
	return fixtures.Catalog(games...)
}

func TestUpsertCatalogRoundTrip(t *testing.T) {
	t.Parallel()
	db, _ := newTestDB(t)
	ctx := context.Background()

	cat := parseSample(t)
	sys, err := db.UpsertCatalog(ctx, "snes", "/dats/snes.dat", cat)
	require.NoError(t, err)
	assert.Equal(t, "snes", sys.SystemID)
	assert.Equal(t, "Test - System", sys.Name)
	assert.Equal(t, "/dats/snes.dat", sys.DatPath)
	assert.Equal(t, 3, sys.GameCount)
	assert.Equal(t, 4, sys.RomCount)
	assert.True(t, sys.ImportedAt.Equal(testEpoch))

	entries, err := db.ListEntriesForSystem(ctx, "snes")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		want := cat.Games[i]
		assert.Equal(t, want.ID, e.ID)
		assert.Equal(t, want.Title, e.Title)
		assert.Equal(t, want.MajorName, e.MajorName)
		assert.Equal(t, want.GroupKey(), e.GroupKey())
		assert.Equal(t, want.Index, e.Index)
		assert.Equal(t, want.Description, e.Description)
		assert.Equal(t, want.CloneOf, e.CloneOf)
		require.Len(t, e.Roms, len(want.Roms))
		for j, r := range e.Roms {
			assert.Equal(t, want.Roms[j].Name, r.Name)
			assert.Equal(t, want.Roms[j].CRC32, r.CRC32)
			assert.Equal(t, want.Roms[j].Size, r.Size)
			assert.Equal(t, e.ID, r.GameID)
		}
	}
	assert.Equal(t, "abc", entries[1].Roms[1].MD5)
	assert.True(t, entries[1].Attrs.Verified, "rom status survives the round trip")
}

func TestUpsertCatalogReplaces(t *testing.T) {
	t.Parallel()
	db, clock := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertCatalog(ctx, "snes", "/dats/a.dat", parseSample(t))
	require.NoError(t, err)
	require.NoError(t, db.SetHidden(ctx, "snes", "Alpha", true))

	clock.Advance(time.Hour)
	newer := fixtures.Catalog(fixtures.SuperGame()...)
	newer.Header.Version = "20250601"
	sys, err := db.UpsertCatalog(ctx, "snes", "/dats/b.dat", newer)
	require.NoError(t, err)
	assert.Equal(t, 2, sys.GameCount)
	assert.Equal(t, "20250601", sys.Version)
	assert.True(t, sys.ImportedAt.Equal(testEpoch.Add(time.Hour)))

	entries, err := db.ListEntriesForSystem(ctx, "snes")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Super Game (USA)", entries[0].Title)

	hidden, err := db.ListHiddenTitles(ctx, "snes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, hidden, "user settings survive a reimport")
}

func TestSystemsAreIsolated(t *testing.T) {
	t.Parallel()
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertCatalog(ctx, "snes", "", parseSample(t))
	require.NoError(t, err)
	_, err = db.UpsertCatalog(ctx, "gb", "", fixtures.Catalog(fixtures.SuperGame()...))
	require.NoError(t, err)

	systems, err := db.ListSystems(ctx)
	require.NoError(t, err)
	require.Len(t, systems, 2)
	assert.Equal(t, "gb", systems[0].SystemID)
	assert.Equal(t, "snes", systems[1].SystemID)

	require.NoError(t, db.DeleteSystem(ctx, "gb"))
	_, err = db.GetSystem(ctx, "gb")
	require.ErrorIs(t, err, database.ErrSystemNotFound)
	_, err = db.ListEntriesForSystem(ctx, "gb")
	require.ErrorIs(t, err, database.ErrSystemNotFound)

	entries, err := db.ListEntriesForSystem(ctx, "snes")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFilterConfigRoundTrip(t *testing.T) {
	t.Parallel()
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertCatalog(ctx, "snes", "", parseSample(t))
	require.NoError(t, err)

	cfg, err := db.GetFilterConfig(ctx, "snes")
	require.NoError(t, err)
	assert.Equal(t, filter.DefaultConfig(), cfg)

	cfg = filter.Config{
		Regions:         []string{"Europe", "USA"},
		Languages:       []string{"En"},
		ExcludeFlags:    []string{"beta", "demo"},
		Hidden:          []string{"Alpha", "Long Quest"},
		RequireVerified: true,
		ExcludeHacks:    true,
		Dedup:           true,
	}
	require.NoError(t, db.SetFilterConfig(ctx, "snes", cfg))

	got, err := db.GetFilterConfig(ctx, "snes")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	require.NoError(t, db.SetHidden(ctx, "snes", "Alpha", false))
	hidden, err := db.ListHiddenTitles(ctx, "snes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Long Quest"}, hidden)

	err = db.SetFilterConfig(ctx, "nes", cfg)
	require.ErrorIs(t, err, database.ErrSystemNotFound)
}

func TestIgnoreOverrides(t *testing.T) {
	t.Parallel()
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertCatalog(ctx, "snes", "", parseSample(t))
	require.NoError(t, err)

	require.NoError(t, db.RecordIgnoreOverride(ctx, "snes", 0xFFFFFFFF, true))
	require.NoError(t, db.RecordIgnoreOverride(ctx, "snes", 0x12, true))
	require.NoError(t, db.RecordIgnoreOverride(ctx, "snes", 0x12, true))

	set, err := db.ListIgnoreOverrides(ctx, "snes")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x12, 0xFFFFFFFF}, set.Sorted())

	require.NoError(t, db.RecordIgnoreOverride(ctx, "snes", 0x12, false))
	set, err = db.ListIgnoreOverrides(ctx, "snes")
	require.NoError(t, err)
	assert.True(t, set.Has(0xFFFFFFFF))
	assert.False(t, set.Has(0x12))
}

func TestScanRoundTrip(t *testing.T) {
	t.Parallel()
	db, clock := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertCatalog(ctx, "snes", "", parseSample(t))
	require.NoError(t, err)

	_, err = db.GetLastScan(ctx, "snes")
	require.ErrorIs(t, err, database.ErrScanNotFound)

	scan := &database.ScanRecord{
		ScannedAt: clock.Now(),
		ScanID:    "0b8a6f3e-7a51-4d0e-9a4f-2b1f4f8a9c01",
		Roots:     []string{"/roms/snes", "/mnt/usb/snes"},
		Summary:   classify.Summary{Correct: 1, Unrecognized: 1, Missing: 2},
		Files: []database.ScannedFile{
			{Path: "/roms/snes/Alpha (USA).bin", RomName: "Alpha (USA).bin", CRC32: "0a1b2c3d", Status: classify.Correct, Size: 64},
			{Path: "/roms/snes/zz.bin", Status: classify.Unrecognized, Size: 3},
		},
	}
	require.NoError(t, db.SaveScan(ctx, "snes", scan))

	got, err := db.GetLastScan(ctx, "snes")
	require.NoError(t, err)
	assert.Equal(t, scan.ScanID, got.ScanID)
	assert.Equal(t, scan.Roots, got.Roots)
	assert.Equal(t, scan.Summary, got.Summary)
	assert.Equal(t, scan.Files, got.Files)
	assert.True(t, got.ScannedAt.Equal(testEpoch))

	scan.Files = scan.Files[:1]
	scan.Cancelled = true
	require.NoError(t, db.SaveScan(ctx, "snes", scan))
	got, err = db.GetLastScan(ctx, "snes")
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.Len(t, got.Files, 1)
}

func TestClosedStore(t *testing.T) {
	t.Parallel()
	db := &CatalogDB{}
	_, err := db.ListSystems(context.Background())
	require.ErrorIs(t, err, ErrNullSQL)
	require.NoError(t, db.Close())
}

func TestOpenCreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", DBFile)
	db, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, path, db.GetDBPath())
	systems, err := db.ListSystems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, systems)
}
