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

package scanner

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/testing/fixtures"
	"github.com/datkeeper/datkeeper/pkg/testing/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const romSize = 512

func content(title string) []byte {
	return fixtures.Content(title, romSize)
}

func testCatalog() []*catalog.GameEntry {
	return fixtures.Games(".bin", romSize,
		"Alpha (USA)",
		"Alpha (Europe)",
		"Beta Quest (Japan)",
		"Gamma (World)",
	)
}

func scanFolder(t *testing.T, games []*catalog.GameEntry, files map[string][]byte, opts Options) *Result {
	t.Helper()
	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", files))
	s := New(fsh.Fs, NewIndex(games), NewLocker(""))
	res, err := s.Scan(context.Background(), "/roms", opts, nil)
	require.NoError(t, err)
	return res
}

func fileByName(t *testing.T, res *Result, name string) *ScannedFile {
	t.Helper()
	for _, f := range res.Files {
		if filepath.Base(f.Path) == name {
			return f
		}
	}
	require.Failf(t, "file not scanned", "%s", name)
	return nil
}

func TestScanMatching(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	res := scanFolder(t, games, map[string][]byte{
		"Alpha (USA).bin":        content("Alpha (USA)"),
		"alpha europe.bin":       content("Alpha (Europe)"),
		"Beta Quest (Japan).bin": []byte("corrupted"),
		"Gamma (World).bin":      content("Alpha (USA)"),
		"homebrew.bin":           []byte("not in the catalog"),
		"same size stranger.bin": make([]byte, romSize),
		"Beta Quest (Japan).txt": content("Beta Quest (Japan)"),
	}, Options{Extensions: []string{".bin"}})

	require.Len(t, res.Files, 6, "the .txt file is not eligible")
	assert.False(t, res.Cancelled)
	assert.NotEmpty(t, res.ID)

	correct := fileByName(t, res, "Alpha (USA).bin")
	assert.Equal(t, games[0].Roms[0], correct.Record)
	assert.Equal(t, games[0], correct.Game)
	assert.Equal(t, correct.Record, correct.NameRecord)
	assert.True(t, correct.Hashed)

	renamed := fileByName(t, res, "alpha europe.bin")
	assert.Equal(t, games[1].Roms[0], renamed.Record)
	assert.Nil(t, renamed.NameRecord)

	broken := fileByName(t, res, "Beta Quest (Japan).bin")
	assert.Nil(t, broken.Record)
	assert.Equal(t, games[2].Roms[0], broken.NameRecord)

	// filename says Gamma, content says Alpha (USA); content wins but
	// Alpha (USA) is already claimed by the correctly named file
	swapped := fileByName(t, res, "Gamma (World).bin")
	assert.Nil(t, swapped.Record)
	assert.True(t, swapped.Duplicate)
	assert.Equal(t, games[0].Roms[0], swapped.DuplicateOf)
	assert.Equal(t, games[3].Roms[0], swapped.NameRecord)

	stranger := fileByName(t, res, "homebrew.bin")
	assert.Nil(t, stranger.Record)
	assert.Nil(t, stranger.NameRecord)
	assert.False(t, stranger.Hashed, "no record has this size, hashing is skipped")

	sameSize := fileByName(t, res, "same size stranger.bin")
	assert.True(t, sameSize.Hashed)
	assert.Nil(t, sameSize.Record)
}

func TestScanContentWinsOverName(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	res := scanFolder(t, games, map[string][]byte{
		"Gamma (World).bin": content("Beta Quest (Japan)"),
	}, Options{})

	f := res.Files[0]
	assert.Equal(t, games[2].Roms[0], f.Record)
	assert.Equal(t, games[3].Roms[0], f.NameRecord)
	assert.False(t, f.Duplicate)
}

func TestScanFirstClaimWins(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	res := scanFolder(t, games, map[string][]byte{
		"b copy.bin": content("Gamma (World)"),
		"a copy.bin": content("Gamma (World)"),
		"c copy.bin": content("Gamma (World)"),
	}, Options{})

	require.Len(t, res.Files, 3)
	assert.Equal(t, "/roms/a copy.bin", res.Files[0].Path)
	assert.Equal(t, games[3].Roms[0], res.Files[0].Record)
	for _, f := range res.Files[1:] {
		assert.True(t, f.Duplicate, f.Path)
		assert.Nil(t, f.Record, f.Path)
	}
}

func TestScanCorrectNameClaimsBeforeRenamedCopy(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	res := scanFolder(t, games, map[string][]byte{
		"Gamma (World).bin": content("Gamma (World)"),
		"a gamma copy.bin":  content("Gamma (World)"),
	}, Options{})

	assert.Equal(t, games[3].Roms[0], fileByName(t, res, "Gamma (World).bin").Record)
	assert.True(t, fileByName(t, res, "a gamma copy.bin").Duplicate)
}

func TestScanCrossGroupCollision(t *testing.T) {
	t.Parallel()

	shared := fixtures.Content("shared", romSize)
	games := []*catalog.GameEntry{
		fixtures.Game("Original (USA)", 0, fixtures.Rom("Original (USA).bin", shared)),
		fixtures.Game("Romhack Deluxe (USA)", 1, fixtures.Rom("Romhack Deluxe (USA).bin", shared)),
	}
	res := scanFolder(t, games, map[string][]byte{"unknown.bin": shared}, Options{})

	f := res.Files[0]
	assert.True(t, f.CrossGroup)
	assert.Nil(t, f.Record)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ErrCrossGroup)

	// a filename hit disambiguates
	res = scanFolder(t, games, map[string][]byte{"Original (USA).bin": shared}, Options{})
	assert.Equal(t, games[0].Roms[0], res.Files[0].Record)
	assert.False(t, res.Files[0].CrossGroup)
}

func TestScanSameGroupSharedContent(t *testing.T) {
	t.Parallel()

	shared := fixtures.Content("shared", romSize)
	games := []*catalog.GameEntry{
		fixtures.Game("Twin (USA)", 0, fixtures.Rom("Twin (USA).bin", shared)),
		fixtures.Game("Twin (Europe)", 1, fixtures.Rom("Twin (Europe).bin", shared)),
	}
	res := scanFolder(t, games, map[string][]byte{
		"x.bin": shared,
		"y.bin": shared,
	}, Options{})

	assert.Equal(t, games[0].Roms[0], res.Files[0].Record)
	assert.Equal(t, games[1].Roms[0], res.Files[1].Record, "second copy takes the next free record")
}

func TestScanRecursiveSkipsActionFolders(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	files := map[string][]byte{
		"Alpha (USA).bin":               content("Alpha (USA)"),
		"sub/Alpha (Europe).bin":        content("Alpha (Europe)"),
		"_extra/Gamma (World).bin":      content("Gamma (World)"),
		"Broken/Beta Quest (Japan).bin": content("Beta Quest (Japan)"),
		"sub/_Filtered/whatever.bin":    content("Gamma (World)"),
	}
	opts := Options{
		Recursive:    true,
		ExcludedDirs: []string{"_extra", "broken", "_filtered", "_multi"},
	}

	res := scanFolder(t, games, files, opts)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "Alpha (USA).bin", res.Files[0].RelPath)
	assert.Equal(t, filepath.Join("sub", "Alpha (Europe).bin"), res.Files[1].RelPath)

	opts.Recursive = false
	res = scanFolder(t, games, files, opts)
	require.Len(t, res.Files, 1)
}

func TestScanSingleMemberZip(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Alpha (USA).bin")
	require.NoError(t, err)
	_, err = w.Write(content("Alpha (USA)"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	res := scanFolder(t, games, map[string][]byte{"Alpha (USA).zip": buf.Bytes()}, Options{})

	f := res.Files[0]
	assert.Equal(t, games[0].Roms[0], f.Record)
	assert.Equal(t, games[0].Roms[0], f.NameRecord, "archive stem matches the record name")
	assert.Equal(t, "Alpha (USA).bin", f.Member)
	assert.Equal(t, int64(romSize), f.ContentSize)
}

type failingOpenFs struct {
	afero.Fs
	fail string
}

func (f failingOpenFs) Open(name string) (afero.File, error) {
	if name == f.fail {
		return nil, &os.PathError{Op: "open", Path: name, Err: errors.New("input/output error")}
	}
	return f.Fs.Open(name)
}

func TestScanIOErrorMarksFile(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", map[string][]byte{
		"Alpha (USA).bin":    content("Alpha (USA)"),
		"Alpha (Europe).bin": content("Alpha (Europe)"),
	}))
	fs := failingOpenFs{Fs: fsh.Fs, fail: "/roms/Alpha (USA).bin"}

	res, err := New(fs, NewIndex(games), nil).Scan(context.Background(), "/roms", Options{}, nil)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	bad := fileByName(t, res, "Alpha (USA).bin")
	require.ErrorIs(t, bad.Err, ErrScanIO)
	assert.Nil(t, bad.Record)
	assert.Equal(t, games[0].Roms[0], bad.NameRecord)

	good := fileByName(t, res, "Alpha (Europe).bin")
	assert.Equal(t, games[1].Roms[0], good.Record)

	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ErrScanIO)
}

func TestScanMissingRoot(t *testing.T) {
	t.Parallel()

	s := New(afero.NewMemMapFs(), NewIndex(nil), nil)
	_, err := s.Scan(context.Background(), "/nowhere", Options{}, nil)
	require.ErrorIs(t, err, ErrScanIO)
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", map[string][]byte{
		"Alpha (USA).bin": content("Alpha (USA)"),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(fsh.Fs, NewIndex(testCatalog()), nil).Scan(ctx, "/roms", Options{}, nil)
	require.NoError(t, err, "cancellation is not an error")
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Files)
}

func TestScanCancelledMidway(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	fsh := helpers.NewMemoryFS()
	files := map[string][]byte{}
	for _, g := range games {
		files[g.Roms[0].Name] = content(g.Title)
	}
	require.NoError(t, fsh.CreateRomFolder("/roms", files))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := 0
	res, err := New(fsh.Fs, NewIndex(games), nil).Scan(ctx, "/roms", Options{Workers: 1},
		func(p Progress) {
			seen++
			if p.Processed >= 1 {
				cancel()
			}
		})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.NotEmpty(t, res.Files)
	assert.Less(t, len(res.Files), len(games))
	for _, f := range res.Files {
		assert.NotNil(t, f.Record, "completed files keep their results")
	}
	assert.Positive(t, seen)
}

func TestScanConcurrentRootRejected(t *testing.T) {
	t.Parallel()

	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", nil))
	locker := NewLocker("")
	release, err := locker.Acquire("/roms")
	require.NoError(t, err)

	s := New(fsh.Fs, NewIndex(nil), locker)
	_, err = s.Scan(context.Background(), "/roms", Options{}, nil)
	require.ErrorIs(t, err, ErrConcurrentScan)

	release()
	_, err = s.Scan(context.Background(), "/roms", Options{}, nil)
	require.NoError(t, err)
}

func TestScanRootsClaimsInRootOrder(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", map[string][]byte{
		"z gamma.bin": content("Gamma (World)"),
	}))
	require.NoError(t, fsh.CreateRomFolder("/usb", map[string][]byte{
		"a gamma.bin":            content("Gamma (World)"),
		"Beta Quest (Japan).bin": content("Beta Quest (Japan)"),
	}))

	s := New(fsh.Fs, NewIndex(games), NewLocker(""))
	res, err := s.ScanRoots(context.Background(), []string{"/roms", "/usb", "/roms"}, Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/roms", "/usb"}, res.Roots, "repeated roots are scanned once")
	require.Len(t, res.Files, 3)
	assert.Equal(t, "/roms/z gamma.bin", res.Files[0].Path)
	assert.Equal(t, "/roms", res.Files[0].Root)
	assert.Equal(t, "z gamma.bin", res.Files[0].RelPath)
	assert.Equal(t, games[3].Roms[0], res.Files[0].Record, "the earlier root claims first")

	copyInUSB := fileByName(t, res, "a gamma.bin")
	assert.Equal(t, "/usb", copyInUSB.Root)
	assert.True(t, copyInUSB.Duplicate)
	assert.Equal(t, games[2].Roms[0], fileByName(t, res, "Beta Quest (Japan).bin").Record)
}

func TestScanRootsNested(t *testing.T) {
	t.Parallel()

	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", map[string][]byte{
		"Alpha (USA).bin":          content("Alpha (USA)"),
		"usb/Gamma (World).bin":    content("Gamma (World)"),
		"usb/deeper/Alpha (E).bin": content("Alpha (Europe)"),
	}))

	s := New(fsh.Fs, NewIndex(testCatalog()), NewLocker(""))
	res, err := s.ScanRoots(context.Background(), []string{"/roms", "/roms/usb"}, Options{Recursive: true}, nil)
	require.NoError(t, err)

	require.Len(t, res.Files, 3, "files under both roots are listed once")
	for _, f := range res.Files {
		assert.Equal(t, "/roms", f.Root, f.Path)
		assert.False(t, f.Duplicate, f.Path)
	}
}

func TestScanRootsErrors(t *testing.T) {
	t.Parallel()

	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", nil))
	require.NoError(t, fsh.CreateRomFolder("/usb", nil))
	locker := NewLocker("")
	s := New(fsh.Fs, NewIndex(nil), locker)

	_, err := s.ScanRoots(context.Background(), nil, Options{}, nil)
	require.ErrorIs(t, err, ErrNoRoots)
	_, err = s.ScanRoots(context.Background(), []string{""}, Options{}, nil)
	require.ErrorIs(t, err, ErrNoRoots)

	release, err := locker.Acquire("/usb")
	require.NoError(t, err)
	_, err = s.ScanRoots(context.Background(), []string{"/roms", "/usb"}, Options{}, nil)
	require.ErrorIs(t, err, ErrConcurrentScan)

	// the first root was released when the second could not be locked
	releaseRoms, err := locker.Acquire("/roms")
	require.NoError(t, err)
	releaseRoms()
	release()

	_, err = s.ScanRoots(context.Background(), []string{"/roms", "/nowhere"}, Options{}, nil)
	require.ErrorIs(t, err, ErrScanIO)
	releaseRoms, err = locker.Acquire("/roms")
	require.NoError(t, err)
	releaseRoms()
}

func TestScanProgressFinalUpdate(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	fsh := helpers.NewMemoryFS()
	files := map[string][]byte{}
	for _, g := range games {
		files[g.Roms[0].Name] = content(g.Title)
	}
	require.NoError(t, fsh.CreateRomFolder("/roms", files))

	var updates []Progress
	_, err := New(fsh.Fs, NewIndex(games), nil).Scan(context.Background(), "/roms", Options{},
		func(p Progress) { updates = append(updates, p) })
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.True(t, last.Done)
	assert.Equal(t, len(games), last.Processed)
	assert.Equal(t, len(games), last.Total)
}

func TestScanHints(t *testing.T) {
	t.Parallel()

	games := testCatalog()
	res := scanFolder(t, games, map[string][]byte{
		"Beta Quest (Japn).bin": []byte("not a match"),
		"zzzz.bin":              []byte("nothing close"),
	}, Options{Hints: true})

	assert.Equal(t, "Beta Quest (Japan).bin", fileByName(t, res, "Beta Quest (Japn).bin").Hint)
	assert.Empty(t, fileByName(t, res, "zzzz.bin").Hint)
}

func TestScanSecondaryHashes(t *testing.T) {
	t.Parallel()

	data := content("Alpha (USA)")
	rom := fixtures.Rom("Alpha (USA).bin", data)
	rom.MD5 = "00000000000000000000000000000000"
	games := []*catalog.GameEntry{fixtures.Game("Alpha (USA)", 0, rom)}

	res := scanFolder(t, games, map[string][]byte{"Alpha (USA).bin": data}, Options{SecondaryHashes: true})
	assert.Nil(t, res.Files[0].Record, "md5 mismatch rejects a crc match")
	assert.Len(t, res.Files[0].MD5, 32)

	res = scanFolder(t, games, map[string][]byte{"Alpha (USA).bin": data}, Options{})
	assert.Equal(t, rom, res.Files[0].Record, "md5 is not compared when not computed")
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	// decomposed e + combining acute vs precomposed e-acute
	assert.Equal(t, NormalizeName("Cafe\u0301.bin"), NormalizeName("Caf\u00e9.BIN"))
	assert.Equal(t, "game.bin", NormalizeName("/some/dir/Game.bin"))
	assert.Equal(t, "game.bin", NormalizeName(`dir\Game.bin`))
}
