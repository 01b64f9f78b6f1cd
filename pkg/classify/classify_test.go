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

package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/scanner"
	"github.com/datkeeper/datkeeper/pkg/testing/fixtures"
	"github.com/datkeeper/datkeeper/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func superGame() (usa, eur *catalog.GameEntry) {
	games := fixtures.SuperGame()
	return games[0], games[1]
}

func TestClassify(t *testing.T) {
	t.Parallel()

	usa, eur := superGame()
	usaRom, eurRom := usa.Roms[0], eur.Roms[0]

	tests := []struct {
		file   *scanner.ScannedFile
		ignore IgnoreSet
		name   string
		want   Status
	}{
		{
			name: "correct",
			file: &scanner.ScannedFile{
				Path: "/roms/Super Game (USA).sfc", Hashed: true, CRC32: usaRom.CRC32,
				Record: usaRom, Game: usa, NameRecord: usaRom,
			},
			want: Correct,
		},
		{
			name: "needs rename",
			file: &scanner.ScannedFile{
				Path: "/roms/sg.sfc", Hashed: true, CRC32: usaRom.CRC32, Record: usaRom, Game: usa,
			},
			want: NeedsRename,
		},
		{
			name: "case differs needs rename",
			file: &scanner.ScannedFile{
				Path: "/roms/super game (usa).sfc", Hashed: true, CRC32: usaRom.CRC32,
				Record: usaRom, Game: usa, NameRecord: usaRom,
			},
			want: NeedsRename,
		},
		{
			name: "content of another record under a catalog name",
			file: &scanner.ScannedFile{
				Path: "/roms/Super Game (USA).sfc", Hashed: true, CRC32: eurRom.CRC32,
				Record: eurRom, Game: eur, NameRecord: usaRom,
			},
			want: NeedsRename,
		},
		{
			name: "name hit content miss",
			file: &scanner.ScannedFile{
				Path: "/roms/Super Game (USA).sfc", Hashed: true, CRC32: 0x1, NameRecord: usaRom,
			},
			want: Broken,
		},
		{
			name: "io error",
			file: &scanner.ScannedFile{
				Path: "/roms/Super Game (USA).sfc", NameRecord: usaRom,
				Err: errors.Join(scanner.ErrScanIO, errors.New("eio")),
			},
			want: Broken,
		},
		{
			name: "unrecognized",
			file: &scanner.ScannedFile{Path: "/roms/homebrew.sfc", Hashed: true, CRC32: 0x2},
			want: Unrecognized,
		},
		{
			name: "unhashed unrecognized",
			file: &scanner.ScannedFile{Path: "/roms/notes.sfc"},
			want: Unrecognized,
		},
		{
			name: "duplicate",
			file: &scanner.ScannedFile{
				Path: "/roms/copy.sfc", Hashed: true, CRC32: usaRom.CRC32,
				Duplicate: true, DuplicateOf: usaRom,
			},
			want: Unrecognized,
		},
		{
			name: "cross group",
			file: &scanner.ScannedFile{Path: "/roms/x.sfc", Hashed: true, CRC32: 0x3, CrossGroup: true},
			want: Unrecognized,
		},
		{
			name: "ignored wins over correct",
			file: &scanner.ScannedFile{
				Path: "/roms/Super Game (USA).sfc", Hashed: true, CRC32: usaRom.CRC32,
				Record: usaRom, Game: usa, NameRecord: usaRom,
			},
			ignore: NewIgnoreSet(usaRom.CRC32),
			want:   Ignored,
		},
		{
			name: "ignored wins over unrecognized",
			file: &scanner.ScannedFile{Path: "/roms/homebrew.sfc", Hashed: true, CRC32: 0x2},
			ignore: NewIgnoreSet(0x2),
			want:   Ignored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.file, tt.ignore))
		})
	}
}

func TestCanonicalName(t *testing.T) {
	t.Parallel()

	usa, _ := superGame()
	rom := usa.Roms[0]

	plain := &scanner.ScannedFile{Path: "/roms/x.sfc", Record: rom}
	assert.Equal(t, "Super Game (USA).sfc", CanonicalName(plain))

	zipped := &scanner.ScannedFile{Path: "/roms/x.ZIP", Record: rom, Member: "x.sfc"}
	assert.Equal(t, "Super Game (USA).ZIP", CanonicalName(zipped))

	correctZip := &scanner.ScannedFile{Path: "/roms/Super Game (USA).zip", Record: rom}
	assert.True(t, NameMatches(correctZip))

	assert.Empty(t, CanonicalName(&scanner.ScannedFile{Path: "/roms/x.sfc"}))
}

func TestRecordStatusesAndSummary(t *testing.T) {
	t.Parallel()

	games := fixtures.Games(".bin", 64, "A (USA)", "B (USA)", "C (USA)", "D (USA)", "E (USA)")
	a, b, c, d := games[0].Roms[0], games[1].Roms[0], games[2].Roms[0], games[3].Roms[0]

	files := []*scanner.ScannedFile{
		{Path: "/r/A (USA).bin", Hashed: true, CRC32: a.CRC32, Record: a, Game: games[0], NameRecord: a},
		{Path: "/r/b.bin", Hashed: true, CRC32: b.CRC32, Record: b, Game: games[1]},
		{Path: "/r/b2.bin", Hashed: true, CRC32: b.CRC32, Duplicate: true, DuplicateOf: b},
		{Path: "/r/C (USA).bin", Hashed: true, CRC32: 0xdead, NameRecord: c},
		{Path: "/r/junk.bin", Hashed: true, CRC32: 0xbeef},
	}
	ignore := NewIgnoreSet(d.CRC32)

	st := RecordStatuses(games, files, ignore)
	assert.Equal(t, Correct, st[a])
	assert.Equal(t, NeedsRename, st[b])
	assert.Equal(t, Broken, st[c])
	assert.Equal(t, Ignored, st[d])
	assert.Equal(t, Missing, st[games[4].Roms[0]])

	sum := Summarize(games, files, ignore)
	assert.Equal(t, Summary{
		Correct:       1,
		WrongFilename: 1,
		Broken:        1,
		Unrecognized:  1,
		Duplicates:    1,
		Missing:       1,
	}, sum)
}

func TestDuplicates(t *testing.T) {
	t.Parallel()

	files := []*scanner.ScannedFile{
		{Path: "/a", Hashed: true, CRC32: 1},
		{Path: "/b", Hashed: true, CRC32: 2},
		{Path: "/c", Hashed: true, CRC32: 1},
		{Path: "/d"},
		{Path: "/e"},
	}
	groups := Duplicates(files)
	require.Len(t, groups, 1)
	assert.Equal(t, uint32(1), groups[0].CRC32)
	assert.Equal(t, []*scanner.ScannedFile{files[0], files[2]}, groups[0].Files)
}

func TestStatusText(t *testing.T) {
	t.Parallel()

	for s := Correct; s <= Ignored; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	_, err := ParseStatus("great")
	require.Error(t, err)
	assert.Equal(t, "needs-rename", NeedsRename.String())
}

func TestReason(t *testing.T) {
	t.Parallel()

	usa, _ := superGame()
	rom := usa.Roms[0]
	assert.Equal(t, "duplicate of Super Game (USA).sfc",
		Reason(&scanner.ScannedFile{Duplicate: true, DuplicateOf: rom}, Unrecognized))
	assert.Equal(t, "rename to Super Game (USA).sfc",
		Reason(&scanner.ScannedFile{Path: "/x.sfc", Record: rom}, NeedsRename))
	assert.Equal(t, "similar to Super Game (USA).sfc",
		Reason(&scanner.ScannedFile{Hint: rom.Name}, Unrecognized))
	assert.Equal(t, "not in catalog", Reason(&scanner.ScannedFile{}, Unrecognized))
}

// TestScanThenClassify runs the scanner and checks the statuses the
// classifier derives for the canonical cases.
func TestScanThenClassify(t *testing.T) {
	t.Parallel()

	games := fixtures.Games(".bin", 128, "Right (USA)", "Renamed (USA)", "Corrupt (USA)")
	fsh := helpers.NewMemoryFS()
	require.NoError(t, fsh.CreateRomFolder("/roms", map[string][]byte{
		"Right (USA).bin":   fixtures.Content("Right (USA)", 128),
		"my renamed.bin":    fixtures.Content("Renamed (USA)", 128),
		"Corrupt (USA).bin": []byte("short"),
		"other.bin":         fixtures.Content("nope", 128),
	}))
	res, err := scanner.New(fsh.Fs, scanner.NewIndex(games), nil).
		Scan(context.Background(), "/roms", scanner.Options{}, nil)
	require.NoError(t, err)

	got := map[string]Status{}
	for _, f := range res.Files {
		got[f.RelPath] = Classify(f, nil)
	}
	assert.Equal(t, map[string]Status{
		"Right (USA).bin":   Correct,
		"my renamed.bin":    NeedsRename,
		"Corrupt (USA).bin": Broken,
		"other.bin":         Unrecognized,
	}, got)
}
