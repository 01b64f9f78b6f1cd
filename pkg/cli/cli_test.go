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

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The commands share the global logger, so these tests do not run in
// parallel.

type testCLI struct {
	configDir string
	dataDir   string
	datPath   string
	romDir    string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	base := t.TempDir()
	tc := &testCLI{
		configDir: filepath.Join(base, "config"),
		dataDir:   filepath.Join(base, "data"),
		datPath:   filepath.Join(base, "dats", "snes.dat"),
		romDir:    filepath.Join(base, "roms"),
	}

	games := fixtures.Games(".bin", 64, "Alpha (USA)", "Alpha (Europe)", "Beta Quest (Japan)")
	require.NoError(t, os.MkdirAll(filepath.Dir(tc.datPath), 0o750))
	require.NoError(t, os.WriteFile(tc.datPath, []byte(fixtures.DatXML("Test - System", games...)), 0o600))
	require.NoError(t, os.MkdirAll(tc.romDir, 0o750))
	return tc
}

func (tc *testCLI) writeRom(t *testing.T, name string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(tc.romDir, name), content, 0o600))
}

func (tc *testCLI) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config-dir", tc.configDir, "--data-dir", tc.dataDir}, args...)
	err := Execute(context.Background(), Options{
		In:  strings.NewReader(input),
		Out: &out,
		Err: &errOut,
	}, full)
	return out.String(), err
}

func (tc *testCLI) importSnes(t *testing.T) {
	t.Helper()
	out, err := tc.run(t, "", "import", "snes", tc.datPath, "--roms", tc.romDir)
	require.NoError(t, err)
	require.Contains(t, out, `Imported "Test - System" for snes: 3 games, 3 roms`)
}

func TestImportRemembersBinding(t *testing.T) {
	tc := newTestCLI(t)
	tc.importSnes(t)

	cfg, err := config.NewConfig(tc.configDir, config.BaseDefaults)
	require.NoError(t, err)
	sys, ok := cfg.LookupSystem("snes")
	require.True(t, ok)
	assert.Equal(t, tc.datPath, sys.Dat)
	assert.Equal(t, []string{tc.romDir}, sys.Roms)

	// Reimporting without a path uses the stored one.
	out, err := tc.run(t, "", "import", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "3 games")

	out, err = tc.run(t, "", "systems")
	require.NoError(t, err)
	assert.Contains(t, out, "snes")
	assert.Contains(t, out, "Test - System")
}

func TestImportFolder(t *testing.T) {
	tc := newTestCLI(t)
	dir := filepath.Join(t.TempDir(), "dats")
	nes := fixtures.Games(".nes", 16, "Delta (USA)")
	files := map[string]string{
		"Nintendo - NES.dat":  fixtures.DatXML("Nintendo - NES", nes...),
		"handheld/gb.xml":     fixtures.DatXML("", nes...),
		"handheld/broken.dat": "<datafile><game",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	out, err := tc.run(t, "", "import", "--folder", dir)
	require.ErrorIs(t, err, errImportsFailed)
	assert.Contains(t, out, "Imported 2 of 3 catalogs")
	assert.Contains(t, out, "Nintendo - NES")
	assert.Contains(t, out, "gb")

	cfg, err := config.NewConfig(tc.configDir, config.BaseDefaults)
	require.NoError(t, err)
	sys, ok := cfg.LookupSystem("Nintendo - NES")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Nintendo - NES.dat"), sys.Dat)
	sys, ok = cfg.LookupSystem("gb")
	require.True(t, ok, "a header without a name uses the file name")
	assert.Equal(t, filepath.Join(dir, "handheld", "gb.xml"), sys.Dat)

	out, err = tc.run(t, "", "systems")
	require.NoError(t, err)
	assert.Contains(t, out, "Nintendo - NES")

	require.NoError(t, os.Remove(filepath.Join(dir, "handheld", "broken.dat")))
	out, err = tc.run(t, "", "import", "--folder", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 of 2 catalogs")

	empty := t.TempDir()
	out, err = tc.run(t, "", "import", "--folder", empty)
	require.NoError(t, err)
	assert.Contains(t, out, "No catalog files found")

	_, err = tc.run(t, "", "import", "snes", "--folder", dir)
	require.Error(t, err, "folder mode takes no system")
	_, err = tc.run(t, "", "import", "--folder", dir, "--roms", tc.romDir)
	require.Error(t, err)
}

func TestImportWithoutCatalog(t *testing.T) {
	tc := newTestCLI(t)

	_, err := tc.run(t, "", "import", "nes")
	require.ErrorIs(t, err, errNoCatalog)
}

func TestScanReportsFiles(t *testing.T) {
	tc := newTestCLI(t)
	tc.writeRom(t, "Alpha (Europe).bin", fixtures.Content("Alpha (Europe)", 64))
	tc.writeRom(t, "beta.bin", fixtures.Content("Beta Quest (Japan)", 64))
	tc.writeRom(t, "junk.bin", []byte("junk"))
	tc.importSnes(t)

	out, err := tc.run(t, "", "scan", "snes", "-q", "--files")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrong filename")
	assert.Contains(t, out, "beta.bin")
	assert.Contains(t, out, "needs-rename")
	assert.Contains(t, out, "unrecognized")
}

func TestScanWithoutFolder(t *testing.T) {
	tc := newTestCLI(t)
	_, err := tc.run(t, "", "import", "snes", tc.datPath)
	require.NoError(t, err)

	_, err = tc.run(t, "", "scan", "snes")
	require.ErrorIs(t, err, errNoRoot)
}

func TestScanUnknownSystem(t *testing.T) {
	tc := newTestCLI(t)

	_, err := tc.run(t, "", "scan", "nes", tc.romDir, "-q")
	require.ErrorIs(t, err, database.ErrSystemNotFound)
}

func TestMissingReport(t *testing.T) {
	tc := newTestCLI(t)
	tc.writeRom(t, "Beta Quest (Japan).bin", fixtures.Content("Beta Quest (Japan)", 64))
	tc.importSnes(t)

	out, err := tc.run(t, "", "missing", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha (USA)")
	assert.NotContains(t, out, "Beta Quest")

	out, err = tc.run(t, "", "missing", "snes", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "title,major_name,rom"))
	assert.Contains(t, lines[1], "Alpha (USA).bin")

	report := filepath.Join(t.TempDir(), "missing.txt")
	out, err = tc.run(t, "", "missing", "snes", "-q", "-o", report)
	require.NoError(t, err)
	assert.Contains(t, out, "1 missing roms written")
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Alpha (USA)")

	_, err = tc.run(t, "", "missing", "snes", "--format", "xml")
	require.ErrorIs(t, err, errReportFormat)
}

func TestScanSeveralFolders(t *testing.T) {
	tc := newTestCLI(t)
	usb := filepath.Join(t.TempDir(), "usb")
	require.NoError(t, os.MkdirAll(usb, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(usb, "Alpha (USA).bin"), fixtures.Content("Alpha (USA)", 64), 0o600))
	tc.writeRom(t, "Beta Quest (Japan).bin", fixtures.Content("Beta Quest (Japan)", 64))
	tc.importSnes(t)

	out, err := tc.run(t, "", "missing", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha (USA)")

	out, err = tc.run(t, "", "folders", "snes", "--add", usb)
	require.NoError(t, err)
	assert.Contains(t, out, tc.romDir)
	assert.Contains(t, out, usb)

	out, err = tc.run(t, "", "missing", "snes", "-q")
	require.NoError(t, err)
	assert.NotContains(t, out, "Alpha")
	assert.NotContains(t, out, "Beta Quest")

	out, err = tc.run(t, "", "scan", "snes", "-q", "--files")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(usb, "Alpha (USA).bin"), "several folders list full paths")

	// Folders on the command line replace the configured ones.
	out, err = tc.run(t, "", "missing", "snes", "-q", usb)
	require.NoError(t, err)
	assert.Contains(t, out, "Beta Quest")

	out, err = tc.run(t, "", "folders", "snes", "--remove", usb)
	require.NoError(t, err)
	assert.NotContains(t, out, usb)

	out, err = tc.run(t, "", "folders", "snes", "--remove", usb)
	require.NoError(t, err)
	assert.Contains(t, out, "is not a rom folder of snes")

	_, err = tc.run(t, "", "folders", "nes", "--remove", usb)
	require.ErrorIs(t, err, config.ErrUnknownSystem)
}

func TestStatus(t *testing.T) {
	tc := newTestCLI(t)
	tc.writeRom(t, "Alpha (USA).bin", fixtures.Content("Alpha (USA)", 64))
	tc.importSnes(t)

	out, err := tc.run(t, "", "status", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "No scan recorded for snes.")

	_, err = tc.run(t, "", "scan", "snes", "-q")
	require.NoError(t, err)

	out, err = tc.run(t, "", "status", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "Last scan of snes")
	assert.Contains(t, out, tc.romDir)
	assert.Contains(t, out, "Correct")
	assert.NotContains(t, out, "cancelled")
}

func TestRemove(t *testing.T) {
	tc := newTestCLI(t)
	tc.importSnes(t)

	out, err := tc.run(t, "", "remove", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed snes")

	out, err = tc.run(t, "", "systems")
	require.NoError(t, err)
	assert.Contains(t, out, "No systems imported yet.")

	cfg, err := config.NewConfig(tc.configDir, config.BaseDefaults)
	require.NoError(t, err)
	_, ok := cfg.LookupSystem("snes")
	assert.False(t, ok)

	_, err = tc.run(t, "", "remove", "snes")
	require.ErrorIs(t, err, database.ErrSystemNotFound)

	tc.importSnes(t)
	_, err = tc.run(t, "", "remove", "snes", "--keep-config")
	require.NoError(t, err)
	cfg, err = config.NewConfig(tc.configDir, config.BaseDefaults)
	require.NoError(t, err)
	sys, ok := cfg.LookupSystem("snes")
	require.True(t, ok)
	assert.Equal(t, []string{tc.romDir}, sys.Roms)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		args      []string
		wantOut   string
		wantMoved bool
	}{
		{name: "confirmed", input: "y\n", wantOut: "Applied 2 actions, 0 failed.", wantMoved: true},
		{name: "yes flag", args: []string{"--yes"}, wantOut: "Applied 2 actions, 0 failed.", wantMoved: true},
		{name: "declined", input: "n\n", wantOut: "Aborted."},
		{name: "default is no", input: "\n", wantOut: "Aborted."},
		{name: "dry run", args: []string{"--dry-run"}, wantOut: "Would apply 2 actions, 0 failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t)
			tc.writeRom(t, "beta.bin", fixtures.Content("Beta Quest (Japan)", 64))
			tc.writeRom(t, "junk.bin", []byte("junk"))
			tc.importSnes(t)

			args := append([]string{"apply", "snes", "-q"}, tt.args...)
			out, err := tc.run(t, tt.input, args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)

			renamed := filepath.Join(tc.romDir, "Beta Quest (Japan).bin")
			extra := filepath.Join(tc.romDir, config.DefaultExtraFolder, "junk.bin")
			if tt.wantMoved {
				assert.FileExists(t, renamed)
				assert.FileExists(t, extra)
				assert.NoFileExists(t, filepath.Join(tc.romDir, "beta.bin"))
			} else {
				assert.NoFileExists(t, renamed)
				assert.NoFileExists(t, extra)
				assert.FileExists(t, filepath.Join(tc.romDir, "beta.bin"))
			}
		})
	}
}

func TestApplyNothingToDo(t *testing.T) {
	tc := newTestCLI(t)
	tc.writeRom(t, "Alpha (USA).bin", fixtures.Content("Alpha (USA)", 64))
	tc.importSnes(t)

	out, err := tc.run(t, "", "apply", "snes", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to do.")
}

func TestFiltersCommand(t *testing.T) {
	tc := newTestCLI(t)
	tc.importSnes(t)

	out, err := tc.run(t, "", "filters", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, "USA, Europe, Japan, World")

	_, err = tc.run(t, "", "filters", "snes", "--regions", "Mars")
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)

	out, err = tc.run(t, "", "filters", "snes", "--regions", "Japan", "--exclude-flags", "beta,proto", "--dedup=false")
	require.NoError(t, err)
	assert.Contains(t, out, "beta, proto")

	// Only Japan is visible now and it is owned by nothing.
	out, err = tc.run(t, "", "missing", "snes", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Beta Quest")
	assert.NotContains(t, out, "Alpha")

	out, err = tc.run(t, "", "filters", "snes", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "USA, Europe, Japan, World")
}

func TestHideAndIgnore(t *testing.T) {
	tc := newTestCLI(t)
	tc.importSnes(t)

	out, err := tc.run(t, "", "hide", "snes", "Alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "1 hidden titles")

	out, err = tc.run(t, "", "missing", "snes", "-q")
	require.NoError(t, err)
	assert.NotContains(t, out, "Alpha")
	assert.Contains(t, out, "Beta Quest")

	out, err = tc.run(t, "", "hide", "snes", "Alpha", "--unhide")
	require.NoError(t, err)
	assert.Contains(t, out, "0 hidden titles")

	_, err = tc.run(t, "", "hide", "nes", "Alpha")
	require.ErrorIs(t, err, database.ErrSystemNotFound)

	beta := fixtures.Games(".bin", 64, "Beta Quest (Japan)")[0].Roms[0]
	out, err = tc.run(t, "", "ignore", "snes", beta.CRC())
	require.NoError(t, err)
	assert.Contains(t, out, "1 ignored checksums")

	out, err = tc.run(t, "", "missing", "snes", "-q")
	require.NoError(t, err)
	assert.NotContains(t, out, "Beta Quest")

	out, err = tc.run(t, "", "ignore", "snes")
	require.NoError(t, err)
	assert.Contains(t, out, beta.CRC()+"\n")
	assert.Contains(t, out, "1 ignored checksums")

	_, err = tc.run(t, "", "ignore", "snes", "nothex")
	require.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Count"},
		[][]string{{"alpha", "1"}, {"beta"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	assert.Contains(t, out, "Name")
	assert.NotContains(t, out, "NAME", "headers keep their case")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}
