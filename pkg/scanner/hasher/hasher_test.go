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

package hasher

import (
	"archive/zip"
	"bytes"
	"context"
	"hash/crc32"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipBytes(t *testing.T, files map[string][]byte, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestComputeFileHashes_RegularFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	content := []byte("Hello, World!")
	require.NoError(t, afero.WriteFile(fs, "/roms/test.bin", content, 0o600))

	h, err := ComputeFileHashes(context.Background(), fs, "/roms/test.bin", Options{MD5: true, SHA1: true})
	require.NoError(t, err)

	assert.Equal(t, crc32.ChecksumIEEE(content), h.CRC32)
	assert.Equal(t, "ec4ac3d0", h.CRC())
	assert.Equal(t, "65a8e27d8879283831b664bd8b7f0ad4", h.MD5)
	assert.Equal(t, "0a0a9f2a6772942557ab5355d76af442f8f65e01", h.SHA1)
	assert.Equal(t, int64(13), h.Size)
	assert.Empty(t, h.Member)

	again, err := ComputeFileHashes(context.Background(), fs, "/roms/test.bin", Options{MD5: true, SHA1: true})
	require.NoError(t, err)
	assert.Equal(t, h, again)
}

func TestComputeFileHashes_CRCOnly(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty.bin", []byte{}, 0o600))

	h, err := ComputeFileHashes(context.Background(), fs, "/empty.bin", Options{})
	require.NoError(t, err)
	assert.Equal(t, "00000000", h.CRC())
	assert.Empty(t, h.MD5)
	assert.Empty(t, h.SHA1)
	assert.Zero(t, h.Size)
}

func TestComputeFileHashes_SingleMemberZip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rom := bytes.Repeat([]byte{0xAB}, 4096)
	data := zipBytes(t, map[string][]byte{"Game (USA).sfc": rom}, "Game (USA).sfc")
	require.NoError(t, afero.WriteFile(fs, "/roms/Game (USA).zip", data, 0o600))

	h, err := ComputeFileHashes(context.Background(), fs, "/roms/Game (USA).zip", Options{})
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE(rom), h.CRC32)
	assert.Equal(t, int64(4096), h.Size)
	assert.Equal(t, "Game (USA).sfc", h.Member)
}

func TestComputeFileHashes_MultiMemberZipHashedAsFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	data := zipBytes(t, map[string][]byte{"a.bin": []byte("a"), "b.bin": []byte("b")}, "a.bin", "b.bin")
	require.NoError(t, afero.WriteFile(fs, "/roms/pack.zip", data, 0o600))

	h, err := ComputeFileHashes(context.Background(), fs, "/roms/pack.zip", Options{})
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE(data), h.CRC32)
	assert.Equal(t, int64(len(data)), h.Size)
	assert.Empty(t, h.Member)
}

func TestComputeFileHashes_CorruptArchiveHashedAsFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	junk := []byte("definitely not an archive")
	require.NoError(t, afero.WriteFile(fs, "/roms/junk.7z", junk, 0o600))
	require.NoError(t, afero.WriteFile(fs, "/roms/junk.zip", junk, 0o600))

	for _, p := range []string{"/roms/junk.7z", "/roms/junk.zip"} {
		h, err := ComputeFileHashes(context.Background(), fs, p, Options{})
		require.NoError(t, err, p)
		assert.Equal(t, crc32.ChecksumIEEE(junk), h.CRC32, p)
		assert.Empty(t, h.Member, p)
	}
}

func TestComputeFileHashes_Missing(t *testing.T) {
	t.Parallel()

	_, err := ComputeFileHashes(context.Background(), afero.NewMemMapFs(), "/nope.bin", Options{})
	require.Error(t, err)
}

func TestComputeFileHashes_Cancelled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/big.bin", make([]byte, 1<<20), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ComputeFileHashes(ctx, fs, "/big.bin", Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsArchive(t *testing.T) {
	t.Parallel()

	assert.True(t, IsArchive("Game.ZIP"))
	assert.True(t, IsArchive("/a/b/Game.7z"))
	assert.False(t, IsArchive("Game.sfc"))
	assert.False(t, IsArchive("zip"))
}

func TestFileHashMatches(t *testing.T) {
	t.Parallel()

	h := &FileHash{CRC32: 0xabcd1234, Size: 10, MD5: "aa"}
	assert.True(t, h.Matches(10, 0xabcd1234, "", ""))
	assert.True(t, h.Matches(10, 0xabcd1234, "AA", "ignored-when-not-computed"))
	assert.False(t, h.Matches(11, 0xabcd1234, "", ""))
	assert.False(t, h.Matches(10, 0xabcd1235, "", ""))
	assert.False(t, h.Matches(10, 0xabcd1234, "bb", ""))
}
