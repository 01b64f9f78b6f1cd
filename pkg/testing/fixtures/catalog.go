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

// Package fixtures builds catalog records for tests.
package fixtures

import (
	"fmt"
	"hash/crc32"
	"strconv"

	"github.com/datkeeper/datkeeper/pkg/catalog"
)

// SuperGameUSACRC and friends are the checksums of the "Super Game"
// example catalog.
const (
	SuperGameUSACRC    uint32 = 0xABCD1234
	SuperGameEuropeCRC uint32 = 0x1234ABCD
	SuperGameSize      int64  = 1048576
)

// Content returns deterministic bytes for a seed, so a test can write a
// file and build the matching record from the same call.
func Content(seed string, size int) []byte {
	b := make([]byte, size)
	h := crc32.ChecksumIEEE([]byte(seed))
	for i := range b {
		h = h*1664525 + 1013904223
		b[i] = byte(h >> 24)
	}
	return b
}

// Rom returns a record whose size and CRC32 match content.
func Rom(name string, content []byte) *catalog.RomRecord {
	return &catalog.RomRecord{
		Name:  name,
		Size:  int64(len(content)),
		CRC32: crc32.ChecksumIEEE(content),
	}
}

// RomWithCRC returns a record with explicit checksum values.
func RomWithCRC(name string, size int64, crc uint32) *catalog.RomRecord {
	return &catalog.RomRecord{Name: name, Size: size, CRC32: crc}
}

// Game builds an entry the way the catalog parser does. The id is the
// 1-based position.
func Game(title string, index int, roms ...*catalog.RomRecord) *catalog.GameEntry {
	return catalog.NewGameEntry(strconv.Itoa(index+1), title, index, roms)
}

// Games builds entries in catalog order with one rom each, named after the
// title with ext appended, and content from Content(title, size).
func Games(ext string, size int, titles ...string) []*catalog.GameEntry {
	games := make([]*catalog.GameEntry, 0, len(titles))
	for i, title := range titles {
		games = append(games, Game(title, i, Rom(title+ext, Content(title, size))))
	}
	return games
}

// SuperGame returns the two-region example catalog: "Super Game (USA)" and
// "Super Game (Europe)", one 1 MiB rom each.
func SuperGame() []*catalog.GameEntry {
	return []*catalog.GameEntry{
		Game("Super Game (USA)", 0,
			RomWithCRC("Super Game (USA).sfc", SuperGameSize, SuperGameUSACRC)),
		Game("Super Game (Europe)", 1,
			RomWithCRC("Super Game (Europe).sfc", SuperGameSize, SuperGameEuropeCRC)),
	}
}

// Catalog wraps games in a catalog with a test header.
func Catalog(games ...*catalog.GameEntry) *catalog.Catalog {
	return &catalog.Catalog{
		Header: catalog.Header{
			Name:    "Test - System",
			Version: "20250101",
		},
		Games: games,
	}
}

// DatXML renders games as a minimal Logiqx document.
func DatXML(name string, games ...*catalog.GameEntry) string {
	out := "<?xml version=\"1.0\"?>\n<datafile>\n<header><name>" + name + "</name></header>\n"
	for _, g := range games {
		out += fmt.Sprintf("<game name=%q>\n", g.Title)
		for _, r := range g.Roms {
			out += fmt.Sprintf("<rom name=%q size=\"%d\" crc=\"%s\"/>\n", r.Name, r.Size, r.CRC())
		}
		out += "</game>\n"
	}
	return out + "</datafile>\n"
}
