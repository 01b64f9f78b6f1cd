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
	"path"
	"path/filepath"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/scanner/hasher"
	"golang.org/x/text/unicode/norm"
)

// ContentKey is the content fingerprint a ROM is matched by.
type ContentKey struct {
	Size  int64
	CRC32 uint32
}

// Index holds the lookup tables the matcher needs over one catalog load.
// It is read-only once built and safe for concurrent use.
type Index struct {
	byContent map[ContentKey][]*catalog.RomRecord
	byName    map[string][]*catalog.RomRecord
	byStem    map[string][]*catalog.RomRecord
	games     map[*catalog.RomRecord]*catalog.GameEntry
	sizes     map[int64]struct{}
	stems     []string
	entries   []*catalog.GameEntry
}

// NewIndex indexes every ROM record of games. Candidate lists keep catalog
// order.
func NewIndex(games []*catalog.GameEntry) *Index {
	idx := &Index{
		byContent: make(map[ContentKey][]*catalog.RomRecord),
		byName:    make(map[string][]*catalog.RomRecord),
		byStem:    make(map[string][]*catalog.RomRecord),
		games:     make(map[*catalog.RomRecord]*catalog.GameEntry),
		sizes:     make(map[int64]struct{}),
		entries:   games,
	}
	seenStem := make(map[string]struct{})
	for _, g := range games {
		for _, r := range g.Roms {
			idx.games[r] = g
			key := ContentKey{Size: r.Size, CRC32: r.CRC32}
			idx.byContent[key] = append(idx.byContent[key], r)
			idx.sizes[r.Size] = struct{}{}

			name := NormalizeName(r.Name)
			idx.byName[name] = append(idx.byName[name], r)
			stem := trimExt(name)
			idx.byStem[stem] = append(idx.byStem[stem], r)
			if _, ok := seenStem[stem]; !ok {
				seenStem[stem] = struct{}{}
				idx.stems = append(idx.stems, stem)
			}
		}
	}
	return idx
}

// NormalizeName is the filename index key: base name only, Unicode NFC,
// lowercase. Catalog names use forward slashes for folders.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.ToLower(norm.NFC.String(path.Base(name)))
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Entries returns the games the index was built from.
func (idx *Index) Entries() []*catalog.GameEntry {
	return idx.entries
}

// Game returns the entry owning r.
func (idx *Index) Game(r *catalog.RomRecord) *catalog.GameEntry {
	return idx.games[r]
}

// ByContent returns the records with the given size and CRC32.
func (idx *Index) ByContent(key ContentKey) []*catalog.RomRecord {
	return idx.byContent[key]
}

// ByName returns the records a file path names. An archive is looked up
// by its name without the archive extension, so "Game.zip" finds
// "Game.sfc".
func (idx *Index) ByName(p string) []*catalog.RomRecord {
	name := NormalizeName(filepath.ToSlash(p))
	if rs := idx.byName[name]; len(rs) > 0 {
		return rs
	}
	if hasher.IsArchive(name) {
		return idx.byStem[trimExt(name)]
	}
	return nil
}

// HasSize reports whether any record has this exact size. Files of any
// other size cannot match by content, so they need not be hashed.
func (idx *Index) HasSize(size int64) bool {
	_, ok := idx.sizes[size]
	return ok
}

// Stems returns the normalised record names without extension, in catalog
// order and without duplicates.
func (idx *Index) Stems() []string {
	return idx.stems
}
