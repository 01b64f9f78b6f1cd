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

// Package catalog holds the game and ROM records of a DAT catalog and parses
// them from Logiqx XML or clrmamepro documents.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog/tags"
)

var (
	// ErrCatalogMalformed is returned when a document is not well-formed
	// enough to be read at all. The load is aborted.
	ErrCatalogMalformed = errors.New("catalog malformed")
	// ErrEntryInvalid marks a single game that failed validation. It is
	// only ever reported through a Warning; the load continues.
	ErrEntryInvalid = errors.New("catalog entry invalid")
)

// Rom status values used by DAT files.
const (
	RomStatusVerified = "verified"
	RomStatusBadDump  = "baddump"
	RomStatusNoDump   = "nodump"
)

// Header is the catalog's <header> block.
type Header struct {
	Name        string
	Description string
	Version     string
	Date        string
	Author      string
	Homepage    string
}

// RomRecord is one file a game consists of.
type RomRecord struct {
	Name   string
	MD5    string
	SHA1   string
	Status string
	Serial string
	// GameID and GameIndex point back to the single owning game.
	GameID    string
	GameIndex int
	Size      int64
	CRC32     uint32
}

// CRC returns the record's CRC32 as 8 lowercase hex digits.
func (r *RomRecord) CRC() string {
	return FormatCRC(r.CRC32)
}

// GameEntry is one <game> (or <machine>) of a catalog.
type GameEntry struct {
	ID          string
	Title       string
	MajorName   string
	Description string
	CloneOf     string
	groupKey    string
	Roms        []*RomRecord
	Attrs       tags.Attributes
	Index       int
}

// GroupKey identifies the dedup group the entry belongs to: the major name,
// plus the disc token for entries that are one disc of a set.
func (g *GameEntry) GroupKey() string {
	if g.groupKey != "" {
		return g.groupKey
	}
	return groupKeyFor(g.MajorName, g.Attrs.Disc)
}

// NewGameEntry builds an entry from a raw title, extracting its attributes
// and linking every rom back to it. A rom with status "verified" marks the
// entry verified even when the title lacks [!].
func NewGameEntry(id, title string, index int, roms []*RomRecord) *GameEntry {
	major, attrs := tags.Extract(title)
	for _, r := range roms {
		r.GameID = id
		r.GameIndex = index
		if r.Status == RomStatusVerified {
			attrs.Verified = true
		}
	}
	return &GameEntry{
		ID:        id,
		Title:     title,
		MajorName: major,
		Roms:      roms,
		Attrs:     attrs,
		Index:     index,
		groupKey:  groupKeyFor(major, attrs.Disc),
	}
}

func groupKeyFor(major, disc string) string {
	if disc == "" {
		return major
	}
	return major + "\x00" + disc
}

// Warning records a game that was skipped during a load.
type Warning struct {
	Err      error
	GameName string
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.GameName, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Catalog is the result of one load. Games keep document order.
type Catalog struct {
	Header   Header
	Games    []*GameEntry
	Warnings []Warning
}

// RomCount returns the number of ROM records over all games.
func (c *Catalog) RomCount() int {
	n := 0
	for _, g := range c.Games {
		n += len(g.Roms)
	}
	return n
}

// FormatCRC renders a CRC32 as 8 lowercase hex digits.
func FormatCRC(crc uint32) string {
	return fmt.Sprintf("%08x", crc)
}

// ParseCRC parses exactly 8 hex digits, in either case.
func ParseCRC(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return 0, fmt.Errorf("crc %q: want 8 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("crc %q: %w", s, err)
	}
	return uint32(v), nil
}

// rawRom carries the unvalidated attributes of a rom element.
type rawRom struct {
	name   string
	size   string
	crc    string
	md5    string
	sha1   string
	status string
	serial string
}

// rawGame carries the unvalidated content of a game element.
type rawGame struct {
	id          string
	name        string
	description string
	cloneOf     string
	roms        []rawRom
}

// builder turns raw games into entries, collecting warnings for the ones
// that fail validation. Both parsers share it so validation is identical.
type builder struct {
	cat      *Catalog
	position int
}

func newBuilder() *builder {
	return &builder{cat: &Catalog{Games: make([]*GameEntry, 0, 256)}}
}

func (b *builder) add(raw rawGame) {
	b.position++
	if raw.name == "" {
		b.warn(raw.name, errors.New("game has no name"))
		return
	}
	if len(raw.roms) == 0 {
		b.warn(raw.name, errors.New("game has no roms"))
		return
	}

	id := raw.id
	if id == "" {
		id = strconv.Itoa(b.position)
	}
	index := len(b.cat.Games)

	roms := make([]*RomRecord, 0, len(raw.roms))
	for _, rr := range raw.roms {
		rom, err := buildRom(rr)
		if err != nil {
			b.warn(raw.name, err)
			return
		}
		roms = append(roms, rom)
	}

	g := NewGameEntry(id, raw.name, index, roms)
	g.Description = raw.description
	g.CloneOf = raw.cloneOf
	b.cat.Games = append(b.cat.Games, g)
}

func (b *builder) warn(name string, err error) {
	b.cat.Warnings = append(b.cat.Warnings, Warning{
		GameName: name,
		Err:      fmt.Errorf("%w: %w", ErrEntryInvalid, err),
	})
}

func buildRom(rr rawRom) (*RomRecord, error) {
	if rr.name == "" {
		return nil, errors.New("rom has no name")
	}
	size, err := strconv.ParseInt(strings.TrimSpace(rr.size), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("rom %q: invalid size %q", rr.name, rr.size)
	}
	if size < 0 {
		return nil, fmt.Errorf("rom %q: negative size %d", rr.name, size)
	}
	crc, err := ParseCRC(rr.crc)
	if err != nil {
		return nil, fmt.Errorf("rom %q: %w", rr.name, err)
	}
	return &RomRecord{
		Name:   rr.name,
		Size:   size,
		CRC32:  crc,
		MD5:    strings.ToLower(strings.TrimSpace(rr.md5)),
		SHA1:   strings.ToLower(strings.TrimSpace(rr.sha1)),
		Status: strings.ToLower(strings.TrimSpace(rr.status)),
		Serial: rr.serial,
	}, nil
}
