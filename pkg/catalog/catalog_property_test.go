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

package catalog

import (
	"fmt"
	"html"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

type genGame struct {
	name string
	roms []genRom
}

type genRom struct {
	name string
	size int64
	crc  uint32
}

func genGameGen() *rapid.Generator[genGame] {
	titles := []string{
		"Super Game", "Quest & Co", "Puzzle <Deluxe>", "Racer", "Café",
	}
	tagSets := []string{
		"", " (USA)", " (Europe)", " (Japan) (Rev A)", " (USA, Europe) [!]",
		" (World) (Beta)", " (Disc 1)", " (Germany) (En,De)",
	}
	return rapid.Custom(func(t *rapid.T) genGame {
		name := rapid.SampledFrom(titles).Draw(t, "title") + rapid.SampledFrom(tagSets).Draw(t, "tags")
		n := rapid.IntRange(0, 3).Draw(t, "roms")
		g := genGame{name: name}
		for i := range n {
			g.roms = append(g.roms, genRom{
				name: fmt.Sprintf("%s %d.bin", name, i),
				size: rapid.Int64Range(-2, 1<<24).Draw(t, "size"),
				crc:  rapid.Uint32().Draw(t, "crc"),
			})
		}
		return g
	})
}

func renderXML(games []genGame) string {
	var sb strings.Builder
	sb.WriteString("<datafile><header><name>Gen</name></header>")
	for _, g := range games {
		fmt.Fprintf(&sb, `<game name="%s">`, html.EscapeString(g.name))
		for _, r := range g.roms {
			fmt.Fprintf(&sb, `<rom name="%s" size="%d" crc="%08X"/>`, html.EscapeString(r.name), r.size, r.crc)
		}
		sb.WriteString("</game>")
	}
	sb.WriteString("</datafile>")
	return sb.String()
}

// TestPropertyParseIdempotent verifies reparsing the same document gives
// identical results with games in document order.
func TestPropertyParseIdempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		games := rapid.SliceOfN(genGameGen(), 0, 10).Draw(t, "games")
		doc := renderXML(games)

		first, err := Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		second, err := Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("reparse: %v", err)
		}
		if !reflect.DeepEqual(first.Games, second.Games) {
			t.Fatalf("reparse differs")
		}

		// every accepted game keeps its relative document order
		pos := 0
		for _, g := range first.Games {
			for pos < len(games) && games[pos].name != g.Title {
				pos++
			}
			if pos == len(games) {
				t.Fatalf("game %q out of order", g.Title)
			}
			pos++
		}

		if len(first.Games)+len(first.Warnings) != len(games) {
			t.Fatalf("games %d + warnings %d != elements %d",
				len(first.Games), len(first.Warnings), len(games))
		}
	})
}

// TestPropertyRomOwnership verifies every rom points back at its game.
func TestPropertyRomOwnership(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		games := rapid.SliceOfN(genGameGen(), 1, 8).Draw(t, "games")
		cat, err := Parse(strings.NewReader(renderXML(games)))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		for i, g := range cat.Games {
			if g.Index != i {
				t.Fatalf("game %q index %d at position %d", g.Title, g.Index, i)
			}
			for _, r := range g.Roms {
				if r.GameID != g.ID || r.GameIndex != g.Index {
					t.Fatalf("rom %q not linked to %q", r.Name, g.Title)
				}
				if r.Size < 0 || len(r.CRC()) != 8 {
					t.Fatalf("invalid rom accepted: %+v", r)
				}
			}
		}
	})
}
