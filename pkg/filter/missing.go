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

package filter

import (
	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/scanner"
)

// MissingRom is one line of the missing report.
type MissingRom struct {
	Game *catalog.GameEntry
	Rom  *catalog.RomRecord
	// Status is Missing, or Broken when a file carries the rom's name but
	// not its content.
	Status classify.Status
}

// Missing computes the missing report, suppressing per group: a group in
// which the user owns any visible member reports nothing for its other
// members. Owning a member means at least one of its roms is matched by
// content. A group owning nothing reports the preferred visible member
// when deduplicating, and every visible member otherwise. Owned members
// still report their own unmatched roms, so a partial multi-rom set is
// surfaced. Ignored roms are never reported. Results are in catalog
// order.
func (f *Filter) Missing(
	games []*catalog.GameEntry,
	files []*scanner.ScannedFile,
	ignore classify.IgnoreSet,
) []MissingRom {
	statuses := classify.RecordStatuses(games, files, ignore)
	sel := f.Select(games)
	owned := ownedBy(statuses)

	report := make(map[*catalog.GameEntry]struct{})
	for _, g := range sel.Groups {
		var ownsAny bool
		for _, m := range g.Members {
			if sel.IsVisible(m) && owned(m) {
				report[m] = struct{}{}
				ownsAny = true
			}
		}
		switch {
		case ownsAny:
		case f.cfg.Dedup:
			if g.Preferred != nil {
				report[g.Preferred] = struct{}{}
			}
		default:
			for _, m := range g.Members {
				if sel.IsVisible(m) {
					report[m] = struct{}{}
				}
			}
		}
	}

	var out []MissingRom
	for _, g := range games {
		if _, ok := report[g]; !ok {
			continue
		}
		for _, r := range g.Roms {
			if st := statuses[r]; st == classify.Missing || st == classify.Broken {
				out = append(out, MissingRom{Game: g, Rom: r, Status: st})
			}
		}
	}
	return out
}

// ownedBy reports whether at least one rom of a game is matched by
// content.
func ownedBy(statuses map[*catalog.RomRecord]classify.Status) func(*catalog.GameEntry) bool {
	return func(e *catalog.GameEntry) bool {
		for _, r := range e.Roms {
			if st := statuses[r]; st == classify.Correct || st == classify.NeedsRename {
				return true
			}
		}
		return false
	}
}

// Keep returns the predicate deciding which matched games stay in the
// collection. Hidden and filtered-out games never stay. When
// deduplicating only the best owned visible member of each group stays,
// so a group keeps one copy.
func (f *Filter) Keep(
	games []*catalog.GameEntry,
	files []*scanner.ScannedFile,
	ignore classify.IgnoreSet,
) func(*catalog.GameEntry) bool {
	sel := f.Select(games)
	if !f.cfg.Dedup {
		return sel.IsVisible
	}

	owned := ownedBy(classify.RecordStatuses(games, files, ignore))
	keep := make(map[*catalog.GameEntry]struct{})
	for _, g := range sel.Groups {
		var mine []*catalog.GameEntry
		for _, m := range g.Members {
			if sel.IsVisible(m) && owned(m) {
				mine = append(mine, m)
			}
		}
		if best := f.priority.Best(mine); best != nil {
			keep[best] = struct{}{}
		}
	}
	return func(e *catalog.GameEntry) bool {
		_, ok := keep[e]
		return ok
	}
}

// ComputeMissing returns the roms the collection lacks under cfg.
func ComputeMissing(
	games []*catalog.GameEntry,
	files []*scanner.ScannedFile,
	cfg Config,
) []*catalog.RomRecord {
	missing := New(cfg).Missing(games, files, nil)
	out := make([]*catalog.RomRecord, 0, len(missing))
	for _, m := range missing {
		out = append(out, m.Rom)
	}
	return out
}
