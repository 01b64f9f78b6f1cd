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

// Package dedup groups catalog entries that are variants of one logical
// game and picks the preferred variant of each group.
package dedup

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/catalog/tags"
)

// DefaultRegionPriority is the region ordering used when the user has not
// configured one.
var DefaultRegionPriority = []string{
	"USA", "Japan", "Europe", "World", "UK",
	"Australia", "Austria", "Belgium", "Bulgaria", "Canada", "Croatia",
	"Cyprus", "Czech Republic", "Denmark", "Estonia", "Finland", "France",
	"Germany", "Greece", "Hungary", "Ireland", "Italy", "Latvia",
	"Lithuania", "Luxembourg", "Malta", "Netherlands", "Poland",
	"Portugal", "Romania", "Slovakia", "Slovenia", "Spain", "Sweden",
}

const unranked = math.MaxInt

// Priority ranks regions by their position in a user ordering.
type Priority struct {
	ranks map[string]int
}

// NewPriority builds a ranking from an ordered region list. Names are
// canonicalised; a repeated region keeps its first position.
func NewPriority(regions []string) Priority {
	p := Priority{ranks: make(map[string]int, len(regions))}
	for i, r := range regions {
		r = canonicalRegion(r)
		if _, ok := p.ranks[r]; !ok {
			p.ranks[r] = i
		}
	}
	return p
}

// Rank returns the position of region in the ordering. Regions absent
// from the ordering, and the empty region, rank after every listed one.
func (p Priority) Rank(region string) int {
	if region == "" {
		return unranked
	}
	if r, ok := p.ranks[canonicalRegion(region)]; ok {
		return r
	}
	return unranked
}

// Compare orders two entries of the same group: negative means a is
// preferred over b. Keys apply in order: primary region rank, verified
// dump, no beta/demo/prototype flag, higher revision, then catalog order.
// It is a total order for entries with distinct catalog indexes.
func (p Priority) Compare(a, b *catalog.GameEntry) int {
	if c := cmp.Compare(p.Rank(a.Attrs.PrimaryRegion()), p.Rank(b.Attrs.PrimaryRegion())); c != 0 {
		return c
	}
	if a.Attrs.Verified != b.Attrs.Verified {
		if a.Attrs.Verified {
			return -1
		}
		return 1
	}
	if ap, bp := prerelease(a), prerelease(b); ap != bp {
		if bp {
			return -1
		}
		return 1
	}
	if c := b.Attrs.Revision.Compare(a.Attrs.Revision); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Best returns the preferred entry of members, or nil when there are none.
func (p Priority) Best(members []*catalog.GameEntry) *catalog.GameEntry {
	if len(members) == 0 {
		return nil
	}
	return slices.MinFunc(members, p.Compare)
}

func canonicalRegion(name string) string {
	if r, ok := tags.CanonicalRegion(name); ok {
		return r
	}
	return strings.TrimSpace(name)
}

func prerelease(e *catalog.GameEntry) bool {
	return e.Attrs.Flags.Any(tags.FlagBeta | tags.FlagDemo | tags.FlagPrototype)
}

// Group is the set of entries sharing a group key.
type Group struct {
	Preferred *catalog.GameEntry
	Key       string
	// Members are in catalog order.
	Members []*catalog.GameEntry
}

// Shadowed returns every member except the preferred one.
func (g Group) Shadowed() []*catalog.GameEntry {
	out := make([]*catalog.GameEntry, 0, len(g.Members))
	for _, m := range g.Members {
		if m != g.Preferred {
			out = append(out, m)
		}
	}
	return out
}

// Build groups games by GroupKey and picks each group's preferred member
// using priority. Groups are returned in order of their first member in
// the catalog.
func Build(games []*catalog.GameEntry, priority []string) []Group {
	p := NewPriority(priority)
	groups := Partition(games)
	for i := range groups {
		groups[i].Preferred = p.Best(groups[i].Members)
	}
	return groups
}

// Partition groups games by GroupKey without choosing preferred members.
func Partition(games []*catalog.GameEntry) []Group {
	byKey := make(map[string]int)
	var groups []Group
	for _, g := range games {
		key := g.GroupKey()
		i, ok := byKey[key]
		if !ok {
			i = len(groups)
			byKey[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Members = append(groups[i].Members, g)
	}
	return groups
}

// Preferred returns the set of preferred entries across all groups.
func Preferred(groups []Group) map[*catalog.GameEntry]struct{} {
	out := make(map[*catalog.GameEntry]struct{}, len(groups))
	for _, g := range groups {
		if g.Preferred != nil {
			out[g.Preferred] = struct{}{}
		}
	}
	return out
}
