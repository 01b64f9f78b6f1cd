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
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/catalog/tags"
	"github.com/datkeeper/datkeeper/pkg/dedup"
)

// Filter is a compiled Config. It is immutable and safe for concurrent
// use.
type Filter struct {
	regions   map[string]struct{}
	languages map[string]struct{}
	hidden    map[string]struct{}
	priority  dedup.Priority
	cfg       Config
	flags     tags.Flag
}

// New compiles cfg.
func New(cfg Config) *Filter {
	f := &Filter{
		cfg:       cfg,
		regions:   foldSet(cfg.Regions),
		languages: foldSet(cfg.Languages),
		hidden:    make(map[string]struct{}, len(cfg.Hidden)),
		flags:     tags.ParseFlags(cfg.ExcludeFlags),
		priority:  dedup.NewPriority(cfg.RegionPriority()),
	}
	for _, h := range cfg.Hidden {
		f.hidden[h] = struct{}{}
	}
	return f
}

// Config returns the configuration the filter was compiled from.
func (f *Filter) Config() Config {
	return f.cfg
}

// Priority returns the region ranking used to pick preferred entries.
func (f *Filter) Priority() dedup.Priority {
	return f.priority
}

func foldSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return s
}

func intersects(set map[string]struct{}, values []string) bool {
	for _, v := range values {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}

// IsVisible reports whether e passes every criterion of the filter. An
// entry without regions or languages fails a non-empty allow-list.
func (f *Filter) IsVisible(e *catalog.GameEntry) bool {
	a := &e.Attrs
	switch {
	case f.regions != nil && !intersects(f.regions, a.Regions):
		return false
	case f.languages != nil && !intersects(f.languages, a.Languages):
		return false
	case a.Flags.Any(f.flags):
		return false
	case f.cfg.RequireVerified && !a.Verified:
		return false
	case f.cfg.ExcludeTranslations && a.Translation != "":
		return false
	case f.cfg.ExcludeHacks && a.Hack,
		f.cfg.ExcludePirates && a.Pirate,
		f.cfg.ExcludeTrained && a.Trained,
		f.cfg.ExcludeOverdumps && a.Overdump,
		f.cfg.ExcludeAlternates && a.Alternate,
		f.cfg.ExcludeBadDumps && a.BadDump:
		return false
	}
	if _, ok := f.hidden[e.Title]; ok {
		return false
	}
	_, ok := f.hidden[e.MajorName]
	return !ok
}

// IsVisible reports whether e passes cfg.
func IsVisible(e *catalog.GameEntry, cfg Config) bool {
	return New(cfg).IsVisible(e)
}

// Selection is the outcome of filtering one catalog.
type Selection struct {
	visible map[*catalog.GameEntry]struct{}
	wanted  map[*catalog.GameEntry]struct{}
	// Groups partition the catalog. Preferred is the best visible member,
	// or nil when no member is visible.
	Groups []dedup.Group
}

// Select filters games and, per group, picks the preferred visible
// member.
func (f *Filter) Select(games []*catalog.GameEntry) *Selection {
	s := &Selection{
		Groups:  dedup.Partition(games),
		visible: make(map[*catalog.GameEntry]struct{}, len(games)),
		wanted:  make(map[*catalog.GameEntry]struct{}, len(games)),
	}
	for i := range s.Groups {
		g := &s.Groups[i]
		shown := make([]*catalog.GameEntry, 0, len(g.Members))
		for _, m := range g.Members {
			if f.IsVisible(m) {
				shown = append(shown, m)
				s.visible[m] = struct{}{}
			}
		}
		g.Preferred = f.priority.Best(shown)
		if !f.cfg.Dedup {
			for _, m := range shown {
				s.wanted[m] = struct{}{}
			}
		} else if g.Preferred != nil {
			s.wanted[g.Preferred] = struct{}{}
		}
	}
	return s
}

// IsVisible reports whether e passed the filter.
func (s *Selection) IsVisible(e *catalog.GameEntry) bool {
	_, ok := s.visible[e]
	return ok
}

// IsWanted reports whether e is in the wanted set: visible and, when
// deduplicating, the preferred member of its group.
func (s *Selection) IsWanted(e *catalog.GameEntry) bool {
	_, ok := s.wanted[e]
	return ok
}

// Wanted returns the wanted entries in catalog order.
func (s *Selection) Wanted(games []*catalog.GameEntry) []*catalog.GameEntry {
	out := make([]*catalog.GameEntry, 0, len(s.wanted))
	for _, g := range games {
		if s.IsWanted(g) {
			out = append(out, g)
		}
	}
	return out
}

// Visible returns the wanted set of games under cfg, in catalog order.
func Visible(games []*catalog.GameEntry, cfg Config) []*catalog.GameEntry {
	return New(cfg).Select(games).Wanted(games)
}
