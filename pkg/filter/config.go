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

// Package filter decides which catalog entries the user wants and reports
// the wanted roms that are missing from a scanned collection.
package filter

import (
	"slices"

	"github.com/datkeeper/datkeeper/pkg/dedup"
)

// Config holds the user's filter criteria for one system. The zero value
// shows everything and does not deduplicate.
type Config struct {
	// Regions is the region allow-list. Its order is also the region
	// priority used for deduplication unless Priority is set. Empty allows
	// every region, including entries with none.
	Regions []string `json:"regions,omitempty" toml:"regions,omitempty" validate:"dive,region"`
	// Priority overrides the region ordering used for deduplication.
	Priority []string `json:"priority,omitempty" toml:"priority,omitempty" validate:"dive,region"`
	// Languages is the language allow-list. Empty allows every language.
	Languages []string `json:"languages,omitempty" toml:"languages,omitempty" validate:"dive,language"`
	// ExcludeFlags names status flags that hide an entry: beta, demo,
	// prototype, unlicensed, sample.
	ExcludeFlags []string `json:"excludeFlags,omitempty" toml:"exclude_flags,omitempty" validate:"dive,oneof=beta demo proto prototype unl unlicensed sample"` //nolint:lll // validator tag
	// Hidden titles are matched against both the raw title and the major
	// name.
	Hidden              []string `json:"hidden,omitempty" toml:"hidden,omitempty"`
	RequireVerified     bool     `json:"requireVerified" toml:"require_verified"`
	ExcludeTranslations bool     `json:"excludeTranslations" toml:"exclude_translations"`
	ExcludeHacks        bool     `json:"excludeHacks" toml:"exclude_hacks"`
	ExcludePirates      bool     `json:"excludePirates" toml:"exclude_pirates"`
	ExcludeTrained      bool     `json:"excludeTrained" toml:"exclude_trained"`
	ExcludeOverdumps    bool     `json:"excludeOverdumps" toml:"exclude_overdumps"`
	ExcludeAlternates   bool     `json:"excludeAlternates" toml:"exclude_alternates"`
	ExcludeBadDumps     bool     `json:"excludeBadDumps" toml:"exclude_bad_dumps"`
	// Dedup keeps only the preferred visible member of each group in the
	// wanted set and the missing report.
	Dedup bool `json:"dedup" toml:"dedup"`
}

// DefaultConfig is the configuration used for a system the user has not
// configured yet.
func DefaultConfig() Config {
	return Config{
		Regions:  []string{"USA", "Europe", "Japan", "World"},
		Priority: slices.Clone(dedup.DefaultRegionPriority),
		Dedup:    true,
	}
}

// RegionPriority is the ordering used to pick preferred entries.
func (c *Config) RegionPriority() []string {
	switch {
	case len(c.Priority) > 0:
		return c.Priority
	case len(c.Regions) > 0:
		return c.Regions
	default:
		return dedup.DefaultRegionPriority
	}
}

// IsHidden reports whether title is in the hidden set.
func (c *Config) IsHidden(title string) bool {
	return slices.Contains(c.Hidden, title)
}

// SetHidden adds or removes title from the hidden set.
func (c *Config) SetHidden(title string, hidden bool) {
	i := slices.Index(c.Hidden, title)
	switch {
	case hidden && i < 0:
		c.Hidden = append(c.Hidden, title)
	case !hidden && i >= 0:
		c.Hidden = slices.Delete(c.Hidden, i, i+1)
	}
}
