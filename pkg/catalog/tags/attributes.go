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

package tags

import (
	"strconv"
	"strings"
)

// Flag is a bitmask of release status markers found in a title.
type Flag uint8

const (
	FlagBeta Flag = 1 << iota
	FlagDemo
	FlagPrototype
	FlagUnlicensed
	FlagSample
)

// FlagNone means no status marker.
const FlagNone Flag = 0

var flagNames = []struct {
	name string
	flag Flag
}{
	{"beta", FlagBeta},
	{"demo", FlagDemo},
	{"prototype", FlagPrototype},
	{"unlicensed", FlagUnlicensed},
	{"sample", FlagSample},
}

// Has reports whether every bit of other is set.
func (f Flag) Has(other Flag) bool {
	return other != FlagNone && f&other == other
}

// Any reports whether at least one bit of other is set.
func (f Flag) Any(other Flag) bool {
	return f&other != 0
}

// Names returns the lowercase names of the set flags in a fixed order.
func (f Flag) Names() []string {
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flag) String() string {
	return strings.Join(f.Names(), ",")
}

// ParseFlag maps a flag name (as used in config files) to its Flag.
// "proto" and "unl" are accepted as aliases.
func ParseFlag(s string) (Flag, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "proto":
		return FlagPrototype, true
	case "unl":
		return FlagUnlicensed, true
	}
	for _, fn := range flagNames {
		if fn.name == s {
			return fn.flag, true
		}
	}
	return FlagNone, false
}

// ParseFlags combines a list of flag names, ignoring unknown ones.
func ParseFlags(names []string) Flag {
	var f Flag
	for _, n := range names {
		if parsed, ok := ParseFlag(n); ok {
			f |= parsed
		}
	}
	return f
}

// Revision is an ordered release token such as "Rev A", "v1.1" or "PRG1".
type Revision struct {
	// Label is the tag as written in the title, e.g. "Rev A".
	Label string
	// Key is the comparable form of the token: letters count from 1 (A=1),
	// dotted numbers become one element per component.
	Key []int
}

// IsZero reports whether no revision tag was present.
func (r Revision) IsZero() bool {
	return r.Label == "" && len(r.Key) == 0
}

// Compare orders revisions by Key element-wise. A missing revision sorts
// before any present one, so the base release is the lowest.
func (r Revision) Compare(o Revision) int {
	n := min(len(r.Key), len(o.Key))
	for i := range n {
		switch {
		case r.Key[i] < o.Key[i]:
			return -1
		case r.Key[i] > o.Key[i]:
			return 1
		}
	}
	switch {
	case len(r.Key) < len(o.Key):
		return -1
	case len(r.Key) > len(o.Key):
		return 1
	}
	return 0
}

func (r Revision) String() string {
	return r.Label
}

// revisionKey converts a revision token to its comparable key. Each dotted
// group is split into runs of digits and runs of letters, one element per
// run: numbers keep their value and letters are read as base-26 (A=1), so
// "1.1a" is {1, 1, 1} and sorts between "1.1" and "1.2".
func revisionKey(token string) []int {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	parts := strings.Split(token, ".")
	key := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			key = append(key, 0)
			continue
		}
		for _, run := range splitRuns(p) {
			if n, err := strconv.Atoi(run); err == nil {
				key = append(key, n)
			} else {
				key = append(key, lettersValue(run))
			}
		}
	}
	return key
}

// splitRuns cuts s where it switches between digits and other runes.
func splitRuns(s string) []string {
	var runs []string
	start := 0
	for i := 1; i < len(s); i++ {
		if isDigit(s[i]) != isDigit(s[i-1]) {
			runs = append(runs, s[start:i])
			start = i
		}
	}
	return append(runs, s[start:])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func lettersValue(s string) int {
	v := 0
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			v = v*26 + int(r-'A'+1)
		}
	}
	return v
}

// Attributes is the structured data pulled out of a catalog title.
type Attributes struct {
	Revision    Revision
	Translation string
	Disc        string
	Regions     []string
	Languages   []string
	Flags       Flag
	Verified    bool
	Alternate   bool
	Overdump    bool
	Pirate      bool
	Hack        bool
	Trained     bool
	BadDump     bool
}

// PrimaryRegion returns the first region listed, or "" when unknown.
func (a *Attributes) PrimaryRegion() string {
	if len(a.Regions) == 0 {
		return ""
	}
	return a.Regions[0]
}

// IsMultiDisc reports whether the title carried a disc marker.
func (a *Attributes) IsMultiDisc() bool {
	return a.Disc != ""
}

// IsZero reports whether nothing at all was extracted.
func (a *Attributes) IsZero() bool {
	return a.Revision.IsZero() &&
		a.Translation == "" &&
		a.Disc == "" &&
		len(a.Regions) == 0 &&
		len(a.Languages) == 0 &&
		a.Flags == FlagNone &&
		!a.Verified && !a.Alternate && !a.Overdump &&
		!a.Pirate && !a.Hack && !a.Trained && !a.BadDump
}

// Summary renders the attributes as a short human readable tag list, used
// in reports, e.g. "Rev A, Beta, T+De".
func (a *Attributes) Summary() string {
	parts := make([]string, 0, 6)
	if !a.Revision.IsZero() {
		parts = append(parts, a.Revision.Label)
	}
	for _, n := range a.Flags.Names() {
		parts = append(parts, strings.ToUpper(n[:1])+n[1:])
	}
	if a.Disc != "" {
		parts = append(parts, "Disc "+a.Disc)
	}
	if a.Translation != "" {
		parts = append(parts, "T+"+a.Translation)
	}
	if a.Verified {
		parts = append(parts, "!")
	}
	for _, m := range []struct {
		label string
		set   bool
	}{
		{"a", a.Alternate}, {"o", a.Overdump}, {"p", a.Pirate},
		{"h", a.Hack}, {"t", a.Trained}, {"b", a.BadDump},
	} {
		if m.set {
			parts = append(parts, m.label)
		}
	}
	return strings.Join(parts, ", ")
}
