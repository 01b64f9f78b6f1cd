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

// Package classify derives per-file and per-record statuses from scan
// results and recommends a file action for each file. Everything here is a
// pure function of its inputs and may be recomputed at any time.
package classify

import (
	"fmt"
	"slices"
	"strings"
)

// Status is the verdict for a scanned file or a catalog record.
type Status int

const (
	// Correct files match a record by content and carry its exact name.
	Correct Status = iota
	// NeedsRename files match a record by content under another name.
	NeedsRename
	// Missing records have no file of any kind.
	Missing
	// Broken files carry a record's name but not its content, or could
	// not be read.
	Broken
	// Unrecognized files match nothing, or duplicate a claimed record.
	Unrecognized
	// Ignored files and records were excluded by the user.
	Ignored
)

var statusNames = [...]string{
	Correct:      "correct",
	NeedsRename:  "needs-rename",
	Missing:      "missing",
	Broken:       "broken",
	Unrecognized: "unrecognized",
	Ignored:      "ignored",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name as produced by String.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := slices.Index(statusNames[:], name); i >= 0 {
		return Status(i), nil
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// IgnoreSet holds the CRC32 values the user chose to ignore.
type IgnoreSet map[uint32]struct{}

// NewIgnoreSet returns a set of crcs.
func NewIgnoreSet(crcs ...uint32) IgnoreSet {
	s := make(IgnoreSet, len(crcs))
	for _, c := range crcs {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether crc is ignored. A nil set ignores nothing.
func (s IgnoreSet) Has(crc uint32) bool {
	_, ok := s[crc]
	return ok
}

// Sorted returns the ignored values in ascending order.
func (s IgnoreSet) Sorted() []uint32 {
	out := make([]uint32, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
