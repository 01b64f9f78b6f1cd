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

package classify

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/scanner"
	"github.com/datkeeper/datkeeper/pkg/scanner/hasher"
	"golang.org/x/text/unicode/norm"
)

// Classify returns the status of one scanned file. Rules apply in order:
// an ignored checksum wins over everything, then read errors, then the
// content match, then a filename hit whose content differs.
func Classify(f *scanner.ScannedFile, ignore IgnoreSet) Status {
	switch {
	case f.Hashed && ignore.Has(f.CRC32):
		return Ignored
	case f.Err != nil:
		return Broken
	case f.Record != nil:
		if NameMatches(f) {
			return Correct
		}
		return NeedsRename
	case f.Duplicate, f.CrossGroup:
		return Unrecognized
	case f.NameRecord != nil:
		return Broken
	default:
		return Unrecognized
	}
}

// CanonicalName is the name a matched file should carry: the record's
// name, or for an archive the record's name with the archive's extension.
// It returns "" for unmatched files.
func CanonicalName(f *scanner.ScannedFile) string {
	if f.Record == nil {
		return ""
	}
	name := path.Base(strings.ReplaceAll(f.Record.Name, "\\", "/"))
	if hasher.IsArchive(f.Path) && !hasher.IsArchive(name) {
		name = strings.TrimSuffix(name, path.Ext(name)) + filepath.Ext(f.Path)
	}
	return name
}

// NameMatches reports whether a matched file already has its canonical
// name. Names are compared after Unicode NFC normalisation.
func NameMatches(f *scanner.ScannedFile) bool {
	want := CanonicalName(f)
	if want == "" {
		return false
	}
	return norm.NFC.String(filepath.Base(f.Path)) == norm.NFC.String(want)
}

// Reason explains a file's status in a few words.
func Reason(f *scanner.ScannedFile, status Status) string {
	switch status {
	case Ignored:
		return "checksum ignored"
	case Broken:
		if f.Err != nil {
			return f.Err.Error()
		}
		return "checksum or size does not match " + f.NameRecord.Name
	case NeedsRename:
		return "rename to " + CanonicalName(f)
	case Unrecognized:
		switch {
		case f.Duplicate:
			return "duplicate of " + f.DuplicateOf.Name
		case f.CrossGroup:
			return "content matches several games"
		case f.Hint != "":
			return "similar to " + f.Hint
		}
		return "not in catalog"
	case Correct, Missing:
	}
	return ""
}

// RecordStatuses gives every record of games a status: the status of the
// file that claimed it, Broken when only a mismatching file carries its
// name, Ignored when its checksum is ignored, and Missing otherwise.
func RecordStatuses(
	games []*catalog.GameEntry,
	files []*scanner.ScannedFile,
	ignore IgnoreSet,
) map[*catalog.RomRecord]Status {
	claimed := make(map[*catalog.RomRecord]Status, len(files))
	named := make(map[*catalog.RomRecord]struct{})
	for _, f := range files {
		st := Classify(f, ignore)
		if f.Record != nil {
			claimed[f.Record] = st
			continue
		}
		if st == Broken && f.NameRecord != nil {
			named[f.NameRecord] = struct{}{}
		}
	}

	out := make(map[*catalog.RomRecord]Status)
	for _, g := range games {
		for _, r := range g.Roms {
			switch st, ok := claimed[r]; {
			case ok:
				out[r] = st
			case ignore.Has(r.CRC32):
				out[r] = Ignored
			default:
				if _, broken := named[r]; broken {
					out[r] = Broken
				} else {
					out[r] = Missing
				}
			}
		}
	}
	return out
}

// Summary counts the outcome of a scan.
type Summary struct {
	Correct       int `json:"correct"`
	WrongFilename int `json:"wrongFilename"`
	Broken        int `json:"broken"`
	Unrecognized  int `json:"unrecognized"`
	Duplicates    int `json:"duplicates"`
	Ignored       int `json:"ignored"`
	Missing       int `json:"missing"`
}

// Summarize counts file statuses and missing records.
func Summarize(
	games []*catalog.GameEntry,
	files []*scanner.ScannedFile,
	ignore IgnoreSet,
) Summary {
	var s Summary
	for _, f := range files {
		switch Classify(f, ignore) {
		case Correct:
			s.Correct++
		case NeedsRename:
			s.WrongFilename++
		case Broken:
			s.Broken++
		case Unrecognized:
			if f.Duplicate {
				s.Duplicates++
			} else {
				s.Unrecognized++
			}
		case Ignored:
			s.Ignored++
		case Missing:
		}
	}
	for _, st := range RecordStatuses(games, files, ignore) {
		if st == Missing {
			s.Missing++
		}
	}
	return s
}

// DuplicateGroup lists files sharing one checksum.
type DuplicateGroup struct {
	Files []*scanner.ScannedFile
	CRC32 uint32
}

// Duplicates groups hashed files by CRC32, keeping only checksums held by
// more than one file. Groups and files keep scan order.
func Duplicates(files []*scanner.ScannedFile) []DuplicateGroup {
	byCRC := make(map[uint32]int)
	var groups []DuplicateGroup
	for _, f := range files {
		if !f.Hashed {
			continue
		}
		i, ok := byCRC[f.CRC32]
		if !ok {
			i = len(groups)
			byCRC[f.CRC32] = i
			groups = append(groups, DuplicateGroup{CRC32: f.CRC32})
		}
		groups[i].Files = append(groups[i].Files, f)
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g.Files) > 1 {
			out = append(out, g)
		}
	}
	return out
}
