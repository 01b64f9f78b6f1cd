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
	"path/filepath"

	"github.com/hbollon/go-edlib"
)

// HintThreshold is the Jaro-Winkler similarity a catalog name needs to be
// offered as a hint for an unrecognized file.
const HintThreshold = 0.85

// addHints sets Hint on every file that matched nothing by name or content
// to the most similar catalog name, when one is close enough.
func (s *Scanner) addHints(files []*ScannedFile) {
	stems := s.index.Stems()
	if len(stems) == 0 {
		return
	}
	for _, sf := range files {
		if sf.Record != nil || sf.NameRecord != nil || sf.Duplicate || sf.Err != nil {
			continue
		}
		name := NormalizeName(filepath.ToSlash(sf.Path))
		name = trimExt(name)

		var best string
		var bestScore float32
		for _, stem := range stems {
			score := edlib.JaroWinklerSimilarity(name, stem)
			if score > bestScore {
				best, bestScore = stem, score
			}
		}
		if bestScore >= HintThreshold {
			sf.Hint = s.hintName(best)
		}
	}
}

// hintName maps a normalised stem back to the catalog's spelling.
func (s *Scanner) hintName(stem string) string {
	if rs := s.index.byStem[stem]; len(rs) > 0 {
		return rs[0].Name
	}
	return stem
}
