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

import "strings"

// knownRegions lists every region name recognised inside a tag group, keyed
// by its lowercase form. No-Intro style catalogs name regions in full.
var knownRegions = func() map[string]string {
	names := []string{
		"USA", "Europe", "Japan", "World", "UK", "Asia", "Australia", "Austria",
		"Belgium", "Brazil", "Bulgaria", "Canada", "China", "Croatia", "Cyprus",
		"Czech Republic", "Denmark", "Estonia", "Finland", "France", "Germany",
		"Greece", "Hong Kong", "Hungary", "India", "Ireland", "Israel", "Italy",
		"Korea", "Latin America", "Latvia", "Lithuania", "Luxembourg", "Malta",
		"Mexico", "Netherlands", "New Zealand", "Norway", "Poland", "Portugal",
		"Romania", "Russia", "Scandinavia", "Slovakia", "Slovenia", "South Africa",
		"Spain", "Sweden", "Switzerland", "Taiwan", "Turkey", "United Kingdom",
	}
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = n
	}
	return m
}()

// unknownRegion is consumed as a region tag but contributes no region.
const unknownRegion = "unknown"

// regionLanguages is the language assumed for a title whose only locale
// information is its primary region.
var regionLanguages = map[string]string{
	"USA":            "En",
	"Europe":         "En",
	"Japan":          "Ja",
	"Germany":        "De",
	"France":         "Fr",
	"Spain":          "Es",
	"Italy":          "It",
	"Netherlands":    "Nl",
	"Brazil":         "Pt",
	"Portugal":       "Pt",
	"Korea":          "Ko",
	"China":          "Zh",
	"Taiwan":         "Zh",
	"Hong Kong":      "Zh",
	"Sweden":         "Sv",
	"Norway":         "No",
	"Denmark":        "Da",
	"Finland":        "Fi",
	"Russia":         "Ru",
	"Poland":         "Pl",
	"UK":             "En",
	"United Kingdom": "En",
	"Canada":         "En",
	"Australia":      "En",
	"New Zealand":    "En",
	"World":          "En",
	"Asia":           "En",
}

// knownLanguages are the two-letter language codes accepted in a language
// group, keyed lowercase with the canonical title-case value.
var knownLanguages = func() map[string]string {
	codes := []string{
		"En", "Ja", "Fr", "De", "Es", "It", "Nl", "Pt", "Sv", "No", "Da", "Fi",
		"Zh", "Ko", "Pl", "Ru", "Cs", "El", "Hu", "Tr", "Ar", "He", "Ca", "Hr",
		"Sk", "Sl", "Ro", "Bg", "Uk", "Th", "Id", "Vi", "Hi", "Is", "Et", "Lv", "Lt",
	}
	m := make(map[string]string, len(codes))
	for _, c := range codes {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// threeLetterLanguages maps the three-letter codes used by translation tags
// (T+Eng, T-Ger) to two-letter language codes.
var threeLetterLanguages = map[string]string{
	"eng": "En", "ger": "De", "fre": "Fr", "spa": "Es", "ita": "It",
	"rus": "Ru", "por": "Pt", "dut": "Nl", "swe": "Sv", "nor": "No",
	"fin": "Fi", "dan": "Da", "pol": "Pl", "cze": "Cs", "gre": "El",
	"hun": "Hu", "tur": "Tr", "ara": "Ar", "heb": "He", "jpn": "Ja",
	"kor": "Ko", "chi": "Zh", "bra": "Pt", "cat": "Ca", "rom": "Ro",
}

// languageCode normalises a two or three letter language code to its
// two-letter title-case form. It returns "" for unknown codes.
func languageCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch len(code) {
	case 2:
		return knownLanguages[code]
	case 3:
		return threeLetterLanguages[code]
	}
	return ""
}

// RegionLanguage returns the default language of a region, or "".
func RegionLanguage(region string) string {
	return regionLanguages[region]
}

// CanonicalRegion returns the catalog spelling of a region name, matching
// case-insensitively.
func CanonicalRegion(name string) (string, bool) {
	r, ok := knownRegions[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// CanonicalLanguage returns the title-case form of a language code.
func CanonicalLanguage(code string) (string, bool) {
	l := languageCode(code)
	return l, l != ""
}
