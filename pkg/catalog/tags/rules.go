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
	"regexp"
	"slices"
	"strings"
)

// BracketType records which delimiters enclosed a tag group.
type BracketType uint8

const (
	// BracketParen covers (), {} and <> groups: region, language, version
	// and development status.
	BracketParen BracketType = iota
	// BracketSquare covers [] groups: dump information.
	BracketSquare
)

// Group is one delimited tag group found in a title, with its content
// whitespace-collapsed and the delimiters stripped.
type Group struct {
	Content string
	Bracket BracketType
}

// Kind names the attribute family a rule fills in.
type Kind uint8

const (
	KindStatus Kind = iota
	KindTranslation
	KindRevision
	KindVerification
	KindRegion
	KindLanguage
	KindDumpQuality
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindTranslation:
		return "translation"
	case KindRevision:
		return "revision"
	case KindVerification:
		return "verification"
	case KindRegion:
		return "region"
	case KindLanguage:
		return "language"
	case KindDumpQuality:
		return "dump-quality"
	default:
		return "unknown"
	}
}

// Rule classifies a tag group. Apply returns false, leaving attrs untouched,
// when the group is not of the rule's kind.
type Rule struct {
	Apply func(g Group, attrs *Attributes) bool
	Kind  Kind
}

var (
	reStatusWord = regexp.MustCompile(
		`(?i)^(beta|demo|kiosk|proto|prototype|sample|unl|unlicensed)(?:\s+\d+[a-z]?)?$`,
	)
	reTranslation = regexp.MustCompile(`^T([+-])([A-Za-z]{2,3})(?:\s.*)?$`)
	reRevision    = regexp.MustCompile(`(?i)^rev[\s-]*([A-Z0-9]+(?:\.[A-Z0-9]+)*)$`)
	reVersion     = regexp.MustCompile(`(?i)^v(\d+(?:\.\d+)*)([a-z]?)$`)
	rePRG         = regexp.MustCompile(`(?i)^PRG\s*(\d+)$`)
	reAlt         = regexp.MustCompile(`(?i)^alt(?:\s*(\d+))?$`)
	reDumpCode    = regexp.MustCompile(`^([aophtb])(\d+[A-Za-z]*)?$`)
	reMultiLang   = regexp.MustCompile(`^M\d+$`)
	reDisc        = regexp.MustCompile(`(?i)^(?:disc|disk|side)\s+([A-Z0-9]+)(?:\s+of\s+\d+)?$`)
	reListSep     = regexp.MustCompile(`\s*[,+]\s*|\s+-\s+`)
	reLangSep     = regexp.MustCompile(`\s*[,+]\s*`)
)

// DefaultRules is the rule list in precedence order. A group is classified by
// the first rule that accepts it.
var DefaultRules = []Rule{
	{Kind: KindStatus, Apply: applyStatus},
	{Kind: KindTranslation, Apply: applyTranslation},
	{Kind: KindRevision, Apply: applyRevision},
	{Kind: KindVerification, Apply: applyVerification},
	{Kind: KindRegion, Apply: applyRegion},
	{Kind: KindLanguage, Apply: applyLanguage},
	{Kind: KindDumpQuality, Apply: applyDumpQuality},
}

func applyStatus(g Group, attrs *Attributes) bool {
	if g.Bracket != BracketParen {
		return false
	}
	parts := reLangSep.Split(g.Content, -1)
	var flags Flag
	for _, p := range parts {
		m := reStatusWord.FindStringSubmatch(p)
		if m == nil {
			return false
		}
		switch strings.ToLower(m[1]) {
		case "beta":
			flags |= FlagBeta
		case "demo", "kiosk":
			flags |= FlagDemo
		case "proto", "prototype":
			flags |= FlagPrototype
		case "sample":
			flags |= FlagSample
		case "unl", "unlicensed":
			flags |= FlagUnlicensed
		}
	}
	attrs.Flags |= flags
	return true
}

func applyTranslation(g Group, attrs *Attributes) bool {
	m := reTranslation.FindStringSubmatch(g.Content)
	if m == nil {
		return false
	}
	lang := languageCode(m[2])
	if lang == "" {
		return false
	}
	attrs.Translation = lang
	return true
}

func applyRevision(g Group, attrs *Attributes) bool {
	if g.Bracket != BracketParen {
		return false
	}
	c := g.Content
	if m := reRevision.FindStringSubmatch(c); m != nil {
		attrs.Revision = Revision{Label: "Rev " + strings.ToUpper(m[1]), Key: revisionKey(m[1])}
		return true
	}
	if m := reVersion.FindStringSubmatch(c); m != nil {
		key := revisionKey(m[1])
		if m[2] != "" {
			key = append(key, lettersValue(m[2]))
		}
		attrs.Revision = Revision{Label: "v" + m[1] + m[2], Key: key}
		return true
	}
	if m := rePRG.FindStringSubmatch(c); m != nil {
		attrs.Revision = Revision{Label: "PRG" + m[1], Key: revisionKey(m[1])}
		return true
	}
	if reAlt.MatchString(c) {
		attrs.Alternate = true
		return true
	}
	return false
}

func applyVerification(g Group, attrs *Attributes) bool {
	if g.Bracket != BracketSquare || g.Content != "!" {
		return false
	}
	attrs.Verified = true
	return true
}

func applyRegion(g Group, attrs *Attributes) bool {
	if g.Bracket != BracketParen {
		return false
	}
	parts := reListSep.Split(g.Content, -1)
	regions := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.EqualFold(p, unknownRegion) {
			continue
		}
		r, ok := CanonicalRegion(p)
		if !ok {
			return false
		}
		regions = append(regions, r)
	}
	for _, r := range regions {
		if !slices.Contains(attrs.Regions, r) {
			attrs.Regions = append(attrs.Regions, r)
		}
	}
	return true
}

func applyLanguage(g Group, attrs *Attributes) bool {
	if g.Bracket != BracketParen {
		return false
	}
	parts := reLangSep.Split(g.Content, -1)
	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		if reMultiLang.MatchString(p) {
			continue
		}
		if len(p) != 2 {
			return false
		}
		l, ok := CanonicalLanguage(p)
		if !ok {
			return false
		}
		langs = append(langs, l)
	}
	for _, l := range langs {
		if !slices.Contains(attrs.Languages, l) {
			attrs.Languages = append(attrs.Languages, l)
		}
	}
	return true
}

func applyDumpQuality(g Group, attrs *Attributes) bool {
	if g.Bracket != BracketSquare {
		return false
	}
	m := reDumpCode.FindStringSubmatch(g.Content)
	if m == nil {
		return false
	}
	switch m[1] {
	case "a":
		attrs.Alternate = true
	case "o":
		attrs.Overdump = true
	case "p":
		attrs.Pirate = true
	case "h":
		attrs.Hack = true
	case "t":
		attrs.Trained = true
	case "b":
		attrs.BadDump = true
	}
	return true
}

// discToken returns the disc identifier when the group is a disc marker.
func discToken(g Group) (string, bool) {
	if g.Bracket != BracketParen {
		return "", false
	}
	m := reDisc.FindStringSubmatch(g.Content)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}
