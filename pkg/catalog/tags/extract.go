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

// Package tags extracts structured attributes from No-Intro style titles
// such as "Super Game (USA, Europe) (En,Fr) (Rev A) [!]".
//
// Tag groups are classified with an ordered rule list. The first rule that
// accepts a group wins, which gives a fixed precedence when a group could be
// read more than one way. Groups no rule accepts stay part of the major name.
package tags

import "strings"

// Extractor classifies tag groups with an ordered rule list.
type Extractor struct {
	Rules []Rule
}

// NewExtractor returns an extractor using rules, or DefaultRules when no
// rules are given.
func NewExtractor(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Extractor{Rules: rules}
}

var defaultExtractor = NewExtractor()

// Extract runs the default extractor.
func Extract(title string) (majorName string, attrs Attributes) {
	return defaultExtractor.Extract(title)
}

// MajorName returns only the residual title of Extract.
func MajorName(title string) string {
	name, _ := defaultExtractor.Extract(title)
	return name
}

// Extract returns the title with every recognised tag group removed and
// whitespace collapsed, along with the attributes those groups describe.
// Input that cannot be classified is never an error; it is kept in the name.
func (e *Extractor) Extract(title string) (majorName string, attrs Attributes) {
	var b strings.Builder
	b.Grow(len(title))

	i := 0
	for i < len(title) {
		closer, bracket, isOpener := groupCloser(title[i])
		if !isOpener {
			b.WriteByte(title[i])
			i++
			continue
		}
		end := strings.IndexByte(title[i+1:], closer)
		if end < 0 {
			// no matching closer, the opener is plain text
			b.WriteByte(title[i])
			i++
			continue
		}
		raw := title[i : i+1+end+1]
		g := Group{
			Content: strings.Join(strings.Fields(title[i+1:i+1+end]), " "),
			Bracket: bracket,
		}
		i += len(raw)

		if disc, ok := discToken(g); ok {
			attrs.Disc = disc
			b.WriteByte(' ')
			continue
		}
		if e.classify(g, &attrs) {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(raw)
	}

	if len(attrs.Languages) == 0 {
		if lang := RegionLanguage(attrs.PrimaryRegion()); lang != "" {
			attrs.Languages = []string{lang}
		}
	}

	return strings.Join(strings.Fields(b.String()), " "), attrs
}

func (e *Extractor) classify(g Group, attrs *Attributes) bool {
	if g.Content == "" {
		return false
	}
	for _, r := range e.Rules {
		if r.Apply(g, attrs) {
			return true
		}
	}
	return false
}

func groupCloser(c byte) (closer byte, bracket BracketType, ok bool) {
	switch c {
	case '(':
		return ')', BracketParen, true
	case '{':
		return '}', BracketParen, true
	case '<':
		return '>', BracketParen, true
	case '[':
		return ']', BracketSquare, true
	default:
		return 0, BracketParen, false
	}
}
