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

package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// cmpField is one key/value pair of a clrmamepro block. Exactly one of value
// or block is set.
type cmpField struct {
	key   string
	value string
	block []cmpField
}

func (f cmpField) isBlock() bool {
	return f.block != nil
}

type cmpTokenKind uint8

const (
	cmpWord cmpTokenKind = iota
	cmpOpen
	cmpClose
	cmpEOF
)

type cmpToken struct {
	text string
	kind cmpTokenKind
	line int
}

type cmpLexer struct {
	r    *bufio.Reader
	line int
}

func (l *cmpLexer) next() (cmpToken, error) {
	for {
		c, _, err := l.r.ReadRune()
		if errors.Is(err, io.EOF) {
			return cmpToken{kind: cmpEOF, line: l.line}, nil
		} else if err != nil {
			return cmpToken{}, err
		}
		switch {
		case c == '\n':
			l.line++
		case unicode.IsSpace(c) || c == '\uFEFF':
		case c == '(':
			return cmpToken{kind: cmpOpen, text: "(", line: l.line}, nil
		case c == ')':
			return cmpToken{kind: cmpClose, text: ")", line: l.line}, nil
		case c == '"':
			return l.quoted()
		default:
			if err := l.r.UnreadRune(); err != nil {
				return cmpToken{}, err
			}
			return l.word()
		}
	}
}

func (l *cmpLexer) quoted() (cmpToken, error) {
	start := l.line
	var sb strings.Builder
	for {
		c, _, err := l.r.ReadRune()
		if errors.Is(err, io.EOF) {
			return cmpToken{}, fmt.Errorf("line %d: unterminated string", start)
		} else if err != nil {
			return cmpToken{}, err
		}
		switch c {
		case '"':
			return cmpToken{kind: cmpWord, text: sb.String(), line: start}, nil
		case '\\':
			esc, _, err := l.r.ReadRune()
			if err != nil {
				return cmpToken{}, fmt.Errorf("line %d: unterminated string", start)
			}
			sb.WriteRune(esc)
		case '\n':
			l.line++
			sb.WriteRune(c)
		default:
			sb.WriteRune(c)
		}
	}
}

func (l *cmpLexer) word() (cmpToken, error) {
	var sb strings.Builder
	for {
		c, _, err := l.r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return cmpToken{}, err
		}
		if unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' {
			if err := l.r.UnreadRune(); err != nil {
				return cmpToken{}, err
			}
			break
		}
		sb.WriteRune(c)
	}
	return cmpToken{kind: cmpWord, text: sb.String(), line: l.line}, nil
}

// parseBlock reads key/value pairs until the closing paren of the current
// block, or EOF at the top level.
func (l *cmpLexer) parseBlock(top bool) ([]cmpField, error) {
	fields := make([]cmpField, 0, 8)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case cmpEOF:
			if !top {
				return nil, fmt.Errorf("line %d: unexpected end of document", tok.line)
			}
			return fields, nil
		case cmpClose:
			if top {
				return nil, fmt.Errorf("line %d: unbalanced ')'", tok.line)
			}
			return fields, nil
		case cmpOpen:
			return nil, fmt.Errorf("line %d: block without a key", tok.line)
		case cmpWord:
		}

		key := strings.ToLower(tok.text)
		val, err := l.next()
		if err != nil {
			return nil, err
		}
		switch val.kind {
		case cmpOpen:
			block, err := l.parseBlock(false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, cmpField{key: key, block: block})
		case cmpWord:
			fields = append(fields, cmpField{key: key, value: val.text})
		default:
			return nil, fmt.Errorf("line %d: missing value for %q", val.line, key)
		}
	}
}

// ParseClrMamePro reads a catalog in the clrmamepro text format:
//
//	clrmamepro ( name "System" version 20240101 )
//	game ( name "Title (USA)" rom ( name "Title (USA).bin" size 1024 crc 0badf00d ) )
//
// Validation and warnings follow Parse.
func ParseClrMamePro(r io.Reader) (*Catalog, error) {
	l := &cmpLexer{r: bufio.NewReader(r), line: 1}
	top, err := l.parseBlock(true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogMalformed, err)
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCatalogMalformed)
	}

	b := newBuilder()
	for _, f := range top {
		if !f.isBlock() {
			return nil, fmt.Errorf("%w: top-level %q is not a block", ErrCatalogMalformed, f.key)
		}
		switch f.key {
		case "clrmamepro", "header":
			b.cat.Header = cmpHeader(f.block)
		case "game", "machine", "resource":
			b.add(cmpGame(f.block))
		}
	}
	return b.cat, nil
}

func cmpHeader(fields []cmpField) Header {
	var h Header
	for _, f := range fields {
		switch f.key {
		case "name":
			h.Name = f.value
		case "description":
			h.Description = f.value
		case "version":
			h.Version = f.value
		case "date":
			h.Date = f.value
		case "author":
			h.Author = f.value
		case "homepage", "url":
			h.Homepage = f.value
		}
	}
	return h
}

func cmpGame(fields []cmpField) rawGame {
	var g rawGame
	for _, f := range fields {
		switch f.key {
		case "name":
			g.name = strings.TrimSpace(f.value)
		case "id":
			g.id = f.value
		case "description":
			g.description = f.value
		case "cloneof", "cloneofid":
			if g.cloneOf == "" {
				g.cloneOf = f.value
			}
		case "rom":
			if f.isBlock() {
				g.roms = append(g.roms, cmpRom(f.block))
			}
		}
	}
	return g
}

func cmpRom(fields []cmpField) rawRom {
	var r rawRom
	for _, f := range fields {
		switch f.key {
		case "name":
			r.name = f.value
		case "size":
			r.size = f.value
		case "crc":
			r.crc = f.value
		case "md5":
			r.md5 = f.value
		case "sha1":
			r.sha1 = f.value
		case "status", "flags":
			r.status = f.value
		case "serial":
			r.serial = f.value
		}
	}
	return r
}
