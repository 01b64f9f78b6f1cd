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
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

type xmlHeader struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Version     string `xml:"version"`
	Date        string `xml:"date"`
	Author      string `xml:"author"`
	Homepage    string `xml:"homepage"`
}

type xmlRom struct {
	Name   string `xml:"name,attr"`
	Size   string `xml:"size,attr"`
	CRC    string `xml:"crc,attr"`
	MD5    string `xml:"md5,attr"`
	SHA1   string `xml:"sha1,attr"`
	Status string `xml:"status,attr"`
	Serial string `xml:"serial,attr"`
}

type xmlGame struct {
	ID          string   `xml:"id,attr"`
	Name        string   `xml:"name,attr"`
	CloneOf     string   `xml:"cloneof,attr"`
	CloneOfID   string   `xml:"cloneofid,attr"`
	Description string   `xml:"description"`
	Roms        []xmlRom `xml:"rom"`
}

// Parse reads a Logiqx XML catalog. Games are read one element at a time
// in document order. Games that fail validation are skipped and recorded
// in Warnings; only a document that is not well-formed XML is an error.
func Parse(r io.Reader) (*Catalog, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	b := newBuilder()
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogMalformed, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		switch se.Name.Local {
		case "header":
			var h xmlHeader
			if err := dec.DecodeElement(&h, &se); err != nil {
				return nil, fmt.Errorf("%w: header: %w", ErrCatalogMalformed, err)
			}
			b.cat.Header = Header{
				Name:        strings.TrimSpace(h.Name),
				Description: strings.TrimSpace(h.Description),
				Version:     strings.TrimSpace(h.Version),
				Date:        strings.TrimSpace(h.Date),
				Author:      strings.TrimSpace(h.Author),
				Homepage:    strings.TrimSpace(h.Homepage),
			}
		case "game", "machine":
			var g xmlGame
			if err := dec.DecodeElement(&g, &se); err != nil {
				return nil, fmt.Errorf("%w: game: %w", ErrCatalogMalformed, err)
			}
			b.add(g.raw())
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrCatalogMalformed)
	}
	return b.cat, nil
}

func (g *xmlGame) raw() rawGame {
	cloneOf := g.CloneOf
	if cloneOf == "" {
		cloneOf = g.CloneOfID
	}
	raw := rawGame{
		id:          strings.TrimSpace(g.ID),
		name:        strings.TrimSpace(g.Name),
		description: strings.TrimSpace(g.Description),
		cloneOf:     cloneOf,
		roms:        make([]rawRom, 0, len(g.Roms)),
	}
	for _, r := range g.Roms {
		raw.roms = append(raw.roms, rawRom{
			name:   r.Name,
			size:   r.Size,
			crc:    r.CRC,
			md5:    r.MD5,
			sha1:   r.SHA1,
			status: r.Status,
			serial: r.Serial,
		})
	}
	return raw
}

// charsetReader handles the legacy single-byte encodings some older DAT
// files declare.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
