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
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Format is a catalog document format.
type Format int

const (
	FormatXML Format = iota
	FormatClrMamePro
)

func (f Format) String() string {
	if f == FormatClrMamePro {
		return "clrmamepro"
	}
	return "xml"
}

// Decode sniffs the document format from its first significant character
// and parses it.
func Decode(r io.Reader) (*Catalog, Format, error) {
	br := bufio.NewReader(r)
	format, err := sniff(br)
	if err != nil {
		return nil, format, err
	}
	var cat *Catalog
	if format == FormatXML {
		cat, err = Parse(br)
	} else {
		cat, err = ParseClrMamePro(br)
	}
	return cat, format, err
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func sniff(br *bufio.Reader) (Format, error) {
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return FormatXML, fmt.Errorf("failed to read catalog: %w", err)
		}
	}
	for i := 0; ; i++ {
		buf, err := br.Peek(i + 1)
		if errors.Is(err, io.EOF) {
			return FormatXML, fmt.Errorf("%w: empty document", ErrCatalogMalformed)
		} else if err != nil {
			return FormatXML, fmt.Errorf("failed to read catalog: %w", err)
		}
		c := buf[i]
		if c < 0x80 && unicode.IsSpace(rune(c)) {
			continue
		}
		if c == '<' {
			return FormatXML, nil
		}
		return FormatClrMamePro, nil
	}
}

// LoadFile opens and parses a catalog file in either supported format.
func LoadFile(fs afero.Fs, path string) (*Catalog, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func(f afero.File) {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close catalog file")
		}
	}(f)

	cat, format, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Str("format", format.String()).
		Str("name", cat.Header.Name).
		Int("games", len(cat.Games)).
		Int("roms", cat.RomCount()).
		Int("warnings", len(cat.Warnings)).
		Msg("loaded catalog")
	for _, w := range cat.Warnings {
		log.Debug().Err(w.Err).Str("game", w.GameName).Msg("skipped catalog entry")
	}
	return cat, nil
}
