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

package filter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/gocarina/gocsv"
)

// DisplayName renders an entry for reports: the major name followed by
// its regions, languages and a bracketed tag summary, e.g.
// "Super Game (USA, Europe) (En) [Rev A]".
func DisplayName(e *catalog.GameEntry) string {
	var sb strings.Builder
	sb.WriteString(e.MajorName)
	if len(e.Attrs.Regions) > 0 {
		sb.WriteString(" (" + strings.Join(e.Attrs.Regions, ", ") + ")")
	}
	if len(e.Attrs.Languages) > 0 {
		sb.WriteString(" (" + strings.Join(e.Attrs.Languages, ", ") + ")")
	}
	if s := e.Attrs.Summary(); s != "" {
		sb.WriteString(" [" + s + "]")
	}
	return sb.String()
}

// Line renders one missing rom. Entries with several roms name the rom
// after the entry.
func (m MissingRom) Line() string {
	line := DisplayName(m.Game)
	if len(m.Game.Roms) > 1 {
		line += " - " + m.Rom.Name
	}
	return line
}

// WriteText writes one line per missing rom, in report order.
func WriteText(w io.Writer, missing []MissingRom) error {
	bw := bufio.NewWriter(w)
	for _, m := range missing {
		if _, err := bw.WriteString(m.Line() + "\n"); err != nil {
			return fmt.Errorf("failed to write missing report: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write missing report: %w", err)
	}
	return nil
}

// ReportRow is the CSV form of a missing rom.
type ReportRow struct {
	Title     string `csv:"title"`
	Name      string `csv:"major_name"`
	Rom       string `csv:"rom"`
	Regions   string `csv:"regions"`
	Languages string `csv:"languages"`
	Tags      string `csv:"tags"`
	Status    string `csv:"status"`
	CRC32     string `csv:"crc32"`
	MD5       string `csv:"md5"`
	SHA1      string `csv:"sha1"`
	Size      int64  `csv:"size"`
}

// Rows converts missing roms to report rows.
func Rows(missing []MissingRom) []*ReportRow {
	rows := make([]*ReportRow, 0, len(missing))
	for _, m := range missing {
		rows = append(rows, &ReportRow{
			Title:     m.Game.Title,
			Name:      m.Game.MajorName,
			Rom:       m.Rom.Name,
			Regions:   strings.Join(m.Game.Attrs.Regions, ", "),
			Languages: strings.Join(m.Game.Attrs.Languages, ", "),
			Tags:      m.Game.Attrs.Summary(),
			Status:    m.Status.String(),
			CRC32:     m.Rom.CRC(),
			MD5:       m.Rom.MD5,
			SHA1:      m.Rom.SHA1,
			Size:      m.Rom.Size,
		})
	}
	return rows
}

// WriteCSV writes the missing report as CSV with a header row.
func WriteCSV(w io.Writer, missing []MissingRom) error {
	if err := gocsv.Marshal(Rows(missing), w); err != nil {
		return fmt.Errorf("failed to write missing csv: %w", err)
	}
	return nil
}
