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

package service

import (
	"context"
	"fmt"

	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/datkeeper/datkeeper/pkg/scanner"
)

// FileReport is the verdict on one scanned file.
type FileReport struct {
	File   *scanner.ScannedFile
	Reason string
	Status classify.Status
}

// Evaluation combines a scan result with the system's filter settings and
// ignore overrides.
type Evaluation struct {
	Result          *scanner.Result
	Files           []FileReport
	Recommendations []classify.Recommendation
	Missing         []filter.MissingRom
	Duplicates      []classify.DuplicateGroup
	Filter          filter.Config
	Summary         classify.Summary
}

// Record converts the evaluation into its stored form.
func (ev *Evaluation) Record(scanID string) *database.ScanRecord {
	rec := &database.ScanRecord{
		ScanID:    scanID,
		Roots:     ev.Result.Roots,
		ScannedAt: ev.Result.Finished,
		Summary:   ev.Summary,
		Cancelled: ev.Result.Cancelled,
		Files:     make([]database.ScannedFile, 0, len(ev.Files)),
	}
	for _, fr := range ev.Files {
		sf := database.ScannedFile{
			Path:   fr.File.Path,
			CRC32:  fr.File.CRC(),
			Status: fr.Status,
			Size:   fr.File.Size,
		}
		if fr.File.Record != nil {
			sf.RomName = fr.File.Record.Name
		}
		rec.Files = append(rec.Files, sf)
	}
	return rec
}

func (e *Engine) evaluate(
	ctx context.Context,
	systemID string,
	idx *scanner.Index,
	res *scanner.Result,
) (*Evaluation, error) {
	fcfg, err := e.store.GetFilterConfig(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get filter config: %w", err)
	}
	ignore, err := e.store.ListIgnoreOverrides(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ignore overrides: %w", err)
	}

	games := idx.Entries()
	f := filter.New(fcfg)
	actions := e.cfg.Snapshot().Actions

	ev := &Evaluation{
		Result:     res,
		Filter:     fcfg,
		Files:      make([]FileReport, 0, len(res.Files)),
		Summary:    classify.Summarize(games, res.Files, ignore),
		Missing:    f.Missing(games, res.Files, ignore),
		Duplicates: classify.Duplicates(res.Files),
	}
	for _, sf := range res.Files {
		st := classify.Classify(sf, ignore)
		ev.Files = append(ev.Files, FileReport{File: sf, Status: st, Reason: classify.Reason(sf, st)})
	}
	ev.Recommendations = classify.RecommendAll(res.Files, ignore, classify.RecommendOptions{
		Wanted:            f.Keep(games, res.Files, ignore),
		DeleteDuplicates:  actions.DeleteDuplicates,
		SeparateMultiDisc: actions.SeparateMultiDisc,
	})
	return ev, nil
}
