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
	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/scanner"
)

// Action is a file operation the engine recommends. Executing it is up to
// the caller.
type Action int

const (
	ActionNone Action = iota
	ActionRename
	ActionMoveExtra
	ActionMoveBroken
	ActionMoveFiltered
	ActionMoveMulti
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRename:
		return "rename"
	case ActionMoveExtra:
		return "move-extra"
	case ActionMoveBroken:
		return "move-broken"
	case ActionMoveFiltered:
		return "move-filtered"
	case ActionMoveMulti:
		return "move-multi"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Recommendation is the action proposed for one file. Target is the file
// name it should end up with, which differs from the current name when a
// move also renames.
type Recommendation struct {
	File   *scanner.ScannedFile
	Target string
	Status Status
	Action Action
}

// RecommendOptions tunes Recommend.
type RecommendOptions struct {
	// Wanted reports whether a game is in the wanted set after filtering
	// and deduplication. Nil treats every game as wanted.
	Wanted func(*catalog.GameEntry) bool
	// DeleteDuplicates proposes deleting duplicate files instead of moving
	// them to the extra folder.
	DeleteDuplicates bool
	// SeparateMultiDisc moves wanted multi-disc files to the multi folder.
	SeparateMultiDisc bool
}

// Recommend proposes an action for a classified file.
func Recommend(f *scanner.ScannedFile, status Status, opts RecommendOptions) Recommendation {
	rec := Recommendation{File: f, Status: status, Action: ActionNone}

	switch status {
	case Correct, NeedsRename:
		rec.Target = CanonicalName(f)
		switch {
		case opts.Wanted != nil && !opts.Wanted(f.Game):
			rec.Action = ActionMoveFiltered
		case opts.SeparateMultiDisc && f.Game.Attrs.IsMultiDisc():
			rec.Action = ActionMoveMulti
		case status == NeedsRename:
			rec.Action = ActionRename
		}
	case Broken:
		rec.Action = ActionMoveBroken
	case Unrecognized:
		if f.Duplicate && opts.DeleteDuplicates {
			rec.Action = ActionDelete
		} else {
			rec.Action = ActionMoveExtra
		}
	case Ignored, Missing:
	}
	return rec
}

// RecommendAll classifies and recommends for every file, in scan order.
func RecommendAll(
	files []*scanner.ScannedFile,
	ignore IgnoreSet,
	opts RecommendOptions,
) []Recommendation {
	out := make([]Recommendation, 0, len(files))
	for _, f := range files {
		out = append(out, Recommend(f, Classify(f, ignore), opts))
	}
	return out
}
