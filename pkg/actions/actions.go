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

// Package actions carries out the file actions recommended for a scan:
// renames, moves into the action folders and deletions.
package actions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrTargetExists is returned for a step whose target path is taken.
// Existing files are never overwritten.
var ErrTargetExists = errors.New("target already exists")

// Folders are the action folder names, created under the scan root of each
// file.
type Folders struct {
	Extra    string
	Broken   string
	Filtered string
	Multi    string
}

// Step is one planned file operation. To is empty for deletions.
type Step struct {
	From   string
	To     string
	Status classify.Status
	Action classify.Action
}

func (s Step) String() string {
	if s.Action == classify.ActionDelete {
		return fmt.Sprintf("%s %s", s.Action, s.From)
	}
	return fmt.Sprintf("%s %s -> %s", s.Action, s.From, s.To)
}

// Outcome is the result of one step. Err is nil for a step that was
// carried out, or that would have been in a dry run.
type Outcome struct {
	Err  error
	Step Step
}

// Report summarises an Apply call.
type Report struct {
	Outcomes []Outcome
	Applied  int
	Failed   int
	DryRun   bool
}

// Executor applies recommendations to scanned files. A file is moved into
// the action folders of the root it was scanned under.
type Executor struct {
	fs      afero.Fs
	folders Folders
}

func NewExecutor(fs afero.Fs, folders Folders) *Executor {
	return &Executor{fs: fs, folders: folders}
}

// Plan turns recommendations into steps, dropping those with no action.
func (e *Executor) Plan(recs []classify.Recommendation) []Step {
	steps := make([]Step, 0, len(recs))
	for _, rec := range recs {
		if rec.Action == classify.ActionNone || rec.File == nil {
			continue
		}
		from := rec.File.Path
		step := Step{From: from, Action: rec.Action, Status: rec.Status}

		name := rec.Target
		if name == "" {
			name = filepath.Base(from)
		}
		root := rec.File.Root
		if root == "" {
			root = filepath.Dir(from)
		}

		switch rec.Action {
		case classify.ActionRename:
			step.To = filepath.Join(filepath.Dir(from), name)
		case classify.ActionMoveExtra:
			step.To = filepath.Join(root, e.folders.Extra, name)
		case classify.ActionMoveBroken:
			step.To = filepath.Join(root, e.folders.Broken, name)
		case classify.ActionMoveFiltered:
			step.To = filepath.Join(root, e.folders.Filtered, name)
		case classify.ActionMoveMulti:
			step.To = filepath.Join(root, e.folders.Multi, name)
		case classify.ActionDelete, classify.ActionNone:
		}
		if step.To == step.From {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

// Apply carries out the steps for recs in order. A failed step is logged
// and recorded without stopping the rest. With dryRun set nothing is
// changed, but targets are still checked. Cancelling ctx stops between
// steps and returns the context error with the report so far.
func (e *Executor) Apply(
	ctx context.Context,
	recs []classify.Recommendation,
	dryRun bool,
) (Report, error) {
	report := Report{DryRun: dryRun}
	claimed := make(map[string]struct{})
	for _, step := range e.Plan(recs) {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("apply interrupted: %w", err)
		}

		var err error
		if _, ok := claimed[step.To]; ok && step.To != "" {
			err = fmt.Errorf("%w: %s", ErrTargetExists, step.To)
		} else {
			err = e.run(step, dryRun)
		}
		if err == nil && step.To != "" {
			claimed[step.To] = struct{}{}
		}
		report.Outcomes = append(report.Outcomes, Outcome{Step: step, Err: err})
		if err != nil {
			report.Failed++
			log.Warn().Err(err).
				Str("action", step.Action.String()).
				Str("path", step.From).
				Msg("file action failed")
			continue
		}
		report.Applied++
		log.Info().
			Str("action", step.Action.String()).
			Str("from", step.From).
			Str("to", step.To).
			Bool("dryRun", dryRun).
			Msg("file action")
	}
	return report, nil
}

func (e *Executor) run(step Step, dryRun bool) error {
	if _, err := e.fs.Stat(step.From); err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	if step.Action == classify.ActionDelete {
		if dryRun {
			return nil
		}
		if err := e.fs.Remove(step.From); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	caseOnly := strings.EqualFold(step.From, step.To)
	taken, err := e.targetTaken(step.To, caseOnly)
	if err != nil {
		return fmt.Errorf("failed to check target: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: %s", ErrTargetExists, step.To)
	}
	if dryRun {
		return nil
	}

	if err := e.fs.MkdirAll(filepath.Dir(step.To), 0o750); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	if caseOnly {
		// A case-insensitive filesystem sees both names as the same file,
		// so the rename goes through a temporary name.
		tmp := filepath.Join(filepath.Dir(step.From), ".datkeeper-"+uuid.NewString())
		if err := e.fs.Rename(step.From, tmp); err != nil {
			return fmt.Errorf("failed to rename file: %w", err)
		}
		if err := e.fs.Rename(tmp, step.To); err != nil {
			if rbErr := e.fs.Rename(tmp, step.From); rbErr != nil {
				log.Error().Err(rbErr).Str("path", tmp).Msg("failed to restore file name")
			}
			return fmt.Errorf("failed to rename file: %w", err)
		}
		return nil
	}

	if err := e.fs.Rename(step.From, step.To); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("failed to move file: %w", err)
		}
		// Renames across devices fail; fall back to copy and remove.
		if cpErr := e.copyFile(step.From, step.To); cpErr != nil {
			return fmt.Errorf("failed to move file: %w", errors.Join(err, cpErr))
		}
		if rmErr := e.fs.Remove(step.From); rmErr != nil {
			return fmt.Errorf("failed to remove moved file: %w", rmErr)
		}
	}
	return nil
}

// targetTaken reports whether another file already sits at to. For a case
// only rename the folder listing is compared by exact name, since Stat on
// a case-insensitive filesystem finds the source itself.
func (e *Executor) targetTaken(to string, caseOnly bool) (bool, error) {
	if !caseOnly {
		ok, err := afero.Exists(e.fs, to)
		if err != nil {
			return false, fmt.Errorf("failed to stat target: %w", err)
		}
		return ok, nil
	}
	names, err := afero.ReadDir(e.fs, filepath.Dir(to))
	if err != nil {
		return false, fmt.Errorf("failed to list folder: %w", err)
	}
	base := filepath.Base(to)
	for _, fi := range names {
		if fi.Name() == base {
			return true, nil
		}
	}
	return false, nil
}
