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

	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/scanner"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// progressBuffer is how many progress updates a slow reader may fall
// behind before older ones are dropped.
const progressBuffer = 16

// ScanJob is a scan running in the background.
type ScanJob struct {
	err      error
	eval     *Evaluation
	progress chan scanner.Progress
	done     chan struct{}
	cancel   context.CancelFunc
	ID       string
	System   string
	Roots    []string
}

// Progress delivers throttled progress updates. It is closed when the
// scan stops; the last update has Done set.
func (j *ScanJob) Progress() <-chan scanner.Progress {
	return j.progress
}

// Cancel stops the scan. Files finished so far are still evaluated.
func (j *ScanJob) Cancel() {
	j.cancel()
}

// Done is closed once the job has finished, including its evaluation.
func (j *ScanJob) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its evaluation.
func (j *ScanJob) Wait() (*Evaluation, error) {
	<-j.done
	return j.eval, j.err
}

func (j *ScanJob) send(p scanner.Progress) {
	select {
	case j.progress <- p:
		return
	default:
	}
	// Full: drop the oldest update so the newest one gets through.
	select {
	case <-j.progress:
	default:
	}
	select {
	case j.progress <- p:
	default:
	}
}

// StartScan scans the rom folders of systemID against its catalog in the
// background. The folders are scanned as one collection. It fails with
// ErrScanInProgress when the system is already being scanned, and with
// scanner.ErrConcurrentScan from the job when another process holds one of
// the folders.
func (e *Engine) StartScan(ctx context.Context, systemID string, roots ...string) (*ScanJob, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: %s", scanner.ErrNoRoots, systemID)
	}
	idx, err := e.currentIndex(ctx, systemID)
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithCancel(ctx)
	job := &ScanJob{
		ID:       uuid.NewString(),
		System:   systemID,
		Roots:    roots,
		progress: make(chan scanner.Progress, progressBuffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	e.mu.Lock()
	if _, busy := e.scans[systemID]; busy {
		e.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrScanInProgress, systemID)
	}
	if e.indexes[systemID] != idx {
		// A catalog import finished since the index was loaded.
		e.mu.Unlock()
		cancel()
		return e.StartScan(ctx, systemID, roots...)
	}
	e.scans[systemID] = job
	e.wg.Add(1)
	e.mu.Unlock()

	opts := e.ScanOptions()
	log.Info().Str("job", job.ID).Str("system", systemID).Strs("roots", roots).Msg("scan job started")

	go func() {
		defer e.wg.Done()
		defer close(job.done)
		defer e.finishScan(systemID)
		defer cancel()

		res, err := scanner.New(e.fs, idx, e.locker).ScanRoots(scanCtx, roots, opts, job.send)
		close(job.progress)
		if err != nil {
			job.err = fmt.Errorf("scan failed: %w", err)
			return
		}

		// Evaluation and persistence run even after a cancel, on the
		// partial result.
		evalCtx := context.WithoutCancel(scanCtx)
		eval, err := e.evaluate(evalCtx, systemID, idx, res)
		if err != nil {
			job.err = err
			return
		}
		job.eval = eval

		if err := e.store.SaveScan(evalCtx, systemID, eval.Record(job.ID)); err != nil {
			log.Error().Err(err).Str("system", systemID).Msg("failed to save scan")
		}
	}()

	return job, nil
}

// currentIndex is Index, but makes sure the result is the cached one so
// StartScan can detect an import racing with it.
func (e *Engine) currentIndex(ctx context.Context, systemID string) (*scanner.Index, error) {
	for {
		idx, err := e.Index(ctx, systemID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		cached := e.indexes[systemID]
		e.mu.Unlock()
		if cached == idx {
			return idx, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
}

// finishScan releases the system and runs a catalog reload that was
// deferred while the scan ran.
func (e *Engine) finishScan(systemID string) {
	e.mu.Lock()
	delete(e.scans, systemID)
	datPath, reload := e.pending[systemID]
	delete(e.pending, systemID)
	e.mu.Unlock()

	if !reload {
		return
	}
	log.Info().Str("system", systemID).Str("path", datPath).Msg("running deferred catalog reload")
	if _, err := e.ImportCatalog(context.Background(), systemID, datPath); err != nil {
		log.Error().Err(err).Str("system", systemID).Msg("deferred catalog reload failed")
	}
}

// LastScan returns the stored outcome of the latest scan of a system.
func (e *Engine) LastScan(ctx context.Context, systemID string) (*database.ScanRecord, error) {
	rec, err := e.store.GetLastScan(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last scan: %w", err)
	}
	return rec, nil
}
