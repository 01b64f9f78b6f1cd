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
	"errors"
	"fmt"
	"sync"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/datkeeper/datkeeper/pkg/helpers/syncutil"
	"github.com/datkeeper/datkeeper/pkg/scanner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrScanInProgress is returned when a catalog reload or a second scan is
// requested for a system that is being scanned.
var ErrScanInProgress = errors.New("scan in progress for this system")

// Engine ties the catalog store, scanner and filter together. Each system
// has at most one scan running, and its catalog cannot change during it.
type Engine struct {
	cfg     *config.Instance
	store   database.CatalogStore
	fs      afero.Fs
	locker  *scanner.Locker
	indexes map[string]*scanner.Index
	// gens counts catalog imports per system so an index loaded while an
	// import ran is not cached.
	gens  map[string]int
	scans map[string]*ScanJob
	// pending holds catalog reloads deferred until a scan ends, keyed by
	// system with the catalog path as value.
	pending map[string]string
	wg      sync.WaitGroup
	mu      syncutil.Mutex
}

// NewEngine returns an engine over store. Files are read through fs;
// locker may be nil when no other process scans the same folders.
func NewEngine(
	cfg *config.Instance,
	store database.CatalogStore,
	fs afero.Fs,
	locker *scanner.Locker,
) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		fs:      fs,
		locker:  locker,
		indexes: make(map[string]*scanner.Index),
		gens:    make(map[string]int),
		scans:   make(map[string]*ScanJob),
		pending: make(map[string]string),
	}
}

func (e *Engine) Store() database.CatalogStore {
	return e.store
}

// ImportResult describes a catalog import.
type ImportResult struct {
	Warnings []catalog.Warning
	System   database.System
}

// ImportCatalog parses the catalog at datPath and replaces the stored
// catalog of systemID with it. It fails with ErrScanInProgress while the
// system is being scanned.
func (e *Engine) ImportCatalog(ctx context.Context, systemID, datPath string) (*ImportResult, error) {
	if e.Scanning(systemID) {
		return nil, fmt.Errorf("%w: %s", ErrScanInProgress, systemID)
	}

	cat, err := catalog.LoadFile(e.fs, datPath)
	if err != nil {
		return nil, err
	}
	return e.storeCatalog(ctx, systemID, datPath, cat)
}

// storeCatalog replaces the stored catalog of systemID with cat.
func (e *Engine) storeCatalog(
	ctx context.Context,
	systemID, datPath string,
	cat *catalog.Catalog,
) (*ImportResult, error) {
	// The store write holds the engine lock so no scan of the system can
	// start against a half replaced catalog.
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.scans[systemID]; busy {
		return nil, fmt.Errorf("%w: %s", ErrScanInProgress, systemID)
	}
	_, err := e.store.GetSystem(ctx, systemID)
	fresh := errors.Is(err, database.ErrSystemNotFound)
	if err != nil && !fresh {
		return nil, fmt.Errorf("failed to look up system: %w", err)
	}
	sys, err := e.store.UpsertCatalog(ctx, systemID, datPath, cat)
	if err != nil {
		return nil, fmt.Errorf("failed to store catalog: %w", err)
	}
	if fresh {
		// New systems start from the filters in the config file.
		if err := e.store.SetFilterConfig(ctx, systemID, e.cfg.DefaultFilters()); err != nil {
			return nil, fmt.Errorf("failed to set default filters: %w", err)
		}
	}
	delete(e.indexes, systemID)
	e.gens[systemID]++

	return &ImportResult{System: sys, Warnings: cat.Warnings}, nil
}

// Index returns the catalog index of a system, loading it from the store
// on first use.
func (e *Engine) Index(ctx context.Context, systemID string) (*scanner.Index, error) {
	e.mu.Lock()
	idx, ok := e.indexes[systemID]
	gen := e.gens[systemID]
	e.mu.Unlock()
	if ok {
		return idx, nil
	}

	games, err := e.store.ListEntriesForSystem(ctx, systemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for %s: %w", systemID, err)
	}
	idx = scanner.NewIndex(games)

	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.indexes[systemID]; ok {
		return cached, nil
	}
	if e.gens[systemID] != gen {
		return idx, nil
	}
	e.indexes[systemID] = idx
	log.Debug().Str("system", systemID).Int("games", len(games)).Msg("loaded catalog index")
	return idx, nil
}

// Scanning reports whether a scan of systemID is running.
func (e *Engine) Scanning(systemID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.scans[systemID]
	return ok
}

// ScanOptions builds scan options from the config.
func (e *Engine) ScanOptions() scanner.Options {
	vals := e.cfg.Snapshot()
	return scanner.Options{
		Extensions:      e.cfg.ScanExtensions(),
		ExcludedDirs:    e.cfg.ExcludedFolders(),
		Workers:         vals.Scan.Workers,
		Recursive:       vals.Scan.Recursive,
		HashUnmatched:   vals.Scan.HashUnmatched,
		Hints:           vals.Scan.Hints,
		SecondaryHashes: vals.Scan.SecondaryHashes,
	}
}

// FilterConfig returns the stored filter settings of a system.
func (e *Engine) FilterConfig(ctx context.Context, systemID string) (filter.Config, error) {
	cfg, err := e.store.GetFilterConfig(ctx, systemID)
	if err != nil {
		return filter.Config{}, fmt.Errorf("failed to get filter config: %w", err)
	}
	return cfg, nil
}

// SetFilterConfig validates and stores the filter settings of a system.
func (e *Engine) SetFilterConfig(ctx context.Context, systemID string, cfg filter.Config) error {
	if err := config.ValidateFilters(&cfg); err != nil {
		return err
	}
	if err := e.store.SetFilterConfig(ctx, systemID, cfg); err != nil {
		return fmt.Errorf("failed to set filter config: %w", err)
	}
	return nil
}

// RemoveSystem deletes the stored catalog of a system together with its
// filters, hidden titles, ignore overrides and last scan. It fails with
// ErrScanInProgress while the system is being scanned.
func (e *Engine) RemoveSystem(ctx context.Context, systemID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.scans[systemID]; busy {
		return fmt.Errorf("%w: %s", ErrScanInProgress, systemID)
	}
	if err := e.store.DeleteSystem(ctx, systemID); err != nil {
		return fmt.Errorf("failed to remove system: %w", err)
	}
	delete(e.indexes, systemID)
	delete(e.pending, systemID)
	e.gens[systemID]++
	log.Info().Str("system", systemID).Msg("removed system")
	return nil
}

// Close waits for running scans and watchers to stop. Callers cancel
// them first.
func (e *Engine) Close() {
	e.wg.Wait()
}
