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
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchDebounce is how long a catalog file must stay unchanged before it
// is reloaded.
const WatchDebounce = 500 * time.Millisecond

// RequestReload reimports the catalog of systemID, or defers the reload
// until the running scan of the system ends. It reports whether the
// reload was deferred.
func (e *Engine) RequestReload(ctx context.Context, systemID, datPath string) (bool, error) {
	e.mu.Lock()
	if _, busy := e.scans[systemID]; busy {
		e.pending[systemID] = datPath
		e.mu.Unlock()
		log.Info().Str("system", systemID).Msg("scan running, catalog reload deferred")
		return true, nil
	}
	e.mu.Unlock()

	res, err := e.ImportCatalog(ctx, systemID, datPath)
	if err != nil {
		return false, err
	}
	log.Info().
		Str("system", systemID).
		Int("games", res.System.GameCount).
		Int("warnings", len(res.Warnings)).
		Msg("catalog reloaded")
	return false, nil
}

// WatchCatalog reloads the catalog of systemID whenever the file at
// datPath changes on disk, until ctx is cancelled. The folder is watched
// rather than the file so editors that replace the file are seen.
func (e *Engine) WatchCatalog(ctx context.Context, systemID, datPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(datPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch catalog folder: %w", err)
	}

	e.wg.Add(1)
	go e.watchLoop(ctx, watcher, systemID, filepath.Clean(datPath))

	log.Debug().Str("system", systemID).Str("path", datPath).Msg("watching catalog file")
	return nil
}

func (e *Engine) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, systemID, datPath string) {
	defer e.wg.Done()
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close catalog watcher")
		}
	}()

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != datPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify error")

		case <-debounce.C:
			if _, err := e.RequestReload(ctx, systemID, datPath); err != nil {
				log.Error().Err(err).Str("system", systemID).Msg("catalog reload failed")
			}
		}
	}
}
