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
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrDuplicateSystem is reported for a catalog file naming a system that
// an earlier file of the same folder import already imported.
var ErrDuplicateSystem = errors.New("system imported twice")

// CatalogExtensions are the file extensions ImportFolder picks up.
var CatalogExtensions = []string{".dat", ".xml"}

// FileImport is the outcome of importing one catalog file of a folder.
type FileImport struct {
	Err      error
	Result   *ImportResult
	Path     string
	SystemID string
}

// FolderImport summarises ImportFolder.
type FolderImport struct {
	Files    []FileImport
	Imported int
}

// SystemIDFor names the system of a catalog: the header name, or the file
// name without extension when the header has none.
func SystemIDFor(cat *catalog.Catalog, path string) string {
	if name := strings.TrimSpace(cat.Header.Name); name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ImportFolder imports every catalog file found under dir, recursively,
// in path order. Each file becomes the system named by SystemIDFor. A file
// that fails is recorded and the rest are still imported; cancelling ctx
// stops between files.
func (e *Engine) ImportFolder(ctx context.Context, dir string) (*FolderImport, error) {
	paths, err := findCatalogs(e.fs, dir)
	if err != nil {
		return nil, err
	}

	out := &FolderImport{Files: make([]FileImport, 0, len(paths))}
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("folder import interrupted: %w", err)
		}
		fi := FileImport{Path: p}
		fi.Result, fi.SystemID, fi.Err = e.importFile(ctx, p, seen)
		if fi.Err != nil {
			log.Warn().Err(fi.Err).Str("path", p).Msg("catalog import failed")
		} else {
			out.Imported++
		}
		out.Files = append(out.Files, fi)
	}

	log.Info().
		Str("folder", dir).
		Int("imported", out.Imported).
		Int("total", len(out.Files)).
		Msg("folder import finished")
	return out, nil
}

func (e *Engine) importFile(
	ctx context.Context,
	path string,
	seen map[string]string,
) (*ImportResult, string, error) {
	cat, err := catalog.LoadFile(e.fs, path)
	if err != nil {
		return nil, "", err
	}
	id := SystemIDFor(cat, path)
	key := strings.ToLower(id)
	if first, ok := seen[key]; ok {
		return nil, id, fmt.Errorf("%w: %s is also named by %s", ErrDuplicateSystem, id, first)
	}
	seen[key] = path

	if e.Scanning(id) {
		return nil, id, fmt.Errorf("%w: %s", ErrScanInProgress, id)
	}
	res, err := e.storeCatalog(ctx, id, path, cat)
	return res, id, err
}

// findCatalogs lists the catalog files under dir in lexicographic order.
func findCatalogs(fs afero.Fs, dir string) ([]string, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog folder %s is not a folder", dir)
	}

	var paths []string
	err = afero.Walk(fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unreadable path")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if slices.Contains(CatalogExtensions, strings.ToLower(filepath.Ext(p))) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk catalog folder: %w", err)
	}
	return paths, nil
}
