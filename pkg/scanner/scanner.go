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

// Package scanner walks a ROM folder, hashes candidate files and matches
// them against a catalog index.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/scanner/hasher"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrScanIO wraps the read error of a file that could not be hashed.
	ErrScanIO = errors.New("scan i/o error")
	// ErrCrossGroup marks a file whose content matches entries of more than
	// one dedup group. The file is left unmatched.
	ErrCrossGroup = errors.New("content matches entries of different games")
	// ErrNoRoots is returned by ScanRoots when it is given no folder.
	ErrNoRoots = errors.New("no folder to scan")
)

// DefaultWorkers is the hashing concurrency when Options.Workers is unset.
const DefaultWorkers = 4

// Options configures a scan.
type Options struct {
	// Extensions are the eligible file extensions including the dot. Empty
	// means every file is eligible.
	Extensions []string
	// ExcludedDirs are folder names never descended into, compared
	// case-insensitively. The action folders belong here.
	ExcludedDirs []string
	Workers      int
	Recursive    bool
	// HashUnmatched hashes files even when no catalog record has their size,
	// so duplicates and ignore overrides can be detected for them.
	HashUnmatched bool
	// Hints looks up a similar catalog name for unrecognized files.
	Hints bool
	// SecondaryHashes also computes MD5 and SHA1 and checks them against
	// records that carry them.
	SecondaryHashes bool
}

// ScannedFile is the outcome of scanning one file.
type ScannedFile struct {
	// Err is set when the file could not be read; it wraps ErrScanIO.
	Err error
	// Record is the catalog record this file was matched to.
	Record *catalog.RomRecord
	Game   *catalog.GameEntry
	// NameRecord is the record the filename points at, set even when the
	// content turned out to differ.
	NameRecord *catalog.RomRecord
	// DuplicateOf is the record another file already claimed.
	DuplicateOf *catalog.RomRecord
	Path        string
	// Root is the scanned folder the file was found under; RelPath is
	// relative to it.
	Root        string
	RelPath     string
	Member      string
	MD5         string
	SHA1        string
	Hint        string
	candidates  []*catalog.RomRecord
	Size        int64
	// ContentSize is the hashed size: the member size for archives.
	ContentSize int64
	CRC32       uint32
	Hashed      bool
	Duplicate   bool
	CrossGroup  bool
}

// CRC returns the file's CRC32 as 8 hex digits, or "" when not hashed.
func (f *ScannedFile) CRC() string {
	if !f.Hashed {
		return ""
	}
	return catalog.FormatCRC(f.CRC32)
}

// Warning is a non-fatal problem found during a scan.
type Warning struct {
	Err  error
	Path string
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Result is the outcome of one scan pass. Files are sorted by root, then
// by path.
type Result struct {
	Started  time.Time
	Finished time.Time
	ID       string
	Roots    []string
	Files    []*ScannedFile
	Warnings []Warning
	// Cancelled is set when the scan stopped early. Files then holds only
	// the files finished before cancellation.
	Cancelled bool
}

// Scanner matches the files of a folder against one catalog index.
type Scanner struct {
	fs     afero.Fs
	index  *Index
	locker *Locker
}

// New returns a scanner over fs. locker may be nil when the caller
// guarantees scans never overlap.
func New(fs afero.Fs, index *Index, locker *Locker) *Scanner {
	return &Scanner{fs: fs, index: index, locker: locker}
}

// Index returns the catalog index the scanner matches against.
func (s *Scanner) Index() *Index {
	return s.index
}

// Scan walks root, hashes candidates and matches them. Cancelling ctx stops
// the scan between files; the result then carries the files completed so
// far with Cancelled set, and the error is nil.
func (s *Scanner) Scan(
	ctx context.Context,
	root string,
	opts Options,
	progress func(Progress),
) (*Result, error) {
	return s.ScanRoots(ctx, []string{root}, opts, progress)
}

// scanPath is one eligible file and the root it was found under.
type scanPath struct {
	root string
	path string
}

// ScanRoots scans several folders as one collection. Each root is locked
// for the duration of the scan. Files are ordered by root, in the order
// given, then by path, and records are claimed across all roots in that
// order, so a copy in a later root is a duplicate of one in an earlier
// root.
func (s *Scanner) ScanRoots(
	ctx context.Context,
	roots []string,
	opts Options,
	progress func(Progress),
) (*Result, error) {
	roots = uniqueRoots(roots)
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	if s.locker != nil {
		releases := make([]func(), 0, len(roots))
		defer func() {
			for _, release := range slices.Backward(releases) {
				release()
			}
		}()
		for _, root := range roots {
			release, err := s.locker.Acquire(root)
			if err != nil {
				return nil, err
			}
			releases = append(releases, release)
		}
	}

	res := &Result{
		ID:      uuid.New().String(),
		Roots:   roots,
		Started: time.Now(),
	}

	var paths []scanPath
	seen := make(map[string]struct{})
	for _, root := range roots {
		found, walkWarnings, err := s.walk(root, opts)
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, walkWarnings...)
		for _, p := range found {
			// nested roots would otherwise list a file twice
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, scanPath{root: root, path: p})
		}
	}

	log.Info().
		Str("id", res.ID).
		Strs("roots", roots).
		Int("files", len(paths)).
		Bool("recursive", opts.Recursive).
		Msg("starting scan")

	files := make([]*ScannedFile, len(paths))
	done := make([]bool, len(paths))
	reporter := newProgressReporter(len(paths), progress)

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)
	var processed atomic.Int64

	for i, sp := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			sf, ok := s.scanFile(ctx, sp.root, sp.path, opts)
			if !ok {
				// cancelled mid-hash, the file is discarded
				return nil
			}
			files[i] = sf
			done[i] = true
			reporter.update(int(processed.Add(1)), sf.RelPath)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]*ScannedFile, 0, len(files))
	for i, sf := range files {
		if done[i] {
			kept = append(kept, sf)
		}
	}
	res.Cancelled = len(kept) < len(paths)
	reporter.finish(len(kept))

	s.resolveClaims(kept)
	for _, sf := range kept {
		if sf.CrossGroup {
			res.Warnings = append(res.Warnings, Warning{Path: sf.Path, Err: ErrCrossGroup})
		}
		if sf.Err != nil {
			res.Warnings = append(res.Warnings, Warning{Path: sf.Path, Err: sf.Err})
		}
	}
	if opts.Hints {
		s.addHints(kept)
	}

	res.Files = kept
	res.Finished = time.Now()

	ev := log.Info()
	if res.Cancelled {
		ev = log.Warn()
	}
	ev.Str("id", res.ID).
		Strs("roots", roots).
		Int("scanned", len(kept)).
		Int("total", len(paths)).
		Int("warnings", len(res.Warnings)).
		Bool("cancelled", res.Cancelled).
		Dur("took", res.Finished.Sub(res.Started)).
		Msg("scan finished")

	return res, nil
}

// uniqueRoots drops empty and repeated roots, keeping the first position.
func uniqueRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	seen := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		key := LockKey(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// walk lists the eligible files under root in lexicographic path order.
func (s *Scanner) walk(root string, opts Options) ([]string, []Warning, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: scan root: %w", ErrScanIO, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: scan root %s is not a folder", ErrScanIO, root)
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedDirs))
	for _, d := range opts.ExcludedDirs {
		excluded[strings.ToLower(d)] = struct{}{}
	}
	eligible := func(name string) bool {
		if len(exts) == 0 {
			return true
		}
		_, ok := exts[strings.ToLower(filepath.Ext(name))]
		return ok
	}

	var paths []string
	var warnings []Warning

	if !opts.Recursive {
		entries, err := afero.ReadDir(s.fs, root)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read folder: %w", ErrScanIO, err)
		}
		for _, e := range entries {
			if e.IsDir() || !eligible(e.Name()) {
				continue
			}
			paths = append(paths, filepath.Join(root, e.Name()))
		}
		slices.Sort(paths)
		return paths, nil, nil
	}

	err = afero.Walk(s.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unreadable path")
			warnings = append(warnings, Warning{Path: p, Err: fmt.Errorf("%w: %w", ErrScanIO, err)})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if p != root {
				if _, skip := excluded[strings.ToLower(info.Name())]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if eligible(info.Name()) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to walk folder: %w", ErrScanIO, err)
	}
	slices.Sort(paths)
	return paths, warnings, nil
}

// scanFile stats, hashes and matches one file. ok is false when ctx was
// cancelled while hashing.
func (s *Scanner) scanFile(ctx context.Context, root, p string, opts Options) (sf *ScannedFile, ok bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = filepath.Base(p)
	}
	sf = &ScannedFile{Path: p, Root: root, RelPath: rel}

	info, err := s.fs.Stat(p)
	if err != nil {
		sf.Err = fmt.Errorf("%w: %w", ErrScanIO, err)
		sf.NameRecord = first(s.index.ByName(p))
		return sf, true
	}
	sf.Size = info.Size()

	nameCands := s.index.ByName(p)
	if len(nameCands) > 0 {
		sf.NameRecord = nameCands[0]
	}

	needHash := len(nameCands) > 0 ||
		s.index.HasSize(sf.Size) ||
		hasher.IsArchive(p) ||
		opts.HashUnmatched
	if !needHash {
		return sf, true
	}

	h, err := hasher.ComputeFileHashes(ctx, s.fs, p, hasher.Options{
		MD5:  opts.SecondaryHashes,
		SHA1: opts.SecondaryHashes,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		log.Warn().Err(err).Str("path", p).Msg("failed to hash file")
		sf.Err = fmt.Errorf("%w: %w", ErrScanIO, err)
		return sf, true
	}
	sf.Hashed = true
	sf.CRC32 = h.CRC32
	sf.ContentSize = h.Size
	sf.Member = h.Member
	sf.MD5 = h.MD5
	sf.SHA1 = h.SHA1

	for _, r := range nameCands {
		if h.Matches(r.Size, r.CRC32, r.MD5, r.SHA1) {
			sf.NameRecord = r
			sf.candidates = []*catalog.RomRecord{r}
			return sf, true
		}
	}

	var cands []*catalog.RomRecord
	for _, r := range s.index.ByContent(ContentKey{Size: h.Size, CRC32: h.CRC32}) {
		if h.Matches(r.Size, r.CRC32, r.MD5, r.SHA1) {
			cands = append(cands, r)
		}
	}
	if len(cands) == 0 {
		return sf, true
	}

	group := s.index.Game(cands[0]).GroupKey()
	for _, r := range cands[1:] {
		if s.index.Game(r).GroupKey() != group {
			log.Warn().Str("path", p).Str("crc", h.CRC()).Msg("content matches several games")
			sf.CrossGroup = true
			return sf, true
		}
	}
	sf.candidates = cands
	return sf, true
}

// resolveClaims assigns each record to at most one file. Files whose name
// and content both match claim first, then content-only matches; within
// each pass the first file in scan order wins: earlier roots first, then
// lexicographic path. A file that finds every
// candidate taken is a duplicate.
func (s *Scanner) resolveClaims(files []*ScannedFile) {
	claimed := make(map[*catalog.RomRecord]*ScannedFile)
	claim := func(sf *ScannedFile) {
		for _, r := range sf.candidates {
			if _, taken := claimed[r]; taken {
				continue
			}
			claimed[r] = sf
			sf.Record = r
			sf.Game = s.index.Game(r)
			return
		}
		sf.Duplicate = true
		sf.DuplicateOf = sf.candidates[0]
	}

	for _, sf := range files {
		if len(sf.candidates) > 0 && sf.NameRecord == sf.candidates[0] {
			claim(sf)
		}
	}
	for _, sf := range files {
		if len(sf.candidates) > 0 && sf.NameRecord != sf.candidates[0] {
			claim(sf)
		}
	}
}

func first(rs []*catalog.RomRecord) *catalog.RomRecord {
	if len(rs) == 0 {
		return nil
	}
	return rs[0]
}
