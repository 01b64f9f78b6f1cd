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

package scanner

import (
	"crypto/sha1" //nolint:gosec // only names lock files
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/datkeeper/datkeeper/pkg/helpers/syncutil"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

// ErrConcurrentScan is returned when a scan of the same root is already
// running, in this process or another one.
var ErrConcurrentScan = errors.New("scan already running for this folder")

// Locker grants at most one scan per root folder. Within the process a map
// of held roots is used; when a lock directory is set a lock file per root
// also excludes other processes.
type Locker struct {
	held map[string]struct{}
	dir  string
	mu   syncutil.Mutex
}

// NewLocker returns a locker. lockDir may be empty to skip the cross-process
// lock files.
func NewLocker(lockDir string) *Locker {
	return &Locker{
		held: make(map[string]struct{}),
		dir:  lockDir,
	}
}

// LockKey is the canonical form of a scan root used for locking.
func LockKey(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Clean(root)
}

// Acquire takes the lock for root. The returned func releases it and must
// be called exactly once.
func (l *Locker) Acquire(root string) (func(), error) {
	key := LockKey(root)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrConcurrentScan, root)
	}

	var fl *flock.Flock
	if l.dir != "" {
		sum := sha1.Sum([]byte(key)) //nolint:gosec // see import
		fl = flock.New(filepath.Join(l.dir, "scan-"+hex.EncodeToString(sum[:8])+".lock"))
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to take scan lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s (another process)", ErrConcurrentScan, root)
		}
	}

	l.held[key] = struct{}{}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		if fl != nil {
			if err := fl.Unlock(); err != nil {
				log.Warn().Err(err).Str("root", root).Msg("failed to release scan lock file")
			}
		}
	}, nil
}
