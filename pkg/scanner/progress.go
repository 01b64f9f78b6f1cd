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
	"time"

	"github.com/datkeeper/datkeeper/pkg/helpers/syncutil"
	"golang.org/x/time/rate"
)

// ProgressInterval is the minimum time between two progress callbacks.
const ProgressInterval = 100 * time.Millisecond

// Progress is a scan status update.
type Progress struct {
	Current   string
	Processed int
	Total     int
	Done      bool
}

// progressReporter throttles callbacks from the hashing workers. Updates
// are serialised so the callback never runs concurrently with itself, and
// the final update is always delivered.
type progressReporter struct {
	fn      func(Progress)
	limiter *rate.Limiter
	total   int
	mu      syncutil.Mutex
}

func newProgressReporter(total int, fn func(Progress)) *progressReporter {
	return &progressReporter{
		fn:      fn,
		limiter: rate.NewLimiter(rate.Every(ProgressInterval), 1),
		total:   total,
	}
}

func (p *progressReporter) update(processed int, current string) {
	if p.fn == nil || !p.limiter.Allow() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(Progress{Processed: processed, Total: p.total, Current: current})
}

func (p *progressReporter) finish(processed int) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(Progress{Processed: processed, Total: p.total, Done: true})
}
