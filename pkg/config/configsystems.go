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

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnknownSystem is returned when changing the folders of a system that
// has no binding.
var ErrUnknownSystem = errors.New("system not configured")

// System binds a system id to its catalog file and rom folders. The
// folders are scanned together as one collection, in this order.
type System struct {
	ID   string   `toml:"id" validate:"required"`
	Dat  string   `toml:"dat,omitempty"`
	Roms []string `toml:"roms,omitempty" validate:"dive,required"`
}

// Equal reports whether two bindings are the same.
//
//nolint:gocritic // small struct
func (s System) Equal(o System) bool {
	return s.ID == o.ID && s.Dat == o.Dat && slices.Equal(s.Roms, o.Roms)
}

func (s *System) clone() System {
	out := *s
	out.Roms = slices.Clone(s.Roms)
	return out
}

func (c *Instance) Systems() []System {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]System, 0, len(c.vals.Systems))
	for i := range c.vals.Systems {
		out = append(out, c.vals.Systems[i].clone())
	}
	return out
}

// LookupSystem returns the configured folders of a system.
func (c *Instance) LookupSystem(id string) (System, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.vals.Systems {
		if strings.EqualFold(c.vals.Systems[i].ID, id) {
			return c.vals.Systems[i].clone(), true
		}
	}
	return System{}, false
}

// SetSystem adds or replaces a system binding.
//
//nolint:gocritic // small struct
func (c *Instance) SetSystem(sys System) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateSystem(sys.ID, true, func(s *System) error {
		*s = sys.clone()
		return nil
	})
}

// AddRomFolder appends folder to the rom folders of a system, creating
// the binding when needed. A folder already in the list is kept in place.
func (c *Instance) AddRomFolder(id, folder string) error {
	folder = filepath.Clean(folder)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateSystem(id, true, func(s *System) error {
		if !slices.Contains(s.Roms, folder) {
			s.Roms = append(s.Roms, folder)
		}
		return nil
	})
}

// RemoveRomFolder drops folder from the rom folders of a system. It
// reports whether the folder was configured.
func (c *Instance) RemoveRomFolder(id, folder string) (bool, error) {
	folder = filepath.Clean(folder)
	removed := false
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.updateSystem(id, false, func(s *System) error {
		n := len(s.Roms)
		s.Roms = slices.DeleteFunc(s.Roms, func(r string) bool { return filepath.Clean(r) == folder })
		removed = len(s.Roms) < n
		return nil
	})
	return removed, err
}

// RemoveSystem drops the binding of a system. It reports whether one
// existed.
func (c *Instance) RemoveSystem(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.vals.Systems)
	next := cloneValues(&c.vals)
	next.Systems = slices.DeleteFunc(next.Systems, func(s System) bool { return strings.EqualFold(s.ID, id) })
	if len(next.Systems) == n {
		return false
	}
	c.vals = next
	return true
}

// updateSystem applies fn to a copy of the binding of id and stores the
// result if it validates. c.mu must be held.
func (c *Instance) updateSystem(id string, create bool, fn func(*System) error) error {
	next := cloneValues(&c.vals)
	i := slices.IndexFunc(next.Systems, func(s System) bool { return strings.EqualFold(s.ID, id) })
	if i < 0 {
		if !create {
			return fmt.Errorf("%w: %s", ErrUnknownSystem, id)
		}
		next.Systems = append(next.Systems, System{ID: id})
		i = len(next.Systems) - 1
	}
	if err := fn(&next.Systems[i]); err != nil {
		return err
	}
	if err := Validate(&next); err != nil {
		return err
	}
	c.vals = next
	return nil
}
