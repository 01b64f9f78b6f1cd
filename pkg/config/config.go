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

// Package config loads and saves the user's config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/datkeeper/datkeeper/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "DATKEEPER_CFG"
	DataEnv       = "DATKEEPER_DATA"
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Report       Report        `toml:"report"`
	Systems      []System      `toml:"systems,omitempty" validate:"dive"`
	Folders      Folders       `toml:"folders"`
	Filters      filter.Config `toml:"filters"`
	Scan         Scan          `toml:"scan"`
	Actions      Actions       `toml:"actions"`
	ConfigSchema int           `toml:"config_schema"`
	DebugLogging bool          `toml:"debug_logging"`
}

type Scan struct {
	Extensions      []string `toml:"extensions,omitempty,multiline" validate:"dive,startswith=.,excludesall=/\\"`
	ExcludedFolders []string `toml:"excluded_folders,omitempty" validate:"dive,required"`
	Workers         int      `toml:"workers" validate:"min=1,max=64"`
	Recursive       bool     `toml:"recursive"`
	HashUnmatched   bool     `toml:"hash_unmatched"`
	Hints           bool     `toml:"hints"`
	SecondaryHashes bool     `toml:"secondary_hashes"`
}

// Folders are the names of the action folders inside a scanned folder.
type Folders struct {
	Extra    string `toml:"extra" validate:"required,excludesall=/\\"`
	Broken   string `toml:"broken" validate:"required,excludesall=/\\"`
	Filtered string `toml:"filtered" validate:"required,excludesall=/\\"`
	Multi    string `toml:"multi" validate:"required,excludesall=/\\"`
}

type Report struct {
	Format string `toml:"format" validate:"oneof=text csv"`
}

type Actions struct {
	DeleteDuplicates  bool `toml:"delete_duplicates"`
	SeparateMultiDisc bool `toml:"separate_multi_disc"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Scan: Scan{
		Workers:   4,
		Recursive: true,
	},
	Folders: Folders{
		Extra:    DefaultExtraFolder,
		Broken:   DefaultBrokenFolder,
		Filtered: DefaultFilteredFolder,
		Multi:    DefaultMultiFolder,
	},
	Filters: filter.DefaultConfig(),
	Report:  Report{Format: ReportTxt},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, or from the path in
// DATKEEPER_CFG, writing defaults first when the file does not exist.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Str("path", cfgPath).Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file location.
func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// File values are unmarshalled over the defaults, so keys missing
	// from the file keep their default value.
	newVals := cloneValues(&c.defaults)
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := Validate(&newVals); err != nil {
		return err
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// cloneValues copies v so slices of the copy can be changed freely.
func cloneValues(v *Values) Values {
	out := *v
	out.Systems = nil
	for i := range v.Systems {
		out.Systems = append(out.Systems, v.Systems[i].clone())
	}
	out.Scan.Extensions = slices.Clone(v.Scan.Extensions)
	out.Scan.ExcludedFolders = slices.Clone(v.Scan.ExcludedFolders)
	out.Filters.Regions = slices.Clone(v.Filters.Regions)
	out.Filters.Priority = slices.Clone(v.Filters.Priority)
	out.Filters.Languages = slices.Clone(v.Filters.Languages)
	out.Filters.ExcludeFlags = slices.Clone(v.Filters.ExcludeFlags)
	out.Filters.Hidden = slices.Clone(v.Filters.Hidden)
	return out
}

// Snapshot returns a copy of every value.
func (c *Instance) Snapshot() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneValues(&c.vals)
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// ScanExtensions returns the configured extensions, or the defaults when
// none are set.
func (c *Instance) ScanExtensions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.Scan.Extensions) == 0 {
		return slices.Clone(DefaultExtensions)
	}
	return slices.Clone(c.vals.Scan.Extensions)
}

func (c *Instance) ScanWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scan.Workers
}

func (c *Instance) SetScanWorkers(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := cloneValues(&c.vals)
	next.Scan.Workers = n
	if err := Validate(&next); err != nil {
		return err
	}
	c.vals = next
	return nil
}

// ActionFolders returns the action folder names in the order extra,
// broken, filtered, multi.
func (c *Instance) ActionFolders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f := c.vals.Folders
	return []string{f.Extra, f.Broken, f.Filtered, f.Multi}
}

// ExcludedFolders returns the folder names a scan never descends into:
// the configured ones plus every action folder.
func (c *Instance) ExcludedFolders() []string {
	out := c.ActionFolders()
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.vals.Scan.ExcludedFolders {
		if !slices.ContainsFunc(out, func(s string) bool { return strings.EqualFold(s, f) }) {
			out = append(out, f)
		}
	}
	return out
}

// DefaultFilters returns the filter settings used for systems that have
// none stored.
func (c *Instance) DefaultFilters() filter.Config {
	return c.Snapshot().Filters
}

func (c *Instance) ReportFormat() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Report.Format
}
