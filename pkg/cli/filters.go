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

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func listValue(values []string) string {
	if len(values) == 0 {
		return "(any)"
	}
	return strings.Join(values, ", ")
}

//nolint:gocritic // printed once
func filterRows(cfg filter.Config) [][]string {
	return [][]string{
		{"regions", listValue(cfg.Regions)},
		{"priority", strings.Join(cfg.RegionPriority(), ", ")},
		{"languages", listValue(cfg.Languages)},
		{"exclude flags", strings.Join(cfg.ExcludeFlags, ", ")},
		{"require verified", strconv.FormatBool(cfg.RequireVerified)},
		{"exclude translations", strconv.FormatBool(cfg.ExcludeTranslations)},
		{"exclude hacks", strconv.FormatBool(cfg.ExcludeHacks)},
		{"exclude pirates", strconv.FormatBool(cfg.ExcludePirates)},
		{"exclude trained", strconv.FormatBool(cfg.ExcludeTrained)},
		{"exclude overdumps", strconv.FormatBool(cfg.ExcludeOverdumps)},
		{"exclude alternates", strconv.FormatBool(cfg.ExcludeAlternates)},
		{"exclude bad dumps", strconv.FormatBool(cfg.ExcludeBadDumps)},
		{"dedup", strconv.FormatBool(cfg.Dedup)},
		{"hidden", strconv.Itoa(len(cfg.Hidden)) + " titles"},
	}
}

// filterFlags maps command line flags onto a filter config. Only flags
// the user set are applied.
type filterFlags struct {
	bools     map[string]*bool
	regions   []string
	priority  []string
	languages []string
	flags     []string
	reset     bool
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.regions, "regions", nil, "allowed regions, empty allows all")
	fs.StringSliceVar(&f.priority, "priority", nil, "region order used to pick one release per game")
	fs.StringSliceVar(&f.languages, "languages", nil, "allowed languages, empty allows all")
	fs.StringSliceVar(&f.flags, "exclude-flags", nil, "hide entries with these flags: beta, demo, proto, unl, sample")
	fs.BoolVar(&f.reset, "reset", false, "start from the defaults in the config file")

	f.bools = map[string]*bool{}
	for _, name := range []string{
		"require-verified", "exclude-translations", "exclude-hacks", "exclude-pirates",
		"exclude-trained", "exclude-overdumps", "exclude-alternates", "exclude-bad-dumps", "dedup",
	} {
		f.bools[name] = fs.Bool(name, false, strings.ReplaceAll(name, "-", " "))
	}
}

// apply reports whether any flag changed cfg.
func (f *filterFlags) apply(fs *pflag.FlagSet, cfg *filter.Config) bool {
	changed := false
	lists := map[string]struct {
		dst *[]string
		src []string
	}{
		"regions":       {&cfg.Regions, f.regions},
		"priority":      {&cfg.Priority, f.priority},
		"languages":     {&cfg.Languages, f.languages},
		"exclude-flags": {&cfg.ExcludeFlags, f.flags},
	}
	for name, s := range lists {
		if fs.Changed(name) {
			*s.dst = s.src
			changed = true
		}
	}

	targets := map[string]*bool{
		"require-verified":     &cfg.RequireVerified,
		"exclude-translations": &cfg.ExcludeTranslations,
		"exclude-hacks":        &cfg.ExcludeHacks,
		"exclude-pirates":      &cfg.ExcludePirates,
		"exclude-trained":      &cfg.ExcludeTrained,
		"exclude-overdumps":    &cfg.ExcludeOverdumps,
		"exclude-alternates":   &cfg.ExcludeAlternates,
		"exclude-bad-dumps":    &cfg.ExcludeBadDumps,
		"dedup":                &cfg.Dedup,
	}
	for name, dst := range targets {
		if fs.Changed(name) {
			*dst = *f.bools[name]
			changed = true
		}
	}
	return changed
}

func newFiltersCommand(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "filters <system>",
		Short: "Show or change the filters of a system",
		Long: "Without flags the current filters are printed. Flags change the stored " +
			"filters; list flags take comma separated values.",
		Example: "  datkeeper filters snes --regions USA,Europe --exclude-flags beta,proto --dedup",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			systemID := args[0]

			cfg, err := a.engine.FilterConfig(ctx, systemID)
			if err != nil {
				return err
			}
			changed := false
			if ff.reset {
				hidden := cfg.Hidden
				cfg = a.cfg.DefaultFilters()
				cfg.Hidden = hidden
				changed = true
			}
			if ff.apply(cmd.Flags(), &cfg) {
				changed = true
			}
			if changed {
				if err := a.engine.SetFilterConfig(ctx, systemID, cfg); err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintln(a.out(), renderTable([]string{"Filter", "Value"}, filterRows(cfg), nil))
			return nil
		},
	}
	ff.register(cmd.Flags())
	return cmd
}

func newHideCommand(a *app) *cobra.Command {
	var unhide bool

	cmd := &cobra.Command{
		Use:   "hide <system> <title>...",
		Short: "Hide catalog titles from the wanted set",
		Long: "Hidden titles are never wanted and never reported missing. A title matches " +
			"an entry's full title or its name without tags.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.engine.Store().GetSystem(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to get system: %w", err)
			}
			for _, title := range args[1:] {
				if err := a.engine.Store().SetHidden(ctx, args[0], title, !unhide); err != nil {
					return fmt.Errorf("failed to update hidden titles: %w", err)
				}
			}
			hidden, err := a.engine.Store().ListHiddenTitles(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list hidden titles: %w", err)
			}
			_, _ = fmt.Fprintf(a.out(), "%d hidden titles\n", len(hidden))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unhide, "unhide", false, "show the titles again")
	return cmd
}

func newIgnoreCommand(a *app) *cobra.Command {
	var unignore bool

	cmd := &cobra.Command{
		Use:   "ignore <system> [crc32...]",
		Short: "Ignore files and catalog roms by checksum",
		Long: "Files with an ignored CRC32 are reported as ignored and left alone, and " +
			"catalog roms with it are never reported missing. Without checksums the " +
			"ignored ones are listed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			crcs := make([]uint32, 0, len(args)-1)
			for _, s := range args[1:] {
				crc, err := catalog.ParseCRC(s)
				if err != nil {
					return fmt.Errorf("invalid checksum: %w", err)
				}
				crcs = append(crcs, crc)
			}
			for _, crc := range crcs {
				if err := a.engine.Store().RecordIgnoreOverride(ctx, args[0], crc, !unignore); err != nil {
					return fmt.Errorf("failed to record ignore override: %w", err)
				}
			}
			ignored, err := a.engine.Store().ListIgnoreOverrides(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list ignore overrides: %w", err)
			}
			if len(crcs) == 0 {
				for _, crc := range ignored.Sorted() {
					_, _ = fmt.Fprintln(a.out(), catalog.FormatCRC(crc))
				}
			}
			_, _ = fmt.Fprintf(a.out(), "%d ignored checksums\n", len(ignored))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unignore, "unignore", false, "stop ignoring the checksums")
	return cmd
}
