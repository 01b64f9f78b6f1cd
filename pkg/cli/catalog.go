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
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	errNoCatalog     = errors.New("no catalog file given or configured")
	errImportsFailed = errors.New("some catalogs failed to import")
)

// binding returns the configured folders of a system, or an empty
// binding for an unconfigured one.
func (a *app) binding(systemID string) config.System {
	sys, ok := a.cfg.LookupSystem(systemID)
	if !ok {
		sys.ID = systemID
	}
	return sys
}

// bind updates the binding in memory and reports whether it changed.
//
//nolint:gocritic // small struct
func (a *app) bind(sys config.System) (bool, error) {
	if old, ok := a.cfg.LookupSystem(sys.ID); ok && old.Equal(sys) {
		return false, nil
	}
	if err := a.cfg.SetSystem(sys); err != nil {
		return false, fmt.Errorf("failed to update system binding: %w", err)
	}
	log.Info().Str("system", sys.ID).Str("dat", sys.Dat).Strs("roms", sys.Roms).Msg("updated system binding")
	return true, nil
}

func (a *app) save() error {
	if err := a.cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// remember stores the binding in the config file when it changed.
//
//nolint:gocritic // small struct
func (a *app) remember(sys config.System) error {
	changed, err := a.bind(sys)
	if err != nil || !changed {
		return err
	}
	return a.save()
}

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return abs, nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := absPath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}

func newImportCommand(a *app) *cobra.Command {
	var (
		roms   []string
		folder string
	)

	cmd := &cobra.Command{
		Use:   "import <system> [catalog] | import --folder <dir>",
		Short: "Import DAT catalogs",
		Long: "Import a Logiqx XML or clrmamepro DAT file, replacing the system's previous " +
			"catalog. The catalog path is remembered in the config file.\n\n" +
			"With --folder every .dat and .xml file under the folder is imported. Each " +
			"file becomes the system named in its header, or by its file name when the " +
			"header has no name.",
		Args: func(cmd *cobra.Command, args []string) error {
			if folder != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if folder != "" {
				return a.importFolder(cmd, folder)
			}

			sys := a.binding(args[0])
			if len(args) == 2 {
				sys.Dat = args[1]
			}
			if sys.Dat == "" {
				return fmt.Errorf("%w: %s", errNoCatalog, sys.ID)
			}
			dat, err := absPath(sys.Dat)
			if err != nil {
				return err
			}
			sys.Dat = dat
			extra, err := absPaths(roms)
			if err != nil {
				return err
			}
			for _, r := range extra {
				if !containsPath(sys.Roms, r) {
					sys.Roms = append(sys.Roms, r)
				}
			}

			res, err := a.engine.ImportCatalog(cmd.Context(), sys.ID, sys.Dat)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			for _, w := range res.Warnings {
				_, _ = fmt.Fprintf(a.out(), "warning: %v\n", w)
			}
			_, _ = fmt.Fprintf(a.out(), "Imported %q for %s: %d games, %d roms\n",
				res.System.Name, sys.ID, res.System.GameCount, res.System.RomCount)

			return a.remember(sys)
		},
	}
	cmd.Flags().StringSliceVar(&roms, "roms", nil, "rom folder to scan for this system, repeatable")
	cmd.Flags().StringVar(&folder, "folder", "", "import every catalog file under this folder")
	cmd.MarkFlagsMutuallyExclusive("folder", "roms")
	return cmd
}

func containsPath(paths []string, p string) bool {
	for _, q := range paths {
		if filepath.Clean(q) == filepath.Clean(p) {
			return true
		}
	}
	return false
}

// importFolder imports every catalog under dir and remembers the catalog
// path of each imported system. Files that fail are listed and make the
// command fail once the rest are imported.
func (a *app) importFolder(cmd *cobra.Command, dir string) error {
	dir, err := absPath(dir)
	if err != nil {
		return err
	}
	res, err := a.engine.ImportFolder(cmd.Context(), dir)
	if res == nil {
		return fmt.Errorf("import failed: %w", err)
	}

	changed := false
	rows := make([][]string, 0, len(res.Files))
	for _, fi := range res.Files {
		rel, relErr := filepath.Rel(dir, fi.Path)
		if relErr != nil {
			rel = fi.Path
		}
		if fi.Err != nil {
			rows = append(rows, []string{rel, fi.SystemID, "", "", fi.Err.Error()})
			continue
		}
		rows = append(rows, []string{
			rel,
			fi.SystemID,
			strconv.Itoa(fi.Result.System.GameCount),
			strconv.Itoa(fi.Result.System.RomCount),
			warningsNote(fi.Result),
		})

		sys := a.binding(fi.SystemID)
		sys.Dat = fi.Path
		did, bindErr := a.bind(sys)
		if bindErr != nil {
			return bindErr
		}
		changed = changed || did
	}
	if changed {
		if saveErr := a.save(); saveErr != nil {
			return saveErr
		}
	}

	if len(res.Files) == 0 {
		_, _ = fmt.Fprintf(a.out(), "No catalog files found in %s.\n", dir)
		return err
	}
	_, _ = fmt.Fprintln(a.out(), renderTable(
		[]string{"File", "System", "Games", "Roms", "Notes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
	_, _ = fmt.Fprintf(a.out(), "Imported %d of %d catalogs\n", res.Imported, len(res.Files))

	if err != nil {
		return err
	}
	if failed := len(res.Files) - res.Imported; failed > 0 {
		return fmt.Errorf("%w: %d of %d", errImportsFailed, failed, len(res.Files))
	}
	return nil
}

func warningsNote(res *service.ImportResult) string {
	switch n := len(res.Warnings); n {
	case 0:
		return ""
	case 1:
		return "1 warning"
	default:
		return strconv.Itoa(n) + " warnings"
	}
}

func newSystemsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "systems",
		Short: "List imported systems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			systems, err := a.engine.Store().ListSystems(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list systems: %w", err)
			}
			if len(systems) == 0 {
				_, _ = fmt.Fprintln(a.out(), "No systems imported yet.")
				return nil
			}

			rows := make([][]string, 0, len(systems))
			for _, s := range systems {
				rows = append(rows, []string{
					s.SystemID,
					s.Name,
					s.Version,
					strconv.Itoa(s.GameCount),
					strconv.Itoa(s.RomCount),
					strings.Join(a.binding(s.SystemID).Roms, ", "),
					s.ImportedAt.Format("2006-01-02 15:04"),
				})
			}
			_, _ = fmt.Fprintln(a.out(), renderTable(
				[]string{"System", "Catalog", "Version", "Games", "Roms", "Folders", "Imported"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newFoldersCommand(a *app) *cobra.Command {
	var add, remove []string

	cmd := &cobra.Command{
		Use:   "folders <system>",
		Short: "List or change the rom folders of a system",
		Long: "The rom folders of a system are scanned together as one collection, in the " +
			"listed order. A rom found in any of them counts as owned.",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id := args[0]
			added, err := absPaths(add)
			if err != nil {
				return err
			}
			removed, err := absPaths(remove)
			if err != nil {
				return err
			}

			for _, f := range added {
				if err := a.cfg.AddRomFolder(id, f); err != nil {
					return fmt.Errorf("failed to add rom folder: %w", err)
				}
			}
			for _, f := range removed {
				ok, err := a.cfg.RemoveRomFolder(id, f)
				if err != nil {
					return fmt.Errorf("failed to remove rom folder: %w", err)
				}
				if !ok {
					_, _ = fmt.Fprintf(a.out(), "%s is not a rom folder of %s\n", f, id)
				}
			}
			if len(added)+len(removed) > 0 {
				if err := a.save(); err != nil {
					return err
				}
			}

			sys := a.binding(id)
			if len(sys.Roms) == 0 {
				_, _ = fmt.Fprintf(a.out(), "No rom folders configured for %s.\n", id)
				return nil
			}
			for _, r := range sys.Roms {
				_, _ = fmt.Fprintln(a.out(), r)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "add a rom folder")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "remove a rom folder")
	return cmd
}

func newRemoveCommand(a *app) *cobra.Command {
	var keepConfig bool

	cmd := &cobra.Command{
		Use:   "remove <system>",
		Short: "Delete a system's catalog and history",
		Long: "Delete the imported catalog of a system with its filters, overrides and " +
			"scan history. The folder binding in the config file is dropped too unless " +
			"--keep-config is given. Files on disk are not touched.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := a.engine.RemoveSystem(cmd.Context(), id); err != nil {
				return err
			}
			if !keepConfig && a.cfg.RemoveSystem(id) {
				if err := a.save(); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(a.out(), "Removed %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepConfig, "keep-config", false, "keep the catalog and rom folders in the config file")
	return cmd
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <system>...",
		Short: "Reimport catalogs whenever their files change",
		Long: "Watch the configured catalog file of each system and reimport it after it " +
			"changes. A reimport requested during a scan runs once the scan ends.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, id := range args {
				sys := a.binding(id)
				if sys.Dat == "" {
					return fmt.Errorf("%w: %s", errNoCatalog, id)
				}
				if err := a.engine.WatchCatalog(ctx, sys.ID, sys.Dat); err != nil {
					return fmt.Errorf("failed to watch %s: %w", id, err)
				}
				_, _ = fmt.Fprintf(a.out(), "Watching %s\n", sys.Dat)
			}
			<-ctx.Done()
			return nil
		},
	}
}
