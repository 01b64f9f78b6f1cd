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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/datkeeper/datkeeper/pkg/actions"
	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/config"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/datkeeper/datkeeper/pkg/helpers"
	"github.com/datkeeper/datkeeper/pkg/scanner"
	"github.com/datkeeper/datkeeper/pkg/service"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	errNoRoot        = errors.New("no rom folder given or configured")
	errActionsFailed = errors.New("some actions failed")
	errReportFormat  = errors.New("unknown report format")
)

// scanFlags are shared by the commands that scan before they report.
type scanFlags struct {
	quiet bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not print scan progress")
}

// scan runs a scan of the system's rom folders and waits for it. Folders
// given after the system id replace the configured ones. An interrupt
// cancels the scan; the partial result is returned.
func (a *app) scan(ctx context.Context, args []string, flags *scanFlags) (*service.Evaluation, error) {
	sys := a.binding(args[0])
	if len(args) > 1 {
		sys.Roms = args[1:]
	}
	if len(sys.Roms) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoRoot, sys.ID)
	}
	roots, err := absPaths(sys.Roms)
	if err != nil {
		return nil, err
	}

	job, err := a.engine.StartScan(ctx, sys.ID, roots...)
	if err != nil {
		return nil, fmt.Errorf("failed to start scan: %w", err)
	}
	stop := context.AfterFunc(ctx, job.Cancel)
	defer stop()

	for p := range job.Progress() {
		if flags.quiet {
			continue
		}
		_, _ = fmt.Fprintf(a.opts.Err, "\rscanning %d/%d", p.Processed, p.Total)
		if p.Done {
			_, _ = fmt.Fprintln(a.opts.Err)
		}
	}

	eval, err := job.Wait()
	if err != nil {
		return nil, err
	}
	if eval.Result.Cancelled {
		_, _ = fmt.Fprintln(a.out(), "Scan cancelled, results are partial.")
	}
	return eval, nil
}

func writeSummary(w io.Writer, eval *service.Evaluation) {
	writeCounts(w, eval.Summary)
	if n := len(eval.Result.Warnings); n > 0 {
		_, _ = fmt.Fprintf(w, "%d warnings, see the log for details\n", n)
	}
}

func writeCounts(w io.Writer, s classify.Summary) {
	rows := [][]string{
		{"Correct", strconv.Itoa(s.Correct)},
		{"Wrong filename", strconv.Itoa(s.WrongFilename)},
		{"Broken", strconv.Itoa(s.Broken)},
		{"Unrecognized", strconv.Itoa(s.Unrecognized)},
		{"Duplicates", strconv.Itoa(s.Duplicates)},
		{"Ignored", strconv.Itoa(s.Ignored)},
		{"Missing", strconv.Itoa(s.Missing)},
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// shownPath is the path relative to the rom folder, or the full path when
// several folders were scanned.
func shownPath(eval *service.Evaluation, f *scanner.ScannedFile) string {
	if len(eval.Result.Roots) > 1 {
		return f.Path
	}
	return f.RelPath
}

func newScanCommand(a *app) *cobra.Command {
	var (
		flags      scanFlags
		files      bool
		duplicates bool
	)

	cmd := &cobra.Command{
		Use:   "scan <system> [folder...]",
		Short: "Scan the rom folders against the system's catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eval, err := a.scan(cmd.Context(), args, &flags)
			if err != nil {
				return err
			}
			writeSummary(a.out(), eval)

			if files {
				rows := make([][]string, 0, len(eval.Files))
				for _, fr := range eval.Files {
					rows = append(rows, []string{shownPath(eval, fr.File), fr.Status.String(), fr.Reason})
				}
				_, _ = fmt.Fprintln(a.out(), renderTable([]string{"File", "Status", "Reason"}, rows, nil))
			}
			if duplicates && len(eval.Duplicates) > 0 {
				var rows [][]string
				for _, g := range eval.Duplicates {
					for _, f := range g.Files {
						rows = append(rows, []string{catalog.FormatCRC(g.CRC32), shownPath(eval, f)})
					}
				}
				_, _ = fmt.Fprintln(a.out(), renderTable([]string{"CRC32", "File"}, rows, nil))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&files, "files", false, "list every scanned file with its status")
	cmd.Flags().BoolVar(&duplicates, "duplicates", false, "list files sharing a checksum")
	return cmd
}

func newMissingCommand(a *app) *cobra.Command {
	var (
		flags  scanFlags
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "missing <system> [folder...]",
		Short: "Report the wanted roms the collection lacks",
		Long: "Scan the rom folders and list the roms that pass the system's filters but " +
			"are in none of them.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = a.cfg.ReportFormat()
			}
			write := filter.WriteText
			switch format {
			case config.ReportTxt:
			case config.ReportCSV:
				write = filter.WriteCSV
			default:
				return fmt.Errorf("%w: %s", errReportFormat, format)
			}

			flags.quiet = flags.quiet || output == ""
			eval, err := a.scan(cmd.Context(), args, &flags)
			if err != nil {
				return err
			}

			if output == "" {
				return write(a.out(), eval.Missing)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			if err := write(f, eval.Missing); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close report file: %w", err)
			}
			_, _ = fmt.Fprintf(a.out(), "%d missing roms written to %s\n", len(eval.Missing), output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "", "report format: text or csv (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file")
	return cmd
}

func actionFolders(cfg *config.Instance) actions.Folders {
	f := cfg.Snapshot().Folders
	return actions.Folders{
		Extra:    f.Extra,
		Broken:   f.Broken,
		Filtered: f.Filtered,
		Multi:    f.Multi,
	}
}

func newApplyCommand(a *app) *cobra.Command {
	var (
		flags  scanFlags
		dryRun bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "apply <system> [folder...]",
		Short: "Rename and sort files as recommended by a scan",
		Long: "Scan the rom folders, then rename matched files to their catalog names and move " +
			"the rest into the action folders of their own rom folder. Existing files are never overwritten.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eval, err := a.scan(ctx, args, &flags)
			if err != nil {
				return err
			}
			if eval.Result.Cancelled {
				return context.Cause(ctx)
			}

			exec := actions.NewExecutor(afero.NewOsFs(), actionFolders(a.cfg))
			steps := exec.Plan(eval.Recommendations)
			if len(steps) == 0 {
				_, _ = fmt.Fprintln(a.out(), "Nothing to do.")
				return nil
			}

			rows := make([][]string, 0, len(steps))
			for _, s := range steps {
				rows = append(rows, []string{s.Action.String(), s.Status.String(), s.From, s.To})
			}
			_, _ = fmt.Fprintln(a.out(), renderTable([]string{"Action", "Status", "File", "Target"}, rows, nil))

			if !dryRun && !yes {
				label := fmt.Sprintf("Apply %d actions?", len(steps))
				if !helpers.YesNoPrompt(a.opts.In, a.out(), label, false) {
					_, _ = fmt.Fprintln(a.out(), "Aborted.")
					return nil
				}
			}

			report, err := exec.Apply(ctx, eval.Recommendations, dryRun)
			for _, o := range report.Outcomes {
				if o.Err != nil {
					_, _ = fmt.Fprintf(a.out(), "failed: %s: %v\n", o.Step, o.Err)
				}
			}
			verb := "Applied"
			if dryRun {
				verb = "Would apply"
			}
			_, _ = fmt.Fprintf(a.out(), "%s %d actions, %d failed.\n", verb, report.Applied, report.Failed)
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", errActionsFailed, report.Failed, len(report.Outcomes))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be done without touching files")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <system>",
		Short: "Show the result of the last scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.engine.LastScan(cmd.Context(), args[0])
			if errors.Is(err, database.ErrScanNotFound) {
				_, _ = fmt.Fprintf(a.out(), "No scan recorded for %s.\n", args[0])
				return nil
			} else if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(a.out(), "Last scan of %s at %s\n", args[0], rec.ScannedAt.Local().Format("2006-01-02 15:04"))
			for _, r := range rec.Roots {
				_, _ = fmt.Fprintf(a.out(), "  %s\n", r)
			}
			if rec.Cancelled {
				_, _ = fmt.Fprintln(a.out(), "The scan was cancelled, counts are partial.")
			}
			writeCounts(a.out(), rec.Summary)
			return nil
		},
	}
}
