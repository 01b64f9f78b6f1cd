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

package catalogdb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/datkeeper/datkeeper/pkg/catalog"
	"github.com/datkeeper/datkeeper/pkg/classify"
	"github.com/datkeeper/datkeeper/pkg/database"
	"github.com/datkeeper/datkeeper/pkg/filter"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqlMigrateUp(db *sql.DB) error {
	if _, err := database.MigrateUp(db, migrationFiles, "migrations", "catalog"); err != nil {
		return fmt.Errorf("failed to run catalog database migrations: %w", err)
	}
	return nil
}

//goland:noinspection SqlWithoutWhere
func sqlTruncate(ctx context.Context, db *sql.DB) error {
	sqlStmt := `
	delete from ScannedFiles;
	delete from Scans;
	delete from IgnoreOverrides;
	delete from HiddenTitles;
	delete from FilterConfigs;
	delete from Roms;
	delete from Games;
	delete from Systems;
	vacuum;
	`
	_, err := db.ExecContext(ctx, sqlStmt)
	if err != nil {
		return fmt.Errorf("failed to truncate database: %w", err)
	}
	return nil
}

func sqlVacuum(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `vacuum;`)
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func closeStmt(stmt *sql.Stmt) {
	if closeErr := stmt.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close sql statement")
	}
}

func closeRows(rows *sql.Rows) {
	if closeErr := rows.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close sql rows")
	}
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn().Err(err).Msg("failed to roll back transaction")
	}
}

func sqlSystemDBID(ctx context.Context, q querier, systemID string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `select DBID from Systems where SystemID = ?;`, systemID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", database.ErrSystemNotFound, systemID)
	} else if err != nil {
		return 0, fmt.Errorf("failed to look up system: %w", err)
	}
	return id, nil
}

// sqlUpsertCatalog replaces the system's catalog in one transaction. User
// settings of the system survive the import.
func sqlUpsertCatalog(
	ctx context.Context,
	db *sql.DB,
	now time.Time,
	systemID, datPath string,
	cat *catalog.Catalog,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer rollback(tx)

	h := cat.Header
	_, err = tx.ExecContext(ctx, `
		insert into Systems(
			SystemID, Name, Description, Version, Author, Homepage, DatPath, ImportedAt
		) values (?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(SystemID) do update set
			Name = excluded.Name,
			Description = excluded.Description,
			Version = excluded.Version,
			Author = excluded.Author,
			Homepage = excluded.Homepage,
			DatPath = excluded.DatPath,
			ImportedAt = excluded.ImportedAt;
	`, systemID, h.Name, h.Description, h.Version, h.Author, h.Homepage, datPath, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert system: %w", err)
	}
	sysDBID, err := sqlSystemDBID(ctx, tx, systemID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		delete from Roms where GameDBID in (select DBID from Games where SystemDBID = ?);
	`, sysDBID)
	if err != nil {
		return fmt.Errorf("failed to clear previous roms: %w", err)
	}
	_, err = tx.ExecContext(ctx, `delete from Games where SystemDBID = ?;`, sysDBID)
	if err != nil {
		return fmt.Errorf("failed to clear previous games: %w", err)
	}

	gameStmt, err := tx.PrepareContext(ctx, `
		insert into Games(
			SystemDBID, Position, GameID, Title, Description, CloneOf
		) values (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare game insert statement: %w", err)
	}
	defer closeStmt(gameStmt)
	romStmt, err := tx.PrepareContext(ctx, `
		insert into Roms(
			GameDBID, Name, Size, CRC32, MD5, SHA1, Status, Serial
		) values (?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rom insert statement: %w", err)
	}
	defer closeStmt(romStmt)

	for _, g := range cat.Games {
		res, err := gameStmt.ExecContext(ctx, sysDBID, g.Index, g.ID, g.Title, g.Description, g.CloneOf)
		if err != nil {
			return fmt.Errorf("failed to insert game %q: %w", g.Title, err)
		}
		gameDBID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get game id: %w", err)
		}
		for _, r := range g.Roms {
			_, err = romStmt.ExecContext(ctx,
				gameDBID, r.Name, r.Size, int64(r.CRC32), r.MD5, r.SHA1, r.Status, r.Serial,
			)
			if err != nil {
				return fmt.Errorf("failed to insert rom %q: %w", r.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	log.Info().
		Str("system", systemID).
		Int("games", len(cat.Games)).
		Int("roms", cat.RomCount()).
		Msg("catalog imported")
	return nil
}

const systemColumns = `
	s.DBID, s.SystemID, s.Name, s.Description, s.Version, s.Author, s.Homepage,
	s.DatPath, s.ImportedAt,
	(select count(*) from Games g where g.SystemDBID = s.DBID),
	(select count(*) from Roms r join Games g on r.GameDBID = g.DBID where g.SystemDBID = s.DBID)
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSystem(row rowScanner) (database.System, error) {
	var s database.System
	var imported int64
	err := row.Scan(
		&s.DBID, &s.SystemID, &s.Name, &s.Description, &s.Version, &s.Author,
		&s.Homepage, &s.DatPath, &imported, &s.GameCount, &s.RomCount,
	)
	if err != nil {
		return s, err //nolint:wrapcheck // wrapped by callers
	}
	s.ImportedAt = time.Unix(imported, 0)
	return s, nil
}

func sqlGetSystem(ctx context.Context, db *sql.DB, systemID string) (database.System, error) {
	row := db.QueryRowContext(ctx, `select `+systemColumns+` from Systems s where s.SystemID = ?;`, systemID)
	s, err := scanSystem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("%w: %s", database.ErrSystemNotFound, systemID)
	} else if err != nil {
		return s, fmt.Errorf("failed to get system: %w", err)
	}
	return s, nil
}

func sqlListSystems(ctx context.Context, db *sql.DB) ([]database.System, error) {
	rows, err := db.QueryContext(ctx, `select `+systemColumns+` from Systems s order by s.SystemID;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query systems: %w", err)
	}
	defer closeRows(rows)

	list := make([]database.System, 0)
	for rows.Next() {
		s, err := scanSystem(rows)
		if err != nil {
			return list, fmt.Errorf("failed to scan system row: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("error iterating system rows: %w", err)
	}
	return list, nil
}

func sqlDeleteSystem(ctx context.Context, db *sql.DB, systemID string) error {
	res, err := db.ExecContext(ctx, `delete from Systems where SystemID = ?;`, systemID)
	if err != nil {
		return fmt.Errorf("failed to delete system: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", database.ErrSystemNotFound, systemID)
	}
	return nil
}

// sqlListEntries rebuilds the system's entries in catalog order. Naming
// tags are extracted again, so the result equals a fresh parse.
func sqlListEntries(ctx context.Context, db *sql.DB, systemID string) ([]*catalog.GameEntry, error) {
	sysDBID, err := sqlSystemDBID(ctx, db, systemID)
	if err != nil {
		return nil, err
	}

	q, err := db.PrepareContext(ctx, `
		select
			g.DBID, g.Position, g.GameID, g.Title, g.Description, g.CloneOf,
			r.Name, r.Size, r.CRC32, r.MD5, r.SHA1, r.Status, r.Serial
		from Games g
		join Roms r on r.GameDBID = g.DBID
		where g.SystemDBID = ?
		order by g.Position, r.DBID;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare entries query statement: %w", err)
	}
	defer closeStmt(q)

	rows, err := q.QueryContext(ctx, sysDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer closeRows(rows)

	type pending struct {
		id, title, description, cloneOf string
		roms                            []*catalog.RomRecord
		position                        int
	}
	var (
		games   []*catalog.GameEntry
		current *pending
		lastID  int64 = -1
	)
	flush := func() {
		if current == nil {
			return
		}
		g := catalog.NewGameEntry(current.id, current.title, current.position, current.roms)
		g.Description = current.description
		g.CloneOf = current.cloneOf
		games = append(games, g)
	}
	for rows.Next() {
		var (
			gameDBID int64
			p        pending
			r        catalog.RomRecord
			crc      int64
		)
		scanErr := rows.Scan(
			&gameDBID, &p.position, &p.id, &p.title, &p.description, &p.cloneOf,
			&r.Name, &r.Size, &crc, &r.MD5, &r.SHA1, &r.Status, &r.Serial,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", scanErr)
		}
		r.CRC32 = uint32(crc) //nolint:gosec // stored from a uint32
		if gameDBID != lastID {
			flush()
			current = &p
			lastID = gameDBID
		}
		current.roms = append(current.roms, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	flush()
	return games, nil
}

func sqlGetFilterConfig(ctx context.Context, db *sql.DB, systemID string) (filter.Config, error) {
	sysDBID, err := sqlSystemDBID(ctx, db, systemID)
	if err != nil {
		return filter.Config{}, err
	}

	cfg := filter.DefaultConfig()
	var raw string
	err = db.QueryRowContext(ctx, `select Config from FilterConfigs where SystemDBID = ?;`, sysDBID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return cfg, fmt.Errorf("failed to get filter config: %w", err)
	default:
		cfg = filter.Config{}
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return cfg, fmt.Errorf("failed to decode filter config: %w", err)
		}
	}

	hidden, err := sqlListHiddenTitles(ctx, db, systemID)
	if err != nil {
		return cfg, err
	}
	cfg.Hidden = hidden
	return cfg, nil
}

// sqlSetFilterConfig stores cfg. The hidden set is kept in its own table
// and replaced along with the config.
//
//nolint:gocritic // config stored by value
func sqlSetFilterConfig(ctx context.Context, db *sql.DB, now time.Time, systemID string, cfg filter.Config) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin filter config transaction: %w", err)
	}
	defer rollback(tx)

	sysDBID, err := sqlSystemDBID(ctx, tx, systemID)
	if err != nil {
		return err
	}

	hidden := cfg.Hidden
	cfg.Hidden = nil
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode filter config: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		insert into FilterConfigs(SystemDBID, Config, UpdatedAt) values (?, ?, ?)
		on conflict(SystemDBID) do update set Config = excluded.Config, UpdatedAt = excluded.UpdatedAt;
	`, sysDBID, string(raw), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to save filter config: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `delete from HiddenTitles where SystemDBID = ?;`, sysDBID); err != nil {
		return fmt.Errorf("failed to clear hidden titles: %w", err)
	}
	for _, title := range hidden {
		_, err := tx.ExecContext(ctx,
			`insert or ignore into HiddenTitles(SystemDBID, Title) values (?, ?);`, sysDBID, title)
		if err != nil {
			return fmt.Errorf("failed to save hidden title: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit filter config: %w", err)
	}
	return nil
}

func sqlListHiddenTitles(ctx context.Context, db *sql.DB, systemID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		select h.Title from HiddenTitles h
		join Systems s on s.DBID = h.SystemDBID
		where s.SystemID = ?
		order by h.Title;
	`, systemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hidden titles: %w", err)
	}
	defer closeRows(rows)

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return titles, fmt.Errorf("failed to scan hidden title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return titles, fmt.Errorf("error iterating hidden titles: %w", err)
	}
	return titles, nil
}

func sqlSetHidden(ctx context.Context, db *sql.DB, systemID, title string, hidden bool) error {
	sysDBID, err := sqlSystemDBID(ctx, db, systemID)
	if err != nil {
		return err
	}
	if hidden {
		_, err = db.ExecContext(ctx,
			`insert or ignore into HiddenTitles(SystemDBID, Title) values (?, ?);`, sysDBID, title)
	} else {
		_, err = db.ExecContext(ctx,
			`delete from HiddenTitles where SystemDBID = ? and Title = ?;`, sysDBID, title)
	}
	if err != nil {
		return fmt.Errorf("failed to update hidden title: %w", err)
	}
	return nil
}

func sqlRecordIgnoreOverride(
	ctx context.Context,
	db *sql.DB,
	now time.Time,
	systemID string,
	crc uint32,
	ignored bool,
) error {
	sysDBID, err := sqlSystemDBID(ctx, db, systemID)
	if err != nil {
		return err
	}
	if ignored {
		_, err = db.ExecContext(ctx, `
			insert or ignore into IgnoreOverrides(SystemDBID, CRC32, CreatedAt) values (?, ?, ?);
		`, sysDBID, int64(crc), now.Unix())
	} else {
		_, err = db.ExecContext(ctx,
			`delete from IgnoreOverrides where SystemDBID = ? and CRC32 = ?;`, sysDBID, int64(crc))
	}
	if err != nil {
		return fmt.Errorf("failed to update ignore override: %w", err)
	}
	return nil
}

func sqlListIgnoreOverrides(ctx context.Context, db *sql.DB, systemID string) (classify.IgnoreSet, error) {
	sysDBID, err := sqlSystemDBID(ctx, db, systemID)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `select CRC32 from IgnoreOverrides where SystemDBID = ?;`, sysDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignore overrides: %w", err)
	}
	defer closeRows(rows)

	set := classify.NewIgnoreSet()
	for rows.Next() {
		var crc int64
		if err := rows.Scan(&crc); err != nil {
			return set, fmt.Errorf("failed to scan ignore override: %w", err)
		}
		set[uint32(crc)] = struct{}{} //nolint:gosec // stored from a uint32
	}
	if err := rows.Err(); err != nil {
		return set, fmt.Errorf("error iterating ignore overrides: %w", err)
	}
	return set, nil
}

// sqlSaveScan replaces the system's last scan.
func sqlSaveScan(ctx context.Context, db *sql.DB, systemID string, scan *database.ScanRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scan transaction: %w", err)
	}
	defer rollback(tx)

	sysDBID, err := sqlSystemDBID(ctx, tx, systemID)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(scan.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode scan summary: %w", err)
	}
	roots := scan.Roots
	if roots == nil {
		roots = []string{}
	}
	rootsJSON, err := json.Marshal(roots)
	if err != nil {
		return fmt.Errorf("failed to encode scan roots: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `delete from ScannedFiles where SystemDBID = ?;`, sysDBID); err != nil {
		return fmt.Errorf("failed to clear previous scan files: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		insert or replace into Scans(
			SystemDBID, ScanID, Roots, ScannedAt, Cancelled, Summary
		) values (?, ?, ?, ?, ?, ?);
	`, sysDBID, scan.ScanID, string(rootsJSON), scan.ScannedAt.Unix(), scan.Cancelled, string(summary))
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		insert into ScannedFiles(
			SystemDBID, Path, RomName, Size, CRC32, Status
		) values (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare scanned file insert statement: %w", err)
	}
	defer closeStmt(stmt)
	for _, f := range scan.Files {
		_, err := stmt.ExecContext(ctx, sysDBID, f.Path, f.RomName, f.Size, f.CRC32, f.Status.String())
		if err != nil {
			return fmt.Errorf("failed to insert scanned file %q: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}
	return nil
}

func sqlGetLastScan(ctx context.Context, db *sql.DB, systemID string) (*database.ScanRecord, error) {
	sysDBID, err := sqlSystemDBID(ctx, db, systemID)
	if err != nil {
		return nil, err
	}

	scan := &database.ScanRecord{}
	var (
		scannedAt int64
		roots     string
		summary   string
	)
	err = db.QueryRowContext(ctx, `
		select ScanID, Roots, ScannedAt, Cancelled, Summary from Scans where SystemDBID = ?;
	`, sysDBID).Scan(&scan.ScanID, &roots, &scannedAt, &scan.Cancelled, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", database.ErrScanNotFound, systemID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	scan.ScannedAt = time.Unix(scannedAt, 0)
	if err := json.Unmarshal([]byte(summary), &scan.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode scan summary: %w", err)
	}
	if err := json.Unmarshal([]byte(roots), &scan.Roots); err != nil {
		return nil, fmt.Errorf("failed to decode scan roots: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		select Path, RomName, Size, CRC32, Status from ScannedFiles
		where SystemDBID = ? order by Path;
	`, sysDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scanned files: %w", err)
	}
	defer closeRows(rows)
	for rows.Next() {
		var (
			f      database.ScannedFile
			status string
		)
		if err := rows.Scan(&f.Path, &f.RomName, &f.Size, &f.CRC32, &status); err != nil {
			return nil, fmt.Errorf("failed to scan scanned file row: %w", err)
		}
		if f.Status, err = classify.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("invalid status for %s: %w", f.Path, err)
		}
		scan.Files = append(scan.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scanned files: %w", err)
	}
	return scan, nil
}
