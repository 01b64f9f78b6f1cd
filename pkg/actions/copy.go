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

package actions

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

func (e *Executor) copyFile(from, to string) error {
	in, err := e.fs.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", from, err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close source file")
		}
	}()

	out, err := e.fs.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = e.fs.Remove(to)
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = e.fs.Remove(to)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}
