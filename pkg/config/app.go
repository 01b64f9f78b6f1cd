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

const (
	AppName   = "datkeeper"
	CfgFile   = "config.toml"
	LogFile   = "datkeeper.log"
	LocksDir  = "locks"
	LogsDir   = "logs"
	ReportCSV = "csv"
	ReportTxt = "text"
)

// Default action folder names, created inside the scanned folder.
const (
	DefaultExtraFolder    = "_extra"
	DefaultBrokenFolder   = "broken"
	DefaultFilteredFolder = "_filtered"
	DefaultMultiFolder    = "_multi"
)

// DefaultExtensions are the rom file extensions scanned when the user has
// not configured any.
var DefaultExtensions = []string{
	".bin", ".nes", ".sfc", ".smc", ".gb", ".gbc", ".gba", ".n64", ".z64", ".v64",
	".md", ".gen", ".sms", ".gg", ".pce", ".nds", ".a26", ".a78", ".lnx", ".ws",
	".wsc", ".iso", ".cue", ".chd", ".zip", ".7z",
}
