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

package helpers

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// YesNoPrompt asks a yes or no question on out and reads the answer from
// in. An empty answer, or the end of input, picks def.
func YesNoPrompt(in io.Reader, out io.Writer, label string, def bool) bool {
	choices := "Y/n"
	if !def {
		choices = "y/N"
	}

	r := bufio.NewReader(in)
	for {
		_, _ = fmt.Fprintf(out, "%s [%s] ", label, choices)
		s, err := r.ReadString('\n')
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		if err != nil {
			return def
		}
	}
}
