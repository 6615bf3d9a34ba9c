/*
Copyright © 2018 the OMET authors.
This file is part of OMET.

OMET is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

OMET is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with OMET.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command omet is a command-line interface for the OMET ocean
// heat content and meridional transport diagnostics.
package main

import (
	"fmt"
	"os"

	"github.com/omet-research/omet/ometutil"
)

func main() {
	if err := ometutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
