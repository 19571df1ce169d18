/*
Copyright © 2020 the atmos authors.
This file is part of atmos.

atmos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

atmos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with atmos.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command atmos is a command-line interface for the PHOTOCHEM and CLIMA
// atmosphere models.
package main

import (
	"fmt"
	"os"

	"github.com/atmos-tools/atmos/atmosutil"
)

func main() {
	if err := atmosutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
