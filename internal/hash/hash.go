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

// Package hash creates cache keys for grid configurations.
package hash

import (
	"fmt"
	"hash"
	"hash/fnv"
	"os"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Key returns a hash key for the given objects, which are hashed in order.
func Key(parts ...interface{}) string {
	h := fnv.New128a()
	for i, p := range parts {
		fmt.Fprintf(h, "%d:", i)
		write(h, p)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// write prints object to h. Map keys are sorted so that equal
// maps always give the same key.
func write(h hash.Hash, object interface{}) {
	printer.Fprintf(h, "%#v\n", object)
}

// FileVersion identifies the contents of a file by its path, size and
// modification time, so keys that include it change when the file does.
type FileVersion struct {
	Path    string
	Size    int64
	ModTime int64
}

// File returns the FileVersion of the file at path.
func File(path string) (FileVersion, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return FileVersion{}, err
	}
	return FileVersion{Path: path, Size: fi.Size(), ModTime: fi.ModTime().UnixNano()}, nil
}
