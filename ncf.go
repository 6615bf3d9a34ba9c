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

package omet

import (
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// MeshVars holds the names of the variables in a mesh mask file.
// Optional variables may be left empty to skip them.
type MeshVars struct {
	TMask, UMask, VMask string
	E1T, E2T            string
	E1U, E2U            string
	E1V, E2V            string
	E3T0, E3TPS         string
	MBathy              string
	HDepT               string // optional
	Lat, Lon            string // optional
	LatU, LonU          string // optional
	LatV, LonV          string // optional
	Depth               string // optional
}

// DefaultMeshVars holds the variable names used in NEMO ORCA mesh mask files.
var DefaultMeshVars = MeshVars{
	TMask: "tmask", UMask: "umask", VMask: "vmask",
	E1T: "e1t", E2T: "e2t",
	E1U: "e1u", E2U: "e2u",
	E1V: "e1v", E2V: "e2v",
	E3T0: "e3t_0", E3TPS: "e3t_ps",
	MBathy: "mbathy",
	HDepT:  "hdept",
	Lat:    "nav_lat", Lon: "nav_lon",
	LatU: "gphiu", LonU: "glamu",
	LatV: "gphiv", LonV: "glamv",
	Depth: "nav_lev",
}

// BasinSource locates a sub-basin mask variable in a NetCDF file.
type BasinSource struct {
	File string // path to the file
	Var  string // variable name, e.g. "tmaskatl"
}

// LoadGrid reads an ORCA grid from the mesh mask file at meshPath and the
// sub-basin masks in basins, keyed by basin short name. Leading dimensions
// of length one, such as the time axis stored in mesh mask files, are
// removed.
func LoadGrid(meshPath string, basins map[string]BasinSource, vars MeshVars) (*Grid, error) {
	ds, err := OpenDataset(meshPath)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	read := func(name string, ndims int, required bool) (*sparse.DenseArray, error) {
		if name == "" {
			if required {
				return nil, fmt.Errorf("omet: no variable name given for required mesh variable")
			}
			return nil, nil
		}
		a, err := ds.Read(name, -1)
		if err != nil {
			if required {
				return nil, fmt.Errorf("omet: loading grid from %s: %v", meshPath, err)
			}
			return nil, nil
		}
		return squeeze(name, a, ndims)
	}

	g := new(Grid)
	if g.TMask, err = read(vars.TMask, 3, true); err != nil {
		return nil, err
	}
	g.Nz, g.Ny, g.Nx = g.TMask.Shape[0], g.TMask.Shape[1], g.TMask.Shape[2]

	for _, v := range []struct {
		dst      **sparse.DenseArray
		name     string
		ndims    int
		required bool
	}{
		{&g.VMask, vars.VMask, 3, true},
		{&g.UMask, vars.UMask, 3, false},
		{&g.E1T, vars.E1T, 2, true},
		{&g.E2T, vars.E2T, 2, true},
		{&g.E1U, vars.E1U, 2, false},
		{&g.E2U, vars.E2U, 2, false},
		{&g.E1V, vars.E1V, 2, true},
		{&g.E2V, vars.E2V, 2, false},
		{&g.E3TPS, vars.E3TPS, 2, true},
		{&g.MBathy, vars.MBathy, 2, true},
		{&g.HDepT, vars.HDepT, 2, false},
		{&g.Lat, vars.Lat, 2, false},
		{&g.Lon, vars.Lon, 2, false},
		{&g.LatU, vars.LatU, 2, false},
		{&g.LonU, vars.LonU, 2, false},
		{&g.LatV, vars.LatV, 2, false},
		{&g.LonV, vars.LonV, 2, false},
	} {
		if *v.dst, err = read(v.name, v.ndims, v.required); err != nil {
			return nil, err
		}
	}
	e3, err := read(vars.E3T0, 1, true)
	if err != nil {
		return nil, err
	}
	g.E3T0 = e3.Elements
	depth, err := read(vars.Depth, 1, false)
	if err != nil {
		return nil, err
	}
	if depth != nil {
		g.Depth = depth.Elements
	}

	if len(basins) > 0 {
		g.Basins = make(map[string]*sparse.DenseArray, len(basins))
	}
	for name, src := range basins {
		b, err := loadBasin(src)
		if err != nil {
			return nil, fmt.Errorf("omet: loading %s basin mask: %v", name, err)
		}
		g.Basins[name] = b
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func loadBasin(src BasinSource) (*sparse.DenseArray, error) {
	ds, err := OpenDataset(src.File)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	b, err := ds.Read(src.Var, -1)
	if err != nil {
		return nil, err
	}
	return squeeze(src.Var, b, 2)
}

// squeeze removes leading dimensions of length one from a until it has
// ndims dimensions.
func squeeze(name string, a *sparse.DenseArray, ndims int) (*sparse.DenseArray, error) {
	shape := a.Shape
	for len(shape) > ndims && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != ndims {
		return nil, &ShapeMismatchError{Name: name + " dimensions", Expected: make([]int, ndims), Got: a.Shape}
	}
	if len(shape) == len(a.Shape) {
		return a, nil
	}
	out := sparse.ZerosDense(shape...)
	out.Elements = a.Elements
	return out, nil
}

// ExpandTemplate replaces the [DATE] wild card in fileTemplate with date,
// formatted according to dateFormat. If the result contains glob
// characters it must match exactly one file.
func ExpandTemplate(fileTemplate, dateFormat string, date time.Time) (string, error) {
	file := strings.Replace(fileTemplate, "[DATE]", date.Format(dateFormat), -1)
	if !strings.ContainsAny(file, "*?[") {
		return file, nil
	}
	matches, err := filepath.Glob(file)
	if err != nil {
		return "", fmt.Errorf("omet: file pattern %s: %v", file, err)
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("omet: file pattern %s matches %d files; it should match exactly one", file, len(matches))
	}
	return matches[0], nil
}

// NextDataNCF returns a function that sequentially retrieves the monthly
// fields of variable varName for every month in cal from a series of
// NetCDF files with the given file name template. Each file holds
// recordsPerFile consecutive months: 12 for yearly files and 1 for monthly
// files. [DATE] in fileTemplate is replaced by the date of the first month
// in each file, formatted as dateFormat.
//
// Fill values and cells where mask is zero are set to zero. mask may be nil.
func NextDataNCF(fileTemplate, dateFormat, varName string, cal Calendar, recordsPerFile int, mask *sparse.DenseArray, log logrus.FieldLogger) NextData {
	if log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		log = l
	}
	var (
		step int
		ds   Dataset
		file string
	)
	return func() (*sparse.DenseArray, error) {
		if recordsPerFile < 1 {
			return nil, fmt.Errorf("omet: records per file must be positive but is %d", recordsPerFile)
		}
		if step >= cal.Steps() {
			if ds != nil {
				ds.Close()
				ds = nil
			}
			return nil, io.EOF
		}
		record := step % recordsPerFile
		if ds == nil {
			year, month := cal.Date(step - record)
			var err error
			file, err = ExpandTemplate(fileTemplate, dateFormat, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
			if err != nil {
				return nil, err
			}
			if ds, err = OpenDataset(file); err != nil {
				return nil, err
			}
		}
		data, err := ds.Read(varName, record)
		if err != nil {
			ds.Close()
			ds = nil
			return nil, err
		}
		if err := ZeroFill(data, mask, ds.FillValues(varName)...); err != nil {
			ds.Close()
			ds = nil
			return nil, fmt.Errorf("omet: %s in %s: %v", varName, file, err)
		}
		step++
		if record == recordsPerFile-1 || step == cal.Steps() {
			log.WithFields(logrus.Fields{"variable": varName, "file": file, "records": record + 1}).Info("omet: finished reading file")
			ds.Close()
			ds = nil
		}
		return data, nil
	}
}
