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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// dimOrder is the order in which the standard dimensions are
// written to output files.
var dimOrder = map[string]int{"year": 0, "month": 1, "lev": 2, "j": 3, "i": 4}

// Output holds processed diagnostics and their coordinates.
type Output struct {
	// Dataset is the name of the reanalysis product the
	// diagnostics were calculated from.
	Dataset string

	// Data holds the output variables, keyed by variable name.
	Data map[string]Variable
}

// AddVariable adds data for a new variable to o.
func (o *Output) AddVariable(name string, dims []string, description, units string, data *sparse.DenseArray) {
	if o.Data == nil {
		o.Data = make(map[string]Variable)
	}
	o.Data[name] = Variable{
		Dims:        dims,
		Description: description,
		Units:       units,
		Data:        data,
	}
}

// Names returns the variable names in o in sorted order.
func (o *Output) Names() []string {
	names := make([]string, 0, len(o.Data))
	for n := range o.Data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddCoordinates adds the year, month, level depth and horizontal
// coordinate variables for grid g and calendar cal to o.
func (o *Output) AddCoordinates(g *Grid, cal Calendar) {
	years := sparse.ZerosDense(cal.Years())
	for i := range years.Elements {
		years.Elements[i] = float64(cal.StartYear + i)
	}
	o.AddVariable("year", []string{"year"}, "year", "year", years)
	months := sparse.ZerosDense(MonthsPerYear)
	for i := range months.Elements {
		months.Elements[i] = float64(i + 1)
	}
	o.AddVariable("month", []string{"month"}, "month of the year", "month", months)
	if g.Depth != nil {
		lev := sparse.ZerosDense(len(g.Depth))
		copy(lev.Elements, g.Depth)
		o.AddVariable("lev", []string{"lev"}, "depth", "m", lev)
	}
	if g.Lat != nil {
		o.AddVariable("gphit", []string{"j", "i"}, "Tgrid latitude", "degrees_north", g.Lat.Copy())
		aux := sparse.ZerosDense(g.Ny)
		for j := range aux.Elements {
			// The maximum latitude along each row labels the zonal integrals.
			row := g.Lat.Elements[j*g.Nx : (j+1)*g.Nx]
			aux.Elements[j] = floats.Max(row)
		}
		o.AddVariable("latitude_aux", []string{"j"}, "auxillary latitude", "degrees_north", aux)
	}
	for _, c := range []struct {
		name, description, units string
		a                        *sparse.DenseArray
	}{
		{"glamt", "Tgrid longitude", "degrees_east", g.Lon},
		{"gphiu", "Ugrid latitude", "degrees_north", g.LatU},
		{"glamu", "Ugrid longitude", "degrees_east", g.LonU},
		{"gphiv", "Vgrid latitude", "degrees_north", g.LatV},
		{"glamv", "Vgrid longitude", "degrees_east", g.LonV},
	} {
		if c.a != nil {
			o.AddVariable(c.name, []string{"j", "i"}, c.description, c.units, c.a.Copy())
		}
	}
}

// dimensions returns the names and lengths of all dimensions used by
// the variables in o.
func (o *Output) dimensions() ([]string, []int, error) {
	lengths := make(map[string]int)
	for _, name := range o.Names() {
		v := o.Data[name]
		if len(v.Dims) != len(v.Data.Shape) {
			return nil, nil, fmt.Errorf("omet: variable %s has dimensions %v but shape %v", name, v.Dims, v.Data.Shape)
		}
		for i, d := range v.Dims {
			if l, ok := lengths[d]; ok && l != v.Data.Shape[i] {
				return nil, nil, &ShapeMismatchError{Name: name + " dimension " + d, Expected: []int{l}, Got: []int{v.Data.Shape[i]}}
			}
			lengths[d] = v.Data.Shape[i]
		}
	}
	dims := make([]string, 0, len(lengths))
	for d := range lengths {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(a, b int) bool {
		oa, aok := dimOrder[dims[a]]
		ob, bok := dimOrder[dims[b]]
		switch {
		case aok && bok:
			return oa < ob
		case aok != bok:
			return aok
		}
		return dims[a] < dims[b]
	})
	l := make([]int, len(dims))
	for i, d := range dims {
		l[i] = lengths[d]
	}
	return dims, l, nil
}

// Write writes o to netcdf file w.
func (o *Output) Write(w *os.File) error {
	dims, lengths, err := o.dimensions()
	if err != nil {
		return err
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "comment", "Ocean heat content and meridional transport diagnostics")
	h.AddAttribute("", "data_version", DataVersion)
	if o.Dataset != "" {
		h.AddAttribute("", "dataset", o.Dataset)
	}

	// Sort the names so they write in the same order every time.
	names := o.Names()
	for _, name := range names {
		v := o.Data[name]
		h.AddVariable(name, v.Dims, []float64{0})
		if v.Description != "" {
			h.AddAttribute(name, "description", v.Description)
			h.AddAttribute(name, "long_name", v.Description)
		}
		if v.Units != "" {
			h.AddAttribute(name, "units", v.Units)
		}
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range names {
		if err = writeNCF(f, name, o.Data[name].Data); err != nil {
			return fmt.Errorf("omet: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	w := f.Writer(Var, nil, nil)
	_, err := w.Write(data.Elements)
	return err
}

// LoadOutput loads diagnostics from a netcdf file written by Output.Write.
func LoadOutput(rw cdf.ReaderWriterAt) (*Output, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("omet.LoadOutput: %v", err)
	}
	dataVersion, _ := f.Header.GetAttribute("", "data_version").(string)
	if dataVersion != DataVersion {
		return nil, fmt.Errorf("omet.LoadOutput: data version %q is incompatible "+
			"with the required version %s", dataVersion, DataVersion)
	}
	o := new(Output)
	o.Dataset, _ = f.Header.GetAttribute("", "dataset").(string)
	for _, name := range f.Header.Variables() {
		var v Variable
		v.Description, _ = f.Header.GetAttribute(name, "description").(string)
		v.Units, _ = f.Header.GetAttribute(name, "units").(string)
		v.Dims = f.Header.Dimensions(name)
		v.Data, err = readCDFVar(f, name, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("omet.LoadOutput: %v", err)
		}
		o.AddVariable(name, v.Dims, v.Description, v.Units, v.Data)
	}
	return o, nil
}
