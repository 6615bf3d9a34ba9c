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
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

func TestOutputWriteLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	g := testGrid()
	g.Lat = sparse.ZerosDense(2, 3)
	copy(g.Lat.Elements, []float64{-10, -11, -9, 20, 21, 19})
	g.Lon = ramp(2, 3)
	g.LatV = ramp(2, 3)
	g.LonV = ramp(2, 3)
	in, err := NewIntegrator(g)
	if err != nil {
		t.Fatal(err)
	}
	cal := Calendar{StartYear: 1990, EndYear: 1990}
	o, err := Run(cal, 2, nil, func(step int, fields []*sparse.DenseArray) (Diagnostics, error) {
		return in.HeatContent(fields[0])
	}, stepData(12, 3, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	o.Dataset = "ORAS4"
	o.AddCoordinates(g, cal)

	aux := o.Data["latitude_aux"].Data
	if aux.Elements[0] != -9 || aux.Elements[1] != 21 {
		t.Errorf("latitude_aux = %v", aux.Elements)
	}
	for _, name := range []string{"gphit", "glamt", "gphiv", "glamv"} {
		if v, ok := o.Data[name]; !ok || !reflect.DeepEqual(v.Dims, []string{"j", "i"}) {
			t.Errorf("coordinate %s missing or has dims %v", name, v.Dims)
		}
	}
	if _, ok := o.Data["gphiu"]; ok {
		t.Error("gphiu written without U-point latitudes")
	}

	path := filepath.Join(dir, "out.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Write(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	o2, err := LoadOutput(f)
	if err != nil {
		t.Fatal(err)
	}
	if o2.Dataset != "ORAS4" {
		t.Errorf("dataset = %q", o2.Dataset)
	}
	if !reflect.DeepEqual(o.Names(), o2.Names()) {
		t.Fatalf("names: %v != %v", o.Names(), o2.Names())
	}
	for _, name := range o.Names() {
		v, v2 := o.Data[name], o2.Data[name]
		if !reflect.DeepEqual(v.Dims, v2.Dims) || v.Units != v2.Units || v.Description != v2.Description {
			t.Errorf("%s: metadata %v %q %q != %v %q %q", name, v.Dims, v.Units, v.Description,
				v2.Dims, v2.Units, v2.Description)
		}
		compareArrays(t, name, v.Data, v2.Data, 0)
	}
}

func TestOutputWrite_inconsistentDims(t *testing.T) {
	o := new(Output)
	o.AddVariable("a", []string{"j"}, "", "", sparse.ZerosDense(3))
	o.AddVariable("b", []string{"j"}, "", "", sparse.ZerosDense(4))
	f, err := ioutil.TempFile("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if err := o.Write(f); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("err = %v; want shape mismatch", err)
	}
}

func TestOutputDimensions(t *testing.T) {
	o := new(Output)
	o.AddVariable("a", []string{"year", "month", "j", "i"}, "", "", sparse.ZerosDense(1, 12, 2, 3))
	o.AddVariable("b", []string{"bnd", "lev"}, "", "", sparse.ZerosDense(2, 4))
	dims, lengths, err := o.dimensions()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dims, []string{"year", "month", "lev", "j", "i", "bnd"}) {
		t.Errorf("dims = %v", dims)
	}
	if !reflect.DeepEqual(lengths, []int{1, 12, 4, 2, 3, 2}) {
		t.Errorf("lengths = %v", lengths)
	}
}
