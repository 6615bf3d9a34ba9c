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
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/ctessum/cdf"
)

type testVar struct {
	dims  []string
	data  interface{} // []float32, []int16 or []uint8
	attrs map[string]interface{}
}

// writeTestNCF writes a classic NetCDF file. A dimension with length
// zero is the record dimension.
func writeTestNCF(t *testing.T, path string, dims []string, lengths []int, vars map[string]testVar) {
	t.Helper()
	h := cdf.NewHeader(dims, lengths)
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := vars[name]
		switch v.data.(type) {
		case []float32:
			h.AddVariable(name, v.dims, []float32{0})
		case []int16:
			h.AddVariable(name, v.dims, []int16{0})
		case []uint8:
			h.AddVariable(name, v.dims, []uint8{0})
		default:
			t.Fatalf("unsupported type %T", v.data)
		}
		for a, val := range v.attrs {
			h.AddAttribute(name, a, val)
		}
	}
	h.Define()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if _, err := ff.Writer(name, nil, nil).Write(vars[name].data); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatal(err)
	}
}

func float32s(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// writeTestMesh writes a 3-level mesh mask with 2 rows and 3 columns where
// the last column is land, and an Atlantic basin mask covering the
// first column.
func writeTestMesh(t *testing.T, dir string) (mesh string, basins map[string]BasinSource) {
	const nz, ny, nx = 3, 2, 3
	mask := make([]uint8, nz*ny*nx)
	for i := range mask {
		if i%nx != nx-1 {
			mask[i] = 1
		}
	}
	mbathy := []int16{3, 2, 0, 3, 3, 0}
	e3ps := []float32{30, 12, 30, 25, 30, 30}
	d3 := []string{"t", "z", "y", "x"}
	d2 := []string{"t", "y", "x"}
	mesh = filepath.Join(dir, "mesh_mask.nc")
	writeTestNCF(t, mesh, []string{"t", "z", "y", "x"}, []int{1, nz, ny, nx}, map[string]testVar{
		"tmask":   {dims: d3, data: mask},
		"umask":   {dims: d3, data: mask},
		"vmask":   {dims: d3, data: mask},
		"e1t":     {dims: d2, data: float32s(ny*nx, 1e5)},
		"e2t":     {dims: d2, data: float32s(ny*nx, 1e5)},
		"e1u":     {dims: d2, data: float32s(ny*nx, 1e5)},
		"e2u":     {dims: d2, data: float32s(ny*nx, 1e5)},
		"e1v":     {dims: d2, data: float32s(ny*nx, 1e5)},
		"e2v":     {dims: d2, data: float32s(ny*nx, 1e5)},
		"e3t_0":   {dims: []string{"t", "z"}, data: []float32{10, 20, 30}},
		"e3t_ps":  {dims: d2, data: e3ps},
		"mbathy":  {dims: d2, data: mbathy},
		"hdept":   {dims: d2, data: []float32{60, 30, 0, 55, 60, 0}},
		"nav_lat": {dims: []string{"y", "x"}, data: []float32{-1, -1, -1, 1, 1, 1}},
		"nav_lon": {dims: []string{"y", "x"}, data: []float32{0, 1, 2, 0, 1, 2}},
		"nav_lev": {dims: []string{"z"}, data: []float32{5, 20, 45}},
		"gphiv":   {dims: d2, data: []float32{-0.5, -0.5, -0.5, 1.5, 1.5, 1.5}},
		"glamv":   {dims: d2, data: []float32{0, 1, 2, 0, 1, 2}},
	})
	basin := filepath.Join(dir, "basinmask.nc")
	writeTestNCF(t, basin, []string{"y", "x"}, []int{ny, nx}, map[string]testVar{
		"tmaskatl": {dims: []string{"y", "x"}, data: []float32{1, 0, 0, 1, 0, 0}},
	})
	return mesh, map[string]BasinSource{"atl": {File: basin, Var: "tmaskatl"}}
}

func TestLoadGrid(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	mesh, basins := writeTestMesh(t, dir)

	g, err := LoadGrid(mesh, basins, DefaultMeshVars)
	if err != nil {
		t.Fatal(err)
	}
	if g.Nz != 3 || g.Ny != 2 || g.Nx != 3 {
		t.Fatalf("grid is %dx%dx%d", g.Nz, g.Ny, g.Nx)
	}
	if !sameShape(g.TMask.Shape, []int{3, 2, 3}) || !sameShape(g.E1T.Shape, []int{2, 3}) {
		t.Errorf("shapes: %v %v", g.TMask.Shape, g.E1T.Shape)
	}
	if len(g.E3T0) != 3 || g.E3T0[2] != 30 || len(g.Depth) != 3 {
		t.Errorf("e3t_0 = %v, depth = %v", g.E3T0, g.Depth)
	}
	if g.MBathy.Get(0, 1) != 2 || g.TMask.Get(0, 0, 2) != 0 {
		t.Error("wrong mbathy or tmask values")
	}
	if b := g.Basins["atl"]; b == nil || b.Get(1, 0) != 1 || b.Get(1, 1) != 0 {
		t.Errorf("atl basin = %v", b)
	}
	if g.LatV == nil || g.LatV.Get(1, 2) != 1.5 || g.LonV.Get(0, 1) != 1 {
		t.Errorf("V-point coordinates = %v, %v", g.LatV, g.LonV)
	}
	if g.LatU != nil || g.LonU != nil {
		t.Error("U-point coordinates are not in the mesh file")
	}

	in, err := NewIntegrator(g)
	if err != nil {
		t.Fatal(err)
	}
	// Column (0,1) has its bottom at level 1 with a 12 m partial cell.
	if c := in.Correction().Get(1, 0, 1); c != 8 {
		t.Errorf("correction = %g; want 8", c)
	}

	vars := DefaultMeshVars
	vars.TMask = "missing"
	if _, err := LoadGrid(mesh, nil, vars); err == nil {
		t.Error("a missing required variable should cause an error")
	}
	vars = DefaultMeshVars
	vars.HDepT = "missing"
	g, err = LoadGrid(mesh, nil, vars)
	if err != nil {
		t.Fatal(err)
	}
	if g.HDepT != nil {
		t.Error("missing optional variable should be nil")
	}
}

func TestOpenDataset_notNetCDF(t *testing.T) {
	f, err := ioutil.TempFile("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	fmt.Fprint(f, "this is not a netcdf file")
	f.Close()
	if _, err := OpenDataset(f.Name()); err == nil {
		t.Error("opening a text file should fail")
	}
}

func TestDatasetRead_packed(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "packed.nc")
	writeTestNCF(t, path, []string{"time", "x"}, []int{0, 3}, map[string]testVar{
		"thetao": {
			dims: []string{"time", "x"},
			data: []int16{100, 200, -32767, 300, 400, 500},
			attrs: map[string]interface{}{
				"scale_factor": []float32{0.01},
				"add_offset":   []float32{10},
				"_FillValue":   []int16{-32767},
			},
		},
	})
	ds, err := OpenDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	l, err := ds.Lengths("thetao")
	if err != nil {
		t.Fatal(err)
	}
	if !sameShape(l, []int{2, 3}) {
		t.Errorf("lengths = %v", l)
	}
	r, err := ds.Read("thetao", 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{13, 14, 15}
	for i, w := range want {
		if different(r.Elements[i], w, 1e-6) {
			t.Errorf("record 1 element %d: %g != %g", i, r.Elements[i], w)
		}
	}
	r, err = ds.Read("thetao", 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Elements[2] != -32767 {
		t.Errorf("fill value was unpacked to %g", r.Elements[2])
	}
	if f := ds.FillValues("thetao"); len(f) != 1 || f[0] != -32767 {
		t.Errorf("fill values = %v", f)
	}
	if _, err := ds.Read("thetao", 2); err == nil {
		t.Error("reading past the last record should fail")
	}
}

func TestNextDataNCF_yearly(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	const n = 4 // cells per record
	for _, year := range []int{2000, 2001} {
		data := make([]float32, 12*n)
		for m := 0; m < 12; m++ {
			for c := 0; c < n; c++ {
				data[m*n+c] = float32(year - 2000 + m)
			}
			data[m*n+3] = 1e20
		}
		writeTestNCF(t, filepath.Join(dir, fmt.Sprintf("thetao_oras4_1m_%d_grid_T.nc", year)),
			[]string{"time_counter", "z", "y", "x"}, []int{0, 1, 2, 2}, map[string]testVar{
				"thetao": {
					dims:  []string{"time_counter", "z", "y", "x"},
					data:  data,
					attrs: map[string]interface{}{"_FillValue": []float32{1e20}},
				},
			})
	}
	mask := filled(1, 1, 2, 2)
	mask.Set(0, 0, 0, 1)
	cal := Calendar{StartYear: 2000, EndYear: 2001}
	next := NextDataNCF(filepath.Join(dir, "thetao_oras4_1m_[DATE]_grid_T.nc"), "2006", "thetao", cal, 12, mask, nil)
	for step := 0; step < cal.Steps(); step++ {
		d, err := next()
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if !sameShape(d.Shape, []int{1, 2, 2}) {
			t.Fatalf("shape = %v", d.Shape)
		}
		want := float64(step/12 + step%12)
		if d.Elements[0] != want || d.Elements[2] != want {
			t.Errorf("step %d: %v; want %g", step, d.Elements, want)
		}
		if d.Elements[1] != 0 || d.Elements[3] != 0 {
			t.Errorf("step %d: land or fill not zeroed: %v", step, d.Elements)
		}
	}
	if _, err := next(); err != io.EOF {
		t.Errorf("err = %v; want EOF", err)
	}
}

func TestNextDataNCF_reopenAfterError(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "thetao_2000.nc")
	write := func(months int) {
		data := make([]float32, months)
		for m := range data {
			data[m] = float32(m)
		}
		writeTestNCF(t, path, []string{"time_counter", "y", "x"}, []int{0, 1, 1},
			map[string]testVar{"thetao": {dims: []string{"time_counter", "y", "x"}, data: data}})
	}
	write(6) // an incomplete year
	cal := Calendar{StartYear: 2000, EndYear: 2000}
	next := NextDataNCF(filepath.Join(dir, "thetao_[DATE].nc"), "2006", "thetao", cal, 12, nil, nil)
	for m := 0; m < 6; m++ {
		if _, err := next(); err != nil {
			t.Fatalf("month %d: %v", m, err)
		}
	}
	if _, err := next(); err == nil {
		t.Fatal("a missing record should cause an error")
	}

	// The failed file is closed, so the completed file is opened again.
	write(12)
	d, err := next()
	if err != nil {
		t.Fatal(err)
	}
	if d.Elements[0] != 6 {
		t.Errorf("month 7 = %v; want 6", d.Elements)
	}
}

func TestNextDataNCF_monthlyGlob(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	for m := 1; m <= 12; m++ {
		name := fmt.Sprintf("GLORYS2V3_ORCA025_%d%02d15_R20130808_gridT.nc", 1993, m)
		writeTestNCF(t, filepath.Join(dir, name), []string{"time_counter", "y", "x"}, []int{0, 1, 2},
			map[string]testVar{
				"votemper": {dims: []string{"time_counter", "y", "x"}, data: float32s(2, float32(m))},
			})
	}
	cal := Calendar{StartYear: 1993, EndYear: 1993}
	next := NextDataNCF(filepath.Join(dir, "GLORYS2V3_ORCA025_[DATE]15_*_gridT.nc"), "200601", "votemper", cal, 1, nil, nil)
	for m := 1; m <= 12; m++ {
		d, err := next()
		if err != nil {
			t.Fatalf("month %d: %v", m, err)
		}
		if d.Elements[0] != float64(m) {
			t.Errorf("month %d: %v", m, d.Elements)
		}
	}

	missing := NextDataNCF(filepath.Join(dir, "missing_[DATE].nc"), "200601", "votemper", cal, 1, nil, nil)
	if _, err := missing(); err == nil {
		t.Error("a missing file should cause an error")
	}
}

func TestExpandTemplate(t *testing.T) {
	date := time.Date(1979, time.March, 1, 0, 0, 0, 0, time.UTC)
	f, err := ExpandTemplate("/data/thetao_[DATE].nc", "200601", date)
	if err != nil {
		t.Fatal(err)
	}
	if f != "/data/thetao_197903.nc" {
		t.Errorf("file = %s", f)
	}
	if _, err := ExpandTemplate("/nonexistent/*_[DATE].nc", "2006", date); err == nil {
		t.Error("a pattern matching no files should cause an error")
	}
}

func TestLoadGrid_badBasin(t *testing.T) {
	dir, err := ioutil.TempDir("", "omet")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	mesh, _ := writeTestMesh(t, dir)
	basin := filepath.Join(dir, "bad_basin.nc")
	writeTestNCF(t, basin, []string{"y", "x"}, []int{3, 2}, map[string]testVar{
		"tmaskatl": {dims: []string{"y", "x"}, data: float32s(6, 1)},
	})
	_, err = LoadGrid(mesh, map[string]BasinSource{"atl": {File: basin, Var: "tmaskatl"}}, DefaultMeshVars)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("err = %v; want shape mismatch", err)
	}
}
