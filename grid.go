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
	"sort"

	"github.com/ctessum/sparse"
)

// GridPoint is a location on the staggered ORCA grid.
type GridPoint int

// The staggered grid points.
const (
	TPoint GridPoint = iota // tracer
	UPoint                  // zonal velocity
	VPoint                  // meridional velocity
)

func (p GridPoint) String() string {
	switch p {
	case TPoint:
		return "T"
	case UPoint:
		return "U"
	case VPoint:
		return "V"
	}
	return fmt.Sprintf("GridPoint(%d)", int(p))
}

// Grid holds the static geometry of an ORCA ocean grid. Horizontal
// arrays have shape [Ny, Nx] and masks have shape [Nz, Ny, Nx].
// A Grid must not be modified once it has been passed to NewIntegrator.
type Grid struct {
	Nz, Ny, Nx int

	// Horizontal cell widths [m] at T, U and V points.
	E1T, E2T, E1U, E2U, E1V, E2V *sparse.DenseArray

	// E3T0 is the nominal thickness of each level [m].
	E3T0 []float64

	// E3TPS is the thickness of the partial bottom cell [m].
	E3TPS *sparse.DenseArray

	// MBathy is the 1-based index of the deepest wet level,
	// with 0 for land columns.
	MBathy *sparse.DenseArray

	// HDepT is the depth of the ocean floor at T points [m].
	// It is only needed for vertical means.
	HDepT *sparse.DenseArray

	// Land-sea masks (1 = sea, 0 = land).
	TMask, UMask, VMask *sparse.DenseArray

	// Basins holds sub-basin masks such as "atl" keyed by short name.
	Basins map[string]*sparse.DenseArray

	// Depth is the nominal depth of each level [m]; optional.
	Depth []float64

	// Lat and Lon are the T-point coordinates; optional.
	Lat, Lon *sparse.DenseArray

	// U- and V-point coordinates; optional.
	LatU, LonU, LatV, LonV *sparse.DenseArray
}

// Validate checks that every array in g has the extents given by
// g.Nz, g.Ny and g.Nx. Optional arrays are only checked when present.
func (g *Grid) Validate() error {
	if g.Nz <= 0 || g.Ny <= 0 || g.Nx <= 0 {
		return &ShapeMismatchError{Name: "grid dimensions", Expected: []int{1, 1, 1}, Got: []int{g.Nz, g.Ny, g.Nx}}
	}
	if len(g.E3T0) != g.Nz {
		return &ShapeMismatchError{Name: "e3t_0", Expected: []int{g.Nz}, Got: []int{len(g.E3T0)}}
	}
	if g.Depth != nil && len(g.Depth) != g.Nz {
		return &ShapeMismatchError{Name: "depth", Expected: []int{g.Nz}, Got: []int{len(g.Depth)}}
	}
	required2d := []struct {
		name string
		a    *sparse.DenseArray
	}{
		{"e1t", g.E1T}, {"e2t", g.E2T}, {"e1v", g.E1V},
		{"e3t_ps", g.E3TPS}, {"mbathy", g.MBathy},
	}
	for _, v := range required2d {
		if err := checkShape(v.name, v.a, g.Ny, g.Nx); err != nil {
			return err
		}
	}
	optional2d := []struct {
		name string
		a    *sparse.DenseArray
	}{
		{"e1u", g.E1U}, {"e2u", g.E2U}, {"e2v", g.E2V},
		{"hdept", g.HDepT}, {"nav_lat", g.Lat}, {"nav_lon", g.Lon},
		{"gphiu", g.LatU}, {"glamu", g.LonU}, {"gphiv", g.LatV}, {"glamv", g.LonV},
	}
	for _, v := range optional2d {
		if v.a == nil {
			continue
		}
		if err := checkShape(v.name, v.a, g.Ny, g.Nx); err != nil {
			return err
		}
	}
	if err := checkShape("tmask", g.TMask, g.Nz, g.Ny, g.Nx); err != nil {
		return err
	}
	if err := checkShape("vmask", g.VMask, g.Nz, g.Ny, g.Nx); err != nil {
		return err
	}
	if g.UMask != nil {
		if err := checkShape("umask", g.UMask, g.Nz, g.Ny, g.Nx); err != nil {
			return err
		}
	}
	for _, name := range g.BasinNames() {
		if name == "glo" || name == "" {
			return fmt.Errorf("omet: %q is not a valid basin name", name)
		}
		if err := checkShape("basin mask "+name, g.Basins[name], g.Ny, g.Nx); err != nil {
			return err
		}
	}
	return nil
}

// Mask returns the land-sea mask at grid point p.
func (g *Grid) Mask(p GridPoint) (*sparse.DenseArray, error) {
	var m *sparse.DenseArray
	switch p {
	case TPoint:
		m = g.TMask
	case UPoint:
		m = g.UMask
	case VPoint:
		m = g.VMask
	}
	if m == nil {
		return nil, fmt.Errorf("omet: grid has no %v-point mask", p)
	}
	return m, nil
}

// E1 returns the zonal cell widths at grid point p.
func (g *Grid) E1(p GridPoint) (*sparse.DenseArray, error) {
	var e *sparse.DenseArray
	switch p {
	case TPoint:
		e = g.E1T
	case UPoint:
		e = g.E1U
	case VPoint:
		e = g.E1V
	}
	if e == nil {
		return nil, fmt.Errorf("omet: grid has no %v-point zonal cell widths", p)
	}
	return e, nil
}

// E2 returns the meridional cell widths at grid point p.
func (g *Grid) E2(p GridPoint) (*sparse.DenseArray, error) {
	var e *sparse.DenseArray
	switch p {
	case TPoint:
		e = g.E2T
	case UPoint:
		e = g.E2U
	case VPoint:
		e = g.E2V
	}
	if e == nil {
		return nil, fmt.Errorf("omet: grid has no %v-point meridional cell widths", p)
	}
	return e, nil
}

// BasinNames returns the names of the sub-basin masks in sorted order.
func (g *Grid) BasinNames() []string {
	names := make([]string, 0, len(g.Basins))
	for n := range g.Basins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UniformGrid returns an all-sea grid with constant horizontal cell widths
// and the given level thicknesses. The bottom cells are full cells,
// so the partial-cell correction is zero everywhere.
func UniformGrid(ny, nx int, e1, e2 float64, e3 []float64) *Grid {
	nz := len(e3)
	fill := func(v float64, dims ...int) *sparse.DenseArray {
		a := sparse.ZerosDense(dims...)
		for i := range a.Elements {
			a.Elements[i] = v
		}
		return a
	}
	g := &Grid{
		Nz: nz, Ny: ny, Nx: nx,
		E1T: fill(e1, ny, nx), E2T: fill(e2, ny, nx),
		E1U: fill(e1, ny, nx), E2U: fill(e2, ny, nx),
		E1V: fill(e1, ny, nx), E2V: fill(e2, ny, nx),
		E3T0:   append([]float64(nil), e3...),
		MBathy: fill(float64(nz), ny, nx),
		TMask:  fill(1, nz, ny, nx),
		UMask:  fill(1, nz, ny, nx),
		VMask:  fill(1, nz, ny, nx),
		Depth:  make([]float64, nz),
	}
	var top float64
	for k, dz := range e3 {
		g.Depth[k] = top + dz/2
		top += dz
	}
	g.E3TPS = fill(e3[nz-1], ny, nx)
	g.HDepT = fill(top, ny, nx)
	return g
}
