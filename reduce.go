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
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// ZonalSum sums a [nz, ny, nx] array along the longitude axis,
// returning an array of shape [nz, ny].
func ZonalSum(full *sparse.DenseArray) *sparse.DenseArray {
	nz, ny, nx := full.Shape[0], full.Shape[1], full.Shape[2]
	out := sparse.ZerosDense(nz, ny)
	for r := range out.Elements {
		out.Elements[r] = floats.Sum(full.Elements[r*nx : (r+1)*nx])
	}
	return out
}

// VerticalSum sums a [nz, ny, nx] array over all levels,
// returning an array of shape [ny, nx].
func VerticalSum(full *sparse.DenseArray) *sparse.DenseArray {
	return BandSum(full, LayerBand{Start: 0, End: full.Shape[0]})
}

// BandSum sums a [nz, ny, nx] array over the levels in band,
// returning an array of shape [ny, nx].
func BandSum(full *sparse.DenseArray, band LayerBand) *sparse.DenseArray {
	ny, nx := full.Shape[1], full.Shape[2]
	plane := ny * nx
	out := sparse.ZerosDense(ny, nx)
	for k := band.Start; k < band.End; k++ {
		floats.Add(out.Elements, full.Elements[k*plane:(k+1)*plane])
	}
	return out
}

// RestrictToBasin returns a copy of the [nz, ny, nx] array full multiplied
// by the [ny, nx] basin mask. full itself is not modified, so the global
// and basin results are both derived from the same values.
func RestrictToBasin(full, basin *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(full.Shape) != 3 {
		return nil, &ShapeMismatchError{Name: "field", Expected: []int{-1, -1, -1}, Got: full.Shape}
	}
	ny, nx := full.Shape[1], full.Shape[2]
	if err := checkShape("basin mask", basin, ny, nx); err != nil {
		return nil, err
	}
	out := full.Copy()
	plane := ny * nx
	for k := 0; k < full.Shape[0]; k++ {
		floats.Mul(out.Elements[k*plane:(k+1)*plane], basin.Elements)
	}
	return out, nil
}
