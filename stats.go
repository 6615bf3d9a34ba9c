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

import "github.com/ctessum/sparse"

// VerticalMean calculates the thickness-weighted vertical mean of a
// [nz, ny, nx] field:
//
//	sum(field * (e3[level] - correction) * mask) / hdept
//
// The result has shape [ny, nx] and is zero where hdept is zero.
func VerticalMean(field *sparse.DenseArray, e3 []float64, correction, mask, hdept *sparse.DenseArray, bound float64) (*sparse.DenseArray, error) {
	nz, ny, nx, err := checkIntegrationShapes(field, e3, correction, mask)
	if err != nil {
		return nil, err
	}
	if err := checkShape("hdept", hdept, ny, nx); err != nil {
		return nil, err
	}
	if err := CheckFill(field, mask, bound); err != nil {
		return nil, err
	}
	plane := ny * nx
	out := sparse.ZerosDense(ny, nx)
	for k := 0; k < nz; k++ {
		for c := 0; c < plane; c++ {
			n := k*plane + c
			if m := mask.Elements[n]; m != 0 {
				out.Elements[c] += field.Elements[n] * (e3[k] - correction.Elements[n]) * m
			}
		}
	}
	for c, h := range hdept.Elements {
		if h == 0 {
			out.Elements[c] = 0
			continue
		}
		out.Elements[c] /= h
	}
	return out, nil
}

// ZonalMean calculates the mean of a [nz, ny, nx] field along each row of
// the grid, weighted by the zonal cell width e1:
//
//	sum(field * e1 * mask * basin) / sum(e1 * mask * basin)
//
// basin is an optional [ny, nx] sub-basin mask. The result has shape
// [nz, ny] and is zero for rows without any wet cells.
func ZonalMean(field, e1, mask, basin *sparse.DenseArray, bound float64) (*sparse.DenseArray, error) {
	if field == nil || len(field.Shape) != 3 {
		return nil, &ShapeMismatchError{Name: "field", Expected: []int{-1, -1, -1}}
	}
	nz, ny, nx := field.Shape[0], field.Shape[1], field.Shape[2]
	if err := checkShape("mask", mask, nz, ny, nx); err != nil {
		return nil, err
	}
	if err := checkShape("e1", e1, ny, nx); err != nil {
		return nil, err
	}
	if basin != nil {
		if err := checkShape("basin mask", basin, ny, nx); err != nil {
			return nil, err
		}
	}
	if err := CheckFill(field, mask, bound); err != nil {
		return nil, err
	}
	plane := ny * nx
	out := sparse.ZerosDense(nz, ny)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			var sum, weight float64
			for i := 0; i < nx; i++ {
				c := j*nx + i
				w := e1.Elements[c] * mask.Elements[k*plane+c]
				if basin != nil {
					w *= basin.Elements[c]
				}
				if w == 0 {
					continue
				}
				sum += field.Elements[k*plane+c] * w
				weight += w
			}
			if weight != 0 {
				out.Elements[k*ny+j] = sum / weight
			}
		}
	}
	return out, nil
}
