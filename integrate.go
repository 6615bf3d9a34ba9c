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
	"math"

	"github.com/ctessum/sparse"
)

// DefaultFillBound is the largest absolute value that a field may hold at a
// wet grid cell. Larger values are almost certainly missing-data sentinels
// (e.g. 1e20 or 1e30) that were not replaced before integration.
const DefaultFillBound = 1e10

// IntegrateHeatContent calculates the heat content [J] of each grid cell:
//
//	rho * cp * temperature * e1 * e2 * (e3[level] - correction) * mask
//
// temperature, correction and mask have shape [nz, ny, nx]; e1 and e2 have
// shape [ny, nx] and e3 has length nz. Cells where mask is zero contribute
// exactly zero whatever value the field holds there. A wet cell holding a
// value larger in magnitude than bound, or NaN, causes a *FillValueError.
func IntegrateHeatContent(temperature *sparse.DenseArray, rho, cp float64,
	e1, e2 *sparse.DenseArray, e3 []float64, correction, mask *sparse.DenseArray, bound float64) (*sparse.DenseArray, error) {

	nz, ny, nx, err := checkIntegrationShapes(temperature, e3, correction, mask)
	if err != nil {
		return nil, err
	}
	if err := checkShape("e1", e1, ny, nx); err != nil {
		return nil, err
	}
	if err := checkShape("e2", e2, ny, nx); err != nil {
		return nil, err
	}
	if err := CheckFill(temperature, mask, bound); err != nil {
		return nil, err
	}
	rhoCp := rho * cp
	out := sparse.ZerosDense(nz, ny, nx)
	plane := ny * nx
	for k := 0; k < nz; k++ {
		for c := 0; c < plane; c++ {
			n := k*plane + c
			m := mask.Elements[n]
			if m == 0 {
				continue
			}
			dz := e3[k] - correction.Elements[n]
			out.Elements[n] = rhoCp * temperature.Elements[n] * e1.Elements[c] * e2.Elements[c] * dz * m
		}
	}
	return out, nil
}

// IntegrateMassTransport calculates the volume transport [m3/s] through
// the meridional face of each grid cell:
//
//	e1 * velocity * (e3[level] - correction) * mask
//
// Shapes, masking and fill value checks are the same as for
// IntegrateHeatContent.
func IntegrateMassTransport(velocity, e1 *sparse.DenseArray, e3 []float64,
	correction, mask *sparse.DenseArray, bound float64) (*sparse.DenseArray, error) {

	nz, ny, nx, err := checkIntegrationShapes(velocity, e3, correction, mask)
	if err != nil {
		return nil, err
	}
	if err := checkShape("e1", e1, ny, nx); err != nil {
		return nil, err
	}
	if err := CheckFill(velocity, mask, bound); err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(nz, ny, nx)
	plane := ny * nx
	for k := 0; k < nz; k++ {
		for c := 0; c < plane; c++ {
			n := k*plane + c
			m := mask.Elements[n]
			if m == 0 {
				continue
			}
			out.Elements[n] = e1.Elements[c] * velocity.Elements[n] * (e3[k] - correction.Elements[n]) * m
		}
	}
	return out, nil
}

// checkIntegrationShapes makes sure that field, correction and mask
// share one [nz, ny, nx] shape that matches the number of levels in e3.
func checkIntegrationShapes(field *sparse.DenseArray, e3 []float64, correction, mask *sparse.DenseArray) (nz, ny, nx int, err error) {
	if field == nil || len(field.Shape) != 3 {
		var got []int
		if field != nil {
			got = field.Shape
		}
		return 0, 0, 0, &ShapeMismatchError{Name: "field", Expected: []int{len(e3), -1, -1}, Got: got}
	}
	nz, ny, nx = field.Shape[0], field.Shape[1], field.Shape[2]
	if len(e3) != nz {
		return 0, 0, 0, &ShapeMismatchError{Name: "e3", Expected: []int{nz}, Got: []int{len(e3)}}
	}
	if err = checkShape("partial cell correction", correction, nz, ny, nx); err != nil {
		return 0, 0, 0, err
	}
	if err = checkShape("mask", mask, nz, ny, nx); err != nil {
		return 0, 0, 0, err
	}
	return nz, ny, nx, nil
}

// CheckFill returns a *FillValueError for the first cell where mask is
// nonzero and the field value is NaN or has a magnitude larger than bound.
// Cells where mask is zero are not inspected. A bound <= 0 selects
// DefaultFillBound.
func CheckFill(field, mask *sparse.DenseArray, bound float64) error {
	if err := checkShape("mask", mask, field.Shape...); err != nil {
		return err
	}
	if bound <= 0 {
		bound = DefaultFillBound
	}
	for n, v := range field.Elements {
		if mask.Elements[n] == 0 {
			continue
		}
		if math.IsNaN(v) || math.Abs(v) > bound {
			return &FillValueError{Index: field.IndexNd(n), Value: v, Bound: bound}
		}
	}
	return nil
}

// ZeroFill replaces missing-data values in field with zero, in place.
// A value is missing if it equals one of the given fill values, is NaN,
// or has a magnitude of at least 1e20. If mask is not nil, every cell where
// mask is zero is also set to zero. mask may have the same shape as field
// or be missing its leading dimensions, in which case it is broadcast.
func ZeroFill(field, mask *sparse.DenseArray, fills ...float64) error {
	var period int
	if mask != nil {
		period = len(mask.Elements)
		if period == 0 || len(mask.Shape) > len(field.Shape) ||
			!sameShape(mask.Shape, field.Shape[len(field.Shape)-len(mask.Shape):]) {
			return &ShapeMismatchError{Name: "fill mask", Expected: field.Shape, Got: mask.Shape}
		}
	}
	for n, v := range field.Elements {
		missing := math.IsNaN(v) || math.Abs(v) >= 1e20
		for _, f := range fills {
			if v == f {
				missing = true
				break
			}
		}
		if !missing && mask != nil && mask.Elements[n%period] == 0 {
			missing = true
		}
		if missing {
			field.Elements[n] = 0
		}
	}
	return nil
}
