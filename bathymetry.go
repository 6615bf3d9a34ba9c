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

// BottomLevel converts a bathymetry index as stored in ORCA mesh files
// (1-based, 0 for land) into the 0-based index of the deepest wet level.
// This is the only place where the offset between the two conventions
// is applied. wet is false for land columns. ok is false if index is
// not an integer in [0, nz].
func BottomLevel(index float64, nz int) (level int, wet, ok bool) {
	if math.IsNaN(index) || index != math.Trunc(index) || index < 0 || index > float64(nz) {
		return -1, false, false
	}
	k := int(index)
	if k == 0 {
		return -1, false, true
	}
	return k - 1, true, true
}

// PartialCellCorrection calculates the thickness correction for partial
// bottom cells. The returned array has shape [len(e3Nominal), ny, nx] and
// is zero everywhere except at the deepest wet level of each column, where it
// equals e3Nominal[level] - e3Partial[j,i]. Subtracting the correction from
// the nominal thickness gives the true cell thickness.
//
// Bathymetry indices outside of [0, len(e3Nominal)] cause a
// *BathymetryIndexError unless clamp is true, in which case those columns are
// treated as dry and counted in the clamped return value.
func PartialCellCorrection(e3Nominal []float64, e3Partial, bathy *sparse.DenseArray, clamp bool) (correction *sparse.DenseArray, clamped int, err error) {
	if bathy == nil || len(bathy.Shape) != 2 {
		return nil, 0, &ShapeMismatchError{Name: "mbathy", Expected: []int{-1, -1}}
	}
	ny, nx := bathy.Shape[0], bathy.Shape[1]
	if err := checkShape("e3t_ps", e3Partial, ny, nx); err != nil {
		return nil, 0, err
	}
	nz := len(e3Nominal)
	correction = sparse.ZerosDense(nz, ny, nx)
	plane := ny * nx
	for c, index := range bathy.Elements {
		k, wet, ok := BottomLevel(index, nz)
		if !ok {
			if !clamp {
				return nil, 0, &BathymetryIndexError{J: c / nx, I: c % nx, Index: index, Levels: nz}
			}
			clamped++
			continue
		}
		if !wet {
			continue
		}
		correction.Elements[k*plane+c] = e3Nominal[k] - e3Partial.Elements[c]
	}
	return correction, clamped, nil
}
