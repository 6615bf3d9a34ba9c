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
	"strconv"
)

// LayerBand is a contiguous range of vertical levels [Start, End).
type LayerBand struct {
	Name       string // e.g. "0_500"
	Start, End int
}

func (b LayerBand) String() string {
	return fmt.Sprintf("%s[%d:%d]", b.Name, b.Start, b.End)
}

// DefaultBoundaries are the depths [m] separating the
// default layer bands: surface-500 m, 500-1000 m, 1000-2000 m and
// 2000 m-bottom.
var DefaultBoundaries = []float64{500, 1000, 2000}

// BandsFromDepths splits the levels, whose nominal depths are given,
// into contiguous bands at the given boundary depths. A level belongs
// to the first band whose lower boundary is deeper than the level depth.
// Bands are named after their boundaries, with the deepest band ending
// in "inf".
func BandsFromDepths(depths []float64, boundaries []float64) ([]LayerBand, error) {
	if len(depths) == 0 {
		return nil, fmt.Errorf("omet: layer bands: no level depths")
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] <= depths[i-1] {
			return nil, fmt.Errorf("omet: layer bands: level depths must increase but depth[%d]=%g <= depth[%d]=%g",
				i, depths[i], i-1, depths[i-1])
		}
	}
	indices := make([]int, len(boundaries))
	k := 0
	for b, bound := range boundaries {
		if b > 0 && bound <= boundaries[b-1] {
			return nil, fmt.Errorf("omet: layer bands: boundaries must increase: %v", boundaries)
		}
		for k < len(depths) && depths[k] < bound {
			k++
		}
		indices[b] = k
	}
	bands, err := BandsFromIndices(indices, len(depths))
	if err != nil {
		return nil, err
	}
	for i := range bands {
		bands[i].Name = bandName(boundaries, i)
	}
	return bands, nil
}

// BandsFromIndices splits nz levels into contiguous bands at the given
// level indices. For example, indices [22, 26, 30] with nz = 42 give the
// bands [0,22), [22,26), [26,30) and [30,42).
func BandsFromIndices(indices []int, nz int) ([]LayerBand, error) {
	bands := make([]LayerBand, 0, len(indices)+1)
	start := 0
	for _, end := range indices {
		bands = append(bands, LayerBand{Start: start, End: end})
		start = end
	}
	bands = append(bands, LayerBand{Start: start, End: nz})
	for i := range bands {
		bands[i].Name = fmt.Sprintf("lev%d_%d", bands[i].Start, bands[i].End)
	}
	if err := ValidateBands(bands, nz); err != nil {
		return nil, err
	}
	return bands, nil
}

// ValidateBands checks that bands cover [0, nz) with no gaps or overlaps.
// Empty bands are allowed, since a shallow grid may have no levels below
// a given boundary.
func ValidateBands(bands []LayerBand, nz int) error {
	if len(bands) == 0 {
		return fmt.Errorf("omet: no layer bands")
	}
	next := 0
	for _, b := range bands {
		if b.Start != next {
			return fmt.Errorf("omet: layer band %v should start at level %d", b, next)
		}
		if b.End < b.Start || b.End > nz {
			return fmt.Errorf("omet: layer band %v is outside of [0, %d)", b, nz)
		}
		next = b.End
	}
	if next != nz {
		return fmt.Errorf("omet: layer bands end at level %d but there are %d levels", next, nz)
	}
	return nil
}

// bandName names band i after the boundaries, e.g. "500_1000".
func bandName(boundaries []float64, i int) string {
	top := "0"
	if i > 0 {
		top = strconv.FormatFloat(boundaries[i-1], 'f', -1, 64)
	}
	bottom := "inf"
	if i < len(boundaries) {
		bottom = strconv.FormatFloat(boundaries[i], 'f', -1, 64)
	}
	return top + "_" + bottom
}
