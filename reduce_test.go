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
	"testing"

	"github.com/ctessum/sparse"
)

func TestZonalVerticalSum(t *testing.T) {
	full := ramp(3, 4, 5)
	total := full.Sum()
	zonal := ZonalSum(full)
	if !sameShape(zonal.Shape, []int{3, 4}) {
		t.Fatalf("zonal shape = %v", zonal.Shape)
	}
	vert := VerticalSum(full)
	if !sameShape(vert.Shape, []int{4, 5}) {
		t.Fatalf("vertical shape = %v", vert.Shape)
	}
	if different(zonal.Sum(), total, testTolerance) {
		t.Errorf("zonal total %g != %g", zonal.Sum(), total)
	}
	if different(vert.Sum(), total, testTolerance) {
		t.Errorf("vertical total %g != %g", vert.Sum(), total)
	}
	var row float64
	for i := 0; i < 5; i++ {
		row += full.Get(1, 2, i)
	}
	if different(zonal.Get(1, 2), row, testTolerance) {
		t.Errorf("zonal[1,2] = %g; want %g", zonal.Get(1, 2), row)
	}
}

func TestBandSumAdditivity(t *testing.T) {
	full := ramp(6, 2, 3)
	bands, err := BandsFromIndices([]int{2, 2, 5}, 6)
	if err != nil {
		t.Fatal(err)
	}
	sum := sparse.ZerosDense(2, 3)
	for _, b := range bands {
		sum.AddDense(BandSum(full, b))
	}
	compareArrays(t, "band sum", VerticalSum(full), sum, testTolerance)
}

func TestRestrictToBasin(t *testing.T) {
	full := ramp(2, 3, 4)
	atl := sparse.ZerosDense(3, 4)
	pac := sparse.ZerosDense(3, 4)
	for i := range atl.Elements {
		if i%3 == 0 {
			atl.Elements[i] = 1
		} else {
			pac.Elements[i] = 1
		}
	}
	before := full.Copy()
	a, err := RestrictToBasin(full, atl)
	if err != nil {
		t.Fatal(err)
	}
	p, err := RestrictToBasin(full, pac)
	if err != nil {
		t.Fatal(err)
	}
	compareArrays(t, "unmodified", before, full, 0)
	sum := a.Copy()
	sum.AddDense(p)
	compareArrays(t, "basin sum", full, sum, testTolerance)
	if v := a.Get(1, 0, 1); v != 0 {
		t.Errorf("value outside basin = %g", v)
	}

	if _, err := RestrictToBasin(full, sparse.ZerosDense(4, 3)); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("err = %v; want shape mismatch", err)
	}
}
