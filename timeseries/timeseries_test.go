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

package timeseries

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seasonal returns a (3 years, 12 months, 2) array where the value is
// month + 10*year in the first column and the negative in the second.
func seasonal() *sparse.DenseArray {
	a := sparse.ZerosDense(3, MonthsPerYear, 2)
	for y := 0; y < 3; y++ {
		for m := 0; m < MonthsPerYear; m++ {
			a.Set(float64(m+10*y), y, m, 0)
			a.Set(-float64(m+10*y), y, m, 1)
		}
	}
	return a
}

func TestClimatology(t *testing.T) {
	c, err := Climatology(seasonal())
	require.NoError(t, err)
	assert.Equal(t, []int{MonthsPerYear, 2}, c.Shape)
	for m := 0; m < MonthsPerYear; m++ {
		assert.InDelta(t, float64(m+10), c.Get(m, 0), 1e-12, "month %d", m)
		assert.InDelta(t, -float64(m+10), c.Get(m, 1), 1e-12, "month %d", m)
	}
}

func TestWhiten(t *testing.T) {
	a := seasonal()
	w, err := Whiten(a)
	require.NoError(t, err)
	assert.Equal(t, a.Shape, w.Shape)
	for y := 0; y < 3; y++ {
		for m := 0; m < MonthsPerYear; m++ {
			assert.InDelta(t, float64(10*y-10), w.Get(y, m, 0), 1e-12)
			assert.InDelta(t, -float64(10*y-10), w.Get(y, m, 1), 1e-12)
		}
	}
	// The last year takes part in the climatology, so the anomalies
	// of each month sum to zero.
	assert.InDelta(t, 0, w.Sum(), 1e-9)
	assert.Equal(t, 0., a.Get(0, 0, 0), "input modified")
}

func TestWhiten_badShape(t *testing.T) {
	_, err := Whiten(sparse.ZerosDense(2, 11))
	assert.Error(t, err)
	_, err = Climatology(nil)
	assert.Error(t, err)
}

func TestSeries(t *testing.T) {
	s, err := Series(seasonal(), 1)
	require.NoError(t, err)
	require.Len(t, s, 36)
	assert.Equal(t, -13., s[15])

	_, err = Series(seasonal(), 2)
	assert.Error(t, err)
	_, err = Series(seasonal())
	assert.Error(t, err)
}

func TestRunningMean(t *testing.T) {
	r, err := RunningMean([]float64{1, 2, 3, 4, 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, r)

	r, err = RunningMean([]float64{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, r)

	_, err = RunningMean([]float64{1, 2, 3}, 4)
	assert.Error(t, err)
	_, err = RunningMean([]float64{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestTrendDetrend(t *testing.T) {
	x := make([]float64, 24)
	for i := range x {
		x[i] = 3 + 0.5*float64(i)
		if i%2 == 0 {
			x[i] += 0.1
		} else {
			x[i] -= 0.1
		}
	}
	f, err := Trend(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f.Slope, 0.01)
	assert.InDelta(t, 3, f.Intercept, 0.2)
	assert.True(t, f.RSquared > 0.99)

	d, err := Detrend(x)
	require.NoError(t, err)
	var sum float64
	for _, v := range d {
		sum += v
		assert.True(t, v < 0.2 && v > -0.2, "residual %g", v)
	}
	assert.InDelta(t, 0, sum, 1e-9)

	_, err = Trend([]float64{1})
	assert.Error(t, err)
}

func TestRowSum(t *testing.T) {
	// (1 year, 12 months, 3 rows, 2 columns) with value 100*row + column + month.
	a := sparse.ZerosDense(1, MonthsPerYear, 3, 2)
	for m := 0; m < MonthsPerYear; m++ {
		for j := 0; j < 3; j++ {
			for i := 0; i < 2; i++ {
				a.Set(float64(100*j+i+m), 0, m, j, i)
			}
		}
	}
	s, err := RowSum(a, 1, 3)
	require.NoError(t, err)
	require.Len(t, s, MonthsPerYear)
	for m, v := range s {
		// Rows 1 and 2: (100+0+m) + (100+1+m) + (200+0+m) + (200+1+m).
		assert.InDelta(t, float64(602+4*m), v, 1e-12, "month %d", m)
	}

	all, err := RowSum(a, 0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 602.+1, all[0], 1e-12)

	for _, rows := range [][2]int{{-1, 2}, {0, 4}, {2, 2}, {2, 1}} {
		_, err := RowSum(a, rows[0], rows[1])
		assert.Error(t, err, "rows %v", rows)
	}
	_, err = RowSum(sparse.ZerosDense(1, MonthsPerYear), 0, 1)
	assert.Error(t, err, "no row dimension")
}

func TestTendency(t *testing.T) {
	d, err := Tendency([]float64{0, 10, 40, 40}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 6, 0}, d)

	_, err = Tendency([]float64{1}, 5)
	assert.Error(t, err)
	_, err = Tendency([]float64{1, 2}, 0)
	assert.Error(t, err)
}
