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

// Package timeseries prepares monthly diagnostics for analysis by
// removing the seasonal cycle, smoothing and detrending them.
package timeseries

import (
	"fmt"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MonthsPerYear is the length of the second dimension of the arrays
// handled by this package.
const MonthsPerYear = 12

func checkMonthly(a *sparse.DenseArray) (years, n int, err error) {
	if a == nil || len(a.Shape) < 2 || a.Shape[1] != MonthsPerYear {
		var shape []int
		if a != nil {
			shape = a.Shape
		}
		return 0, 0, fmt.Errorf("timeseries: array must have (year, %d months, ...) dimensions but has shape %v",
			MonthsPerYear, shape)
	}
	if a.Shape[0] == 0 {
		return 0, 0, fmt.Errorf("timeseries: array has no years")
	}
	n = 1
	for _, d := range a.Shape[2:] {
		n *= d
	}
	return a.Shape[0], n, nil
}

// Climatology returns the mean seasonal cycle of an array with
// (year, month, ...) dimensions: the mean over all years of each month of
// the year. The result has (month, ...) dimensions.
func Climatology(a *sparse.DenseArray) (*sparse.DenseArray, error) {
	years, n, err := checkMonthly(a)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(a.Shape[1:]...)
	x := make([]float64, years)
	for m := 0; m < MonthsPerYear; m++ {
		for c := 0; c < n; c++ {
			for y := range x {
				x[y] = a.Elements[(y*MonthsPerYear+m)*n+c]
			}
			out.Elements[m*n+c] = stat.Mean(x, nil)
		}
	}
	return out, nil
}

// Whiten removes the seasonal cycle from an array with (year, month, ...)
// dimensions by subtracting the climatology of each month. Every year,
// including the last, contributes to the climatology.
func Whiten(a *sparse.DenseArray) (*sparse.DenseArray, error) {
	clim, err := Climatology(a)
	if err != nil {
		return nil, err
	}
	out := a.Copy()
	period := len(clim.Elements)
	for i := range out.Elements {
		out.Elements[i] -= clim.Elements[i%period]
	}
	return out, nil
}

// Series extracts the monthly time series at the given index of the
// trailing dimensions of an array with (year, month, ...) dimensions.
func Series(a *sparse.DenseArray, index ...int) ([]float64, error) {
	years, n, err := checkMonthly(a)
	if err != nil {
		return nil, err
	}
	trailing := a.Shape[2:]
	if len(index) != len(trailing) {
		return nil, fmt.Errorf("timeseries: index %v does not match trailing dimensions %v", index, trailing)
	}
	var c int
	for i, idx := range index {
		if idx < 0 || idx >= trailing[i] {
			return nil, fmt.Errorf("timeseries: index %v is outside of trailing dimensions %v", index, trailing)
		}
		c = c*trailing[i] + idx
	}
	out := make([]float64, years*MonthsPerYear)
	for t := range out {
		out[t] = a.Elements[t*n+c]
	}
	return out, nil
}

// RowSum returns the monthly series of the sum of an array with
// (year, month, j, ...) dimensions over rows start <= j < end and all
// of the dimensions that follow j.
func RowSum(a *sparse.DenseArray, start, end int) ([]float64, error) {
	years, n, err := checkMonthly(a)
	if err != nil {
		return nil, err
	}
	if len(a.Shape) < 3 {
		return nil, fmt.Errorf("timeseries: array with shape %v has no row dimension", a.Shape)
	}
	ny := a.Shape[2]
	if start < 0 || end > ny || start >= end {
		return nil, fmt.Errorf("timeseries: rows [%d, %d) are not within [0, %d)", start, end, ny)
	}
	row := n / ny
	out := make([]float64, years*MonthsPerYear)
	for t := range out {
		out[t] = floats.Sum(a.Elements[t*n+start*row : t*n+end*row])
	}
	return out, nil
}

// Tendency returns the rate of change (x[t+1]-x[t])/dt of x, where dt is
// the time between consecutive values. The result is one element shorter
// than x, and element t belongs to the interval ending at x[t+1].
func Tendency(x []float64, dt float64) ([]float64, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("timeseries: need at least 2 values for a tendency but have %d", len(x))
	}
	if dt <= 0 {
		return nil, fmt.Errorf("timeseries: time step %g must be positive", dt)
	}
	out := make([]float64, len(x)-1)
	for t := range out {
		out[t] = (x[t+1] - x[t]) / dt
	}
	return out, nil
}

// RunningMean returns the moving average of x over the given window.
// The result has len(x)-window+1 elements; element i is the mean of
// x[i:i+window].
func RunningMean(x []float64, window int) ([]float64, error) {
	if window < 1 || window > len(x) {
		return nil, fmt.Errorf("timeseries: running mean window %d must be in [1, %d]", window, len(x))
	}
	out := make([]float64, len(x)-window+1)
	var sum float64
	for i := 0; i < window; i++ {
		sum += x[i]
	}
	out[0] = sum / float64(window)
	for i := 1; i < len(out); i++ {
		sum += x[i+window-1] - x[i-1]
		out[i] = sum / float64(window)
	}
	return out, nil
}

// Fit is a least-squares linear fit against the time step index.
type Fit struct {
	Slope, Intercept, RSquared float64
}

// Trend fits a straight line to x as a function of time step.
func Trend(x []float64) (Fit, error) {
	if len(x) < 2 {
		return Fit{}, fmt.Errorf("timeseries: need at least 2 values to fit a trend but have %d", len(x))
	}
	t := make([]float64, len(x))
	for i := range t {
		t[i] = float64(i)
	}
	var f Fit
	f.Slope, f.Intercept, f.RSquared, _, _, _ = stats.LinearRegression(t, x)
	return f, nil
}

// Detrend returns x with its linear trend removed.
func Detrend(x []float64) ([]float64, error) {
	f, err := Trend(x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - (f.Intercept + f.Slope*float64(i))
	}
	return out, nil
}
