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

package ometutil

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ctessum/unit"
	"github.com/omet-research/omet"
	"github.com/omet-research/omet/timeseries"
	"github.com/sirupsen/logrus"
)

// secondsPerMonth is the month length used for heat content tendencies.
const secondsPerMonth = 30 * 86400

func isMonthly(v omet.Variable) bool {
	return len(v.Dims) >= 2 && v.Dims[0] == "year" && v.Dims[1] == "month"
}

// WhitenFile removes the seasonal cycle from every variable in inFile
// with (year, month, ...) dimensions and writes the result to outFile.
// Other variables are copied unchanged.
func WhitenFile(inFile, outFile string, log logrus.FieldLogger) error {
	o, err := readOutput(inFile)
	if err != nil {
		return err
	}
	var n int
	for _, name := range o.Names() {
		v := o.Data[name]
		if !isMonthly(v) {
			continue
		}
		w, err := timeseries.Whiten(v.Data)
		if err != nil {
			return fmt.Errorf("omet: whitening %s: %v", name, err)
		}
		v.Data = w
		v.Description += " (seasonal cycle removed)"
		o.Data[name] = v
		n++
	}
	if n == 0 {
		return fmt.Errorf("omet: %s has no monthly variables to whiten", inFile)
	}
	if err := writeOutput(outFile, o); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": outFile, "variables": n}).Info("omet: removed seasonal cycle")
	return nil
}

// PrintSeries writes the monthly series of variable at the given index
// of its trailing dimensions in inFile to w. The columns are the raw
// values, the values with the seasonal cycle removed, the detrended
// whitened values, and the trailing running mean of the whitened values
// over window months. The running mean is left blank for the first
// window-1 months, and is omitted when window is less than one.
func PrintSeries(w io.Writer, inFile, variable string, index []int, window int) error {
	o, err := readOutput(inFile)
	if err != nil {
		return err
	}
	v, ok := o.Data[variable]
	if !ok {
		return fmt.Errorf("omet: variable %q is not in %s", variable, inFile)
	}
	if !isMonthly(v) {
		return fmt.Errorf("omet: variable %q has dimensions %v but must start with (year, month)", variable, v.Dims)
	}
	raw, err := timeseries.Series(v.Data, index...)
	if err != nil {
		return err
	}
	white, err := timeseries.Whiten(v.Data)
	if err != nil {
		return err
	}
	anomaly, err := timeseries.Series(white, index...)
	if err != nil {
		return err
	}
	detrended, err := timeseries.Detrend(anomaly)
	if err != nil {
		return err
	}
	var running []float64
	if window > 0 {
		if running, err = timeseries.RunningMean(anomaly, window); err != nil {
			return err
		}
	}
	fit, err := timeseries.Trend(anomaly)
	if err != nil {
		return err
	}

	startYear := 0
	if y, ok := o.Data["year"]; ok && len(y.Data.Elements) > 0 {
		startYear = int(y.Data.Elements[0])
	}
	fmt.Fprintf(w, "# %s %v (%s) [%s]\n", variable, index, v.Description, v.Units)
	fmt.Fprintf(w, "# trend %g %s/month (r2=%.3f)\n", fit.Slope, v.Units, fit.RSquared)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "year\tmonth\traw\twhitened\tdetrended\trunning mean\t")
	for t := range raw {
		rm := ""
		if window > 0 && t >= window-1 {
			rm = fmt.Sprintf("%.6g", running[t-window+1])
		}
		fmt.Fprintf(tw, "%d\t%d\t%.6g\t%.6g\t%.6g\t%s\t\n",
			startYear+t/omet.MonthsPerYear, t%omet.MonthsPerYear+1, raw[t], anomaly[t], detrended[t], rm)
	}
	return tw.Flush()
}

// PrintHeatBudget writes the regional heat budget of the heat content
// variable in inFile to w. The variable must have (year, month, j, ...)
// dimensions and be in tera joules. It is summed over rows
// rows[0] <= j < rows[1], or over all rows when rows is empty, and the
// columns are the regional heat content and its tendency in peta watts.
// The tendency of each month is the change since the month before, so
// the first month has none.
func PrintHeatBudget(w io.Writer, inFile, variable string, rows []int) error {
	o, err := readOutput(inFile)
	if err != nil {
		return err
	}
	v, ok := o.Data[variable]
	if !ok {
		return fmt.Errorf("omet: variable %q is not in %s", variable, inFile)
	}
	if !isMonthly(v) || len(v.Dims) < 3 || v.Dims[2] != "j" {
		return fmt.Errorf("omet: variable %q has dimensions %v but must start with (year, month, j)", variable, v.Dims)
	}
	if v.Units != omet.TeraJoule.Name {
		return fmt.Errorf("omet: variable %q is in %q but a heat budget needs %q", variable, v.Units, omet.TeraJoule.Name)
	}
	start, end := 0, v.Data.Shape[2]
	switch len(rows) {
	case 0:
	case 2:
		start, end = rows[0], rows[1]
	default:
		return fmt.Errorf("omet: Rows must give a start and an end row but is %v", rows)
	}
	ohc, err := timeseries.RowSum(v.Data, start, end)
	if err != nil {
		return err
	}
	joules := make([]float64, len(ohc))
	for t, q := range ohc {
		joules[t] = q * omet.TeraJoule.Divisor
	}
	rate, err := timeseries.Tendency(joules, secondsPerMonth)
	if err != nil {
		return err
	}
	tendency := make([]float64, len(rate))
	for t, r := range rate {
		// J/s must come out as W.
		power := unit.Div(unit.New(r, unit.Joule), unit.New(1, unit.Second))
		if tendency[t], err = omet.PetaWatt.Convert(power); err != nil {
			return err
		}
	}

	startYear := 0
	if y, ok := o.Data["year"]; ok && len(y.Data.Elements) > 0 {
		startYear = int(y.Data.Elements[0])
	}
	fmt.Fprintf(w, "# %s rows [%d, %d) (%s)\n", variable, start, end, v.Description)
	if lat, ok := o.Data["latitude_aux"]; ok && len(lat.Data.Elements) >= end {
		fmt.Fprintf(w, "# latitude %.2f to %.2f\n", lat.Data.Elements[start], lat.Data.Elements[end-1])
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "year\tmonth\tOHC [%s]\tdOHC/dt [%s]\t\n", omet.TeraJoule.Name, omet.PetaWatt.Name)
	for t := range ohc {
		d := ""
		if t > 0 {
			d = fmt.Sprintf("%.6g", tendency[t-1])
		}
		fmt.Fprintf(tw, "%d\t%d\t%.6g\t%s\t\n",
			startYear+t/omet.MonthsPerYear, t%omet.MonthsPerYear+1, ohc[t], d)
	}
	return tw.Flush()
}
