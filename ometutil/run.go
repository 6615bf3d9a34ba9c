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
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/ctessum/sparse"
	"github.com/omet-research/omet"
	"github.com/sirupsen/logrus"
)

// Diagnostic is a group of output variables that can be calculated.
type Diagnostic int

// The available diagnostics.
const (
	HeatContent   Diagnostic = iota // ocean heat content
	MassTransport                   // meridional mass transport
	FieldStats                      // vertical and zonal means of theta, u and v
)

func (d Diagnostic) String() string {
	switch d {
	case HeatContent:
		return "ohc"
	case MassTransport:
		return "psi"
	case FieldStats:
		return "stats"
	default:
		return fmt.Sprintf("Diagnostic(%d)", int(d))
	}
}

// RunConfig holds the settings for a diagnostic run.
type RunConfig struct {
	Grid    GridConfig
	Profile Profile

	// Theta, U and V are the input file templates.
	Theta, U, V string

	Calendar omet.Calendar

	// Workers is the number of time steps processed at once.
	// Values less than one mean one worker per CPU.
	Workers int

	OutputFile, LogFile string
}

type field struct {
	name, title, units string
	template           string
	src                FieldSource
	point              omet.GridPoint
}

func (rc *RunConfig) fields() map[string]field {
	return map[string]field{
		"theta": {name: "theta", title: "Potential Temperature", units: "degree_Celsius",
			template: rc.Theta, src: rc.Profile.Theta, point: omet.TPoint},
		"u": {name: "u", title: "Zonal Velocity", units: "m/s",
			template: rc.U, src: rc.Profile.U, point: omet.UPoint},
		"v": {name: "v", title: "Meridional Velocity", units: "m/s",
			template: rc.V, src: rc.Profile.V, point: omet.VPoint},
	}
}

// inputs returns the names of the fields needed by diags, in the
// order they are read.
func inputs(diags []Diagnostic) []string {
	need := map[string]bool{}
	for _, d := range diags {
		switch d {
		case HeatContent:
			need["theta"] = true
		case MassTransport:
			need["v"] = true
		case FieldStats:
			need["theta"], need["u"], need["v"] = true, true, true
		}
	}
	var names []string
	for _, n := range []string{"theta", "u", "v"} {
		if need[n] {
			names = append(names, n)
		}
	}
	return names
}

// Diagnose calculates the requested diagnostics for every month in
// rc.Calendar and writes them to rc.OutputFile.
func Diagnose(ctx context.Context, rc *RunConfig, log logrus.FieldLogger, diags ...Diagnostic) error {
	if len(diags) == 0 {
		return fmt.Errorf("omet: no diagnostics requested")
	}
	start := time.Now()
	in, err := LoadIntegrator(ctx, rc.Grid, log)
	if err != nil {
		return err
	}
	g := in.Grid()

	names := inputs(diags)
	fields := rc.fields()
	sources := make([]omet.NextData, len(names))
	index := make(map[string]int, len(names))
	for i, n := range names {
		f := fields[n]
		if f.src.Var == "" {
			return fmt.Errorf("omet: dataset %s has no variable name for %s", rc.Profile.Name, n)
		}
		mask, err := g.Mask(f.point)
		if err != nil {
			return err
		}
		sources[i] = omet.NextDataNCF(f.template, rc.Profile.DateFormat, f.src.Var,
			rc.Calendar, rc.Profile.RecordsPerFile, mask, log)
		index[n] = i
	}

	stepFn := func(_ int, data []*sparse.DenseArray) (omet.Diagnostics, error) {
		d := make(omet.Diagnostics)
		for _, diag := range diags {
			var r omet.Diagnostics
			var err error
			switch diag {
			case HeatContent:
				r, err = in.HeatContent(data[index["theta"]])
			case MassTransport:
				r, err = in.MassTransport(data[index["v"]])
			case FieldStats:
				r, err = fieldStatistics(in, fields, index, data)
			}
			if err != nil {
				return nil, fmt.Errorf("%v: %w", diag, err)
			}
			for k, v := range r {
				d[k] = v
			}
		}
		return d, nil
	}

	workers := rc.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(-1)
	}
	log.WithFields(logrus.Fields{
		"dataset": rc.Profile.Name, "start": rc.Calendar.StartYear, "end": rc.Calendar.EndYear,
		"diagnostics": diags, "workers": workers,
	}).Info("omet: starting calculation")
	out, err := omet.Run(rc.Calendar, workers, log, stepFn, sources...)
	if err != nil {
		return err
	}
	out.Dataset = rc.Profile.Name
	out.AddCoordinates(g, rc.Calendar)
	if err := writeOutput(rc.OutputFile, out); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file": rc.OutputFile, "variables": len(out.Data), "elapsed": time.Since(start),
	}).Info("omet: wrote output")
	return nil
}

func fieldStatistics(in *omet.Integrator, fields map[string]field, index map[string]int, data []*sparse.DenseArray) (omet.Diagnostics, error) {
	d := make(omet.Diagnostics)
	for _, n := range []string{"theta", "u", "v"} {
		f := fields[n]
		r, err := in.FieldStatistics(f.name, f.title, f.units, data[index[n]], f.point)
		if err != nil {
			return nil, err
		}
		for k, v := range r {
			d[k] = v
		}
	}
	return d, nil
}

func writeOutput(path string, o *omet.Output) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("omet: creating output file: %v", err)
	}
	if err := o.Write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func readOutput(path string) (*omet.Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("omet: opening output file: %v", err)
	}
	defer f.Close()
	return omet.LoadOutput(f)
}
