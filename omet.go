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

// Package omet computes ocean heat content, meridional mass transport and
// related field statistics on masked, partial-cell ORCA ocean grids.
package omet

import (
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// Version gives the version number.
const Version = "0.3.0"

// DataVersion gives the version of the output file format. Output files
// written with a different data version are rejected by LoadOutput.
const DataVersion = "1.1.0"

// Constants holds the physical constants used in the integrals.
type Constants struct {
	Rho float64 // sea water density [kg/m3]
	Cp  float64 // specific heat capacity of sea water [J/(kg K)]
}

// DefaultConstants are the constants used for all of the
// reanalysis products.
var DefaultConstants = Constants{
	Rho: 1027,
	Cp:  3987,
}

// Check makes sure that the constants are physically sensible and that
// rho * cp * temperature * volume has the dimensions of energy.
func (c Constants) Check() error {
	if c.Rho <= 0 || c.Cp <= 0 {
		return fmt.Errorf("omet: density (%g) and specific heat (%g) must be positive", c.Rho, c.Cp)
	}
	rho := unit.New(c.Rho, unit.KilogramPerMeter3)
	cp := unit.New(c.Cp, unit.Dimensions{
		unit.LengthDim:      2,
		unit.TimeDim:        -2,
		unit.TemperatureDim: -1,
	})
	e := unit.Mul(rho, cp, unit.New(1, unit.Kelvin), unit.New(1, unit.Meter3))
	if err := e.Check(unit.Joule); err != nil {
		return fmt.Errorf("omet: heat content constants: %v", err)
	}
	return nil
}

// ReportUnit is a unit that integrated quantities are reported in.
// Summation always happens in SI units; the divisor is applied afterwards.
type ReportUnit struct {
	Name    string
	Divisor float64
	Dims    unit.Dimensions
}

var (
	// TeraJoule is the reporting unit for heat content.
	TeraJoule = ReportUnit{Name: "tera joule", Divisor: 1e12, Dims: unit.Joule}
	// Sverdrup is the reporting unit for mass transport.
	Sverdrup = ReportUnit{Name: "Sv", Divisor: 1e6, Dims: unit.Meter3PerSecond}
	// PetaWatt is the reporting unit for heat content tendencies.
	PetaWatt = ReportUnit{Name: "PW", Divisor: 1e15, Dims: unit.Watt}
)

// Report returns a copy of the summed array a converted
// to the reporting unit.
func (r ReportUnit) Report(a *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(a.Shape...)
	for i, v := range a.Elements {
		out.Elements[i] = v / r.Divisor
	}
	return out
}

// Convert converts a scalar SI quantity to the reporting unit, returning
// an error if the dimensions don't match.
func (r ReportUnit) Convert(u *unit.Unit) (float64, error) {
	if err := u.Check(r.Dims); err != nil {
		return 0, fmt.Errorf("omet: converting to %s: %v", r.Name, err)
	}
	return u.Value() / r.Divisor, nil
}
