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
	"io/ioutil"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Variable is a named output array together with its metadata.
type Variable struct {
	Dims        []string           // netcdf dimensions for this variable
	Description string             // variable description
	Units       string             // variable units
	Data        *sparse.DenseArray // variable data
}

// Diagnostics holds the results for a single time step,
// keyed by variable name.
type Diagnostics map[string]Variable

// merge adds the variables in o to d.
func (d Diagnostics) merge(o Diagnostics) {
	for k, v := range o {
		d[k] = v
	}
}

// basinTitles gives long names for commonly used sub-basin masks.
var basinTitles = map[string]string{
	"glo": "Global",
	"atl": "Atlantic",
	"pac": "Pacific",
	"ind": "Indian",
	"arc": "Arctic",
	"sou": "Southern",
}

func basinTitle(name string) string {
	if t, ok := basinTitles[name]; ok {
		return t
	}
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Integrator calculates diagnostics from the fields of one time step
// on a fixed grid. The grid and its partial-cell correction are computed
// once and only read afterwards, so an Integrator may be used from
// multiple goroutines at the same time.
type Integrator struct {
	grid       *Grid
	correction *sparse.DenseArray
	constants  Constants
	bound      float64
	bands      []LayerBand
	clamp      bool
	log        logrus.FieldLogger
}

// Option configures an Integrator.
type Option func(*Integrator)

// WithConstants sets the physical constants. The default is DefaultConstants.
func WithConstants(c Constants) Option {
	return func(in *Integrator) { in.constants = c }
}

// WithLogger sets the logger that status messages are written to.
// By default nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(in *Integrator) { in.log = l }
}

// WithFillBound sets the largest field magnitude allowed at wet cells.
// The default is DefaultFillBound.
func WithFillBound(bound float64) Option {
	return func(in *Integrator) { in.bound = bound }
}

// WithBands sets the layer bands that heat content is summed over.
// By default the bands are derived from the grid level depths
// and DefaultBoundaries.
func WithBands(bands []LayerBand) Option {
	return func(in *Integrator) { in.bands = bands }
}

// WithBathymetryClamp specifies whether columns with bathymetry indices
// outside of the grid should be treated as land instead of
// causing an error.
func WithBathymetryClamp(clamp bool) Option {
	return func(in *Integrator) { in.clamp = clamp }
}

// NewIntegrator validates g and calculates its partial-cell correction.
func NewIntegrator(g *Grid, opts ...Option) (*Integrator, error) {
	in := &Integrator{
		grid:      g,
		constants: DefaultConstants,
		bound:     DefaultFillBound,
	}
	for _, o := range opts {
		o(in)
	}
	if in.log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		in.log = l
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := in.constants.Check(); err != nil {
		return nil, err
	}
	var clamped int
	var err error
	in.correction, clamped, err = PartialCellCorrection(g.E3T0, g.E3TPS, g.MBathy, in.clamp)
	if err != nil {
		return nil, err
	}
	if clamped > 0 {
		in.log.WithField("columns", clamped).Warn("omet: bathymetry index out of range; treating columns as land")
	}
	switch {
	case in.bands != nil:
		if err := ValidateBands(in.bands, g.Nz); err != nil {
			return nil, err
		}
	case g.Depth != nil:
		in.bands, err = BandsFromDepths(g.Depth, DefaultBoundaries)
		if err != nil {
			return nil, err
		}
	default:
		in.log.Warn("omet: grid has no level depths and no layer bands were given; heat content layer band integrals will not be calculated")
	}
	in.log.WithFields(logrus.Fields{
		"levels": g.Nz, "ny": g.Ny, "nx": g.Nx,
		"basins": g.BasinNames(), "bands": in.bands,
	}).Debug("omet: integrator ready")
	return in, nil
}

// Grid returns the grid used by in. It must not be modified.
func (in *Integrator) Grid() *Grid { return in.grid }

// Correction returns the partial-cell correction. It must not be modified.
func (in *Integrator) Correction() *sparse.DenseArray { return in.correction }

// Bands returns the layer bands used for heat content.
func (in *Integrator) Bands() []LayerBand { return in.bands }

// HeatContent calculates ocean heat content from potential temperature
// [°C] with shape [nz, ny, nx]. The result holds the zonal and vertical
// integrals and the layer-band vertical integrals for the globe and for each
// sub-basin, in tera joules. Basin results are derived from the same
// per-cell heat content as the global results.
func (in *Integrator) HeatContent(theta *sparse.DenseArray) (Diagnostics, error) {
	g := in.grid
	full, err := IntegrateHeatContent(theta, in.constants.Rho, in.constants.Cp,
		g.E1T, g.E2T, g.E3T0, in.correction, g.TMask, in.bound)
	if err != nil {
		return nil, err
	}
	d := make(Diagnostics)
	in.reduce(d, "OHC", "Ocean Heat Content", TeraJoule, full, "glo", in.bands)
	for _, name := range g.BasinNames() {
		basinFull, err := RestrictToBasin(full, g.Basins[name])
		if err != nil {
			return nil, err
		}
		in.reduce(d, "OHC", "Ocean Heat Content", TeraJoule, basinFull, name, in.bands)
	}
	return d, nil
}

// MassTransport calculates the meridional mass transport from
// meridional velocity [m/s] with shape [nz, ny, nx]. The result holds the
// zonal and vertical integrals for the globe and for each sub-basin,
// in Sverdrups.
func (in *Integrator) MassTransport(v *sparse.DenseArray) (Diagnostics, error) {
	g := in.grid
	full, err := IntegrateMassTransport(v, g.E1V, g.E3T0, in.correction, g.VMask, in.bound)
	if err != nil {
		return nil, err
	}
	d := make(Diagnostics)
	in.reduce(d, "psi", "Meridional Mass Transport", Sverdrup, full, "glo", nil)
	for _, name := range g.BasinNames() {
		basinFull, err := RestrictToBasin(full, g.Basins[name])
		if err != nil {
			return nil, err
		}
		in.reduce(d, "psi", "Meridional Mass Transport", Sverdrup, basinFull, name, nil)
	}
	return d, nil
}

// reduce adds the zonal, vertical and band integrals of full to d.
func (in *Integrator) reduce(d Diagnostics, prefix, title string, u ReportUnit, full *sparse.DenseArray, region string, bands []LayerBand) {
	base := prefix + "_" + region
	long := basinTitle(region) + " " + title
	d[base+"_zonal"] = Variable{
		Dims:        []string{"lev", "j"},
		Description: long + " (zonal integral)",
		Units:       u.Name,
		Data:        u.Report(ZonalSum(full)),
	}
	d[base+"_vert"] = Variable{
		Dims:        []string{"j", "i"},
		Description: long + " (vertical integral)",
		Units:       u.Name,
		Data:        u.Report(VerticalSum(full)),
	}
	for _, b := range bands {
		d[base+"_vert_"+b.Name] = Variable{
			Dims:        []string{"j", "i"},
			Description: fmt.Sprintf("%s %s (vertical integral)", long, bandDescription(b)),
			Units:       u.Name,
			Data:        u.Report(BandSum(full, b)),
		}
	}
}

// bandDescription describes the depth range of a layer band.
func bandDescription(b LayerBand) string {
	parts := strings.SplitN(b.Name, "_", 2)
	if len(parts) == 2 && !strings.HasPrefix(b.Name, "lev") {
		if parts[1] == "inf" {
			return fmt.Sprintf("from %s m to bottom", parts[0])
		}
		if parts[0] == "0" {
			return fmt.Sprintf("from surface to %s m", parts[1])
		}
		return fmt.Sprintf("from %s m to %s m", parts[0], parts[1])
	}
	return fmt.Sprintf("from level %d to %d", b.Start, b.End)
}

// FieldStatistics calculates the vertical mean and the global and
// sub-basin zonal means of a [nz, ny, nx] field located at grid point p.
// name is used as the variable name prefix, e.g. "theta".
func (in *Integrator) FieldStatistics(name, title, units string, field *sparse.DenseArray, p GridPoint) (Diagnostics, error) {
	g := in.grid
	mask, err := g.Mask(p)
	if err != nil {
		return nil, err
	}
	e1, err := g.E1(p)
	if err != nil {
		return nil, err
	}
	if g.HDepT == nil {
		return nil, fmt.Errorf("omet: %s vertical mean: grid has no ocean floor depth (hdept)", name)
	}
	d := make(Diagnostics)
	vert, err := VerticalMean(field, g.E3T0, in.correction, mask, g.HDepT, in.bound)
	if err != nil {
		return nil, err
	}
	d[name+"_glo_vert"] = Variable{
		Dims:        []string{"j", "i"},
		Description: "Global " + title + " (vertical mean)",
		Units:       units,
		Data:        vert,
	}
	regions := append([]string{"glo"}, g.BasinNames()...)
	for _, region := range regions {
		var basin *sparse.DenseArray
		if region != "glo" {
			basin = g.Basins[region]
		}
		zonal, err := ZonalMean(field, e1, mask, basin, in.bound)
		if err != nil {
			return nil, err
		}
		d[name+"_"+region+"_zonal"] = Variable{
			Dims:        []string{"lev", "j"},
			Description: basinTitle(region) + " " + title + " (zonal mean)",
			Units:       units,
			Data:        zonal,
		}
	}
	return d, nil
}
