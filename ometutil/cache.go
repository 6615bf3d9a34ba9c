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
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/omet-research/omet"
	"github.com/omet-research/omet/internal/hash"
	"github.com/sirupsen/logrus"
)

// GridConfig holds the settings needed to build an omet.Integrator.
type GridConfig struct {
	MeshMask  string
	Basins    map[string]omet.BasinSource
	MeshVars  omet.MeshVars
	Constants omet.Constants
	FillBound float64
	Clamp     bool

	// BandIndices are explicit level indices separating the layer bands.
	// If empty, BandDepths are used instead.
	BandIndices []int

	// BandDepths are the band boundaries in meters.
	BandDepths []float64
}

// GridCacheSize is the number of integrators kept in memory.
var GridCacheSize = 4

var (
	gridCache     *requestcache.Cache
	gridCacheInit sync.Once
)

type gridRequest struct {
	gc  GridConfig
	log logrus.FieldLogger
}

// key identifies gc together with the versions of the files it reads,
// so that editing the mesh or basin files invalidates cached grids.
func (gc GridConfig) key() (string, error) {
	mesh, err := hash.File(gc.MeshMask)
	if err != nil {
		return "", fmt.Errorf("omet: mesh mask: %v", err)
	}
	names := make([]string, 0, len(gc.Basins))
	for n := range gc.Basins {
		names = append(names, n)
	}
	sort.Strings(names)
	basins := make([]hash.FileVersion, len(names))
	for i, n := range names {
		if basins[i], err = hash.File(gc.Basins[n].File); err != nil {
			return "", fmt.Errorf("omet: basin %s: %v", n, err)
		}
	}
	return hash.Key(gc, mesh, basins), nil
}

// LoadIntegrator returns an integrator for the grid described by gc.
// Integrators are cached and concurrent requests for the same grid
// are only computed once. The returned integrator is shared and must
// not be modified.
func LoadIntegrator(ctx context.Context, gc GridConfig, log logrus.FieldLogger) (*omet.Integrator, error) {
	gridCacheInit.Do(func() {
		gridCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(gridRequest)
			return newIntegrator(r.gc, r.log)
		}, runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(GridCacheSize))
	})
	key, err := gc.key()
	if err != nil {
		return nil, err
	}
	req := gridCache.NewRequest(ctx, gridRequest{gc: gc, log: log}, key)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*omet.Integrator), nil
}

func newIntegrator(gc GridConfig, log logrus.FieldLogger) (*omet.Integrator, error) {
	log.WithField("file", gc.MeshMask).Info("omet: loading grid")
	g, err := omet.LoadGrid(gc.MeshMask, gc.Basins, gc.MeshVars)
	if err != nil {
		return nil, err
	}
	var bands []omet.LayerBand
	switch {
	case len(gc.BandIndices) > 0:
		bands, err = omet.BandsFromIndices(gc.BandIndices, g.Nz)
	case len(gc.BandDepths) > 0 && g.Depth != nil:
		bands, err = omet.BandsFromDepths(g.Depth, gc.BandDepths)
	}
	if err != nil {
		return nil, err
	}
	opts := []omet.Option{
		omet.WithLogger(log),
		omet.WithConstants(gc.Constants),
		omet.WithBathymetryClamp(gc.Clamp),
		omet.WithBands(bands),
	}
	if gc.FillBound > 0 {
		opts = append(opts, omet.WithFillBound(gc.FillBound))
	}
	return omet.NewIntegrator(g, opts...)
}
