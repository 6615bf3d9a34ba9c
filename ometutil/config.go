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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/omet-research/omet"
	"github.com/spf13/cast"
)

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="omet_output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("omet: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// checkInputFile makes sure that an input file is specified and exists.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("omet: you need to specify the %s configuration variable", name)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("omet: %s: %v", name, err)
	}
	return f, nil
}

// toIntSliceE converts a list option to a slice of integers. Values from
// command-line flags arrive as JSON-style strings, and values from
// configuration files as lists.
func toIntSliceE(s interface{}) ([]int, error) {
	if str, ok := s.(string); ok {
		str = strings.TrimSpace(str)
		if str == "" || str == "[]" {
			return nil, nil
		}
		if !strings.HasPrefix(str, "[") {
			str = "[" + str + "]"
		}
		var o []int
		if err := json.Unmarshal([]byte(str), &o); err != nil {
			return nil, err
		}
		return o, nil
	}
	return cast.ToIntSliceE(s)
}

// GetStringMapString returns a map[string]string from the given
// configuration variable, which may be a map or a JSON object string.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if strings.TrimSpace(v) == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("omet: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("omet: invalid type for %s: %#v", varName, i)
	}
}

// parseBasins converts the BasinMask option, which maps each basin short
// name to "file:variable" or to "file", into basin sources. When the
// variable is left out, it is taken from the dataset profile.
func parseBasins(masks map[string]string, prof Profile) (map[string]omet.BasinSource, error) {
	out := make(map[string]omet.BasinSource, len(masks))
	for basin, loc := range masks {
		basin = os.ExpandEnv(basin)
		loc = os.ExpandEnv(loc)
		src := omet.BasinSource{File: loc}
		if i := strings.LastIndex(loc, ":"); i > 0 && !strings.ContainsAny(loc[i+1:], `/\`) {
			src.File, src.Var = loc[:i], loc[i+1:]
		}
		if src.Var == "" {
			src.Var = prof.Basins[basin]
		}
		if src.File == "" || src.Var == "" {
			return nil, fmt.Errorf("omet: BasinMask for basin %q must be \"file:variable\" but is %q", basin, loc)
		}
		out[basin] = src
	}
	return out, nil
}

// fieldTemplate joins an input template with the input directory,
// unless the template is already an absolute path.
func fieldTemplate(dir, template string) string {
	template = os.ExpandEnv(template)
	if dir == "" || filepath.IsAbs(template) {
		return template
	}
	return filepath.Join(os.ExpandEnv(dir), template)
}

// GridConfigFromViper returns the grid settings held in cfg for the given profile.
func GridConfigFromViper(cfg *viper.Viper, prof Profile) (GridConfig, error) {
	mesh, err := checkInputFile("MeshMask", cfg.GetString("MeshMask"))
	if err != nil {
		return GridConfig{}, err
	}
	masks, err := GetStringMapString("BasinMask", cfg)
	if err != nil {
		return GridConfig{}, err
	}
	basins, err := parseBasins(masks, prof)
	if err != nil {
		return GridConfig{}, err
	}
	depths, err := toIntSliceE(cfg.Get("BandDepths"))
	if err != nil {
		return GridConfig{}, fmt.Errorf("omet: BandDepths: %v", err)
	}
	gc := GridConfig{
		MeshMask:    mesh,
		Basins:      basins,
		MeshVars:    omet.DefaultMeshVars,
		FillBound:   cfg.GetFloat64("FillBound"),
		Clamp:       cfg.GetBool("ClampBathymetry"),
		BandIndices: prof.BandIndices,
		Constants:   omet.DefaultConstants,
	}
	for _, d := range depths {
		gc.BandDepths = append(gc.BandDepths, float64(d))
	}
	if rho := cfg.GetFloat64("Rho"); rho != 0 {
		gc.Constants.Rho = rho
	}
	if cp := cfg.GetFloat64("Cp"); cp != 0 {
		gc.Constants.Cp = cp
	}
	return gc, nil
}

// RunConfigFromViper returns the diagnostic run settings held in cfg.
func RunConfigFromViper(cfg *viper.Viper) (*RunConfig, error) {
	prof, err := GetProfile(cfg.GetString("Dataset"), os.ExpandEnv(cfg.GetString("ProfileFile")))
	if err != nil {
		return nil, err
	}
	gc, err := GridConfigFromViper(cfg, prof)
	if err != nil {
		return nil, err
	}
	outputFile, err := checkOutputFile(cfg.GetString("OutputFile"))
	if err != nil {
		return nil, err
	}
	dir := cfg.GetString("Input.Dir")
	rc := &RunConfig{
		Grid:    gc,
		Profile: prof,
		Calendar: omet.Calendar{
			StartYear: cfg.GetInt("StartYear"),
			EndYear:   cfg.GetInt("EndYear"),
		},
		Workers:    cfg.GetInt("workers"),
		OutputFile: outputFile,
		LogFile:    checkLogFile(cfg.GetString("LogFile"), outputFile),
	}
	rc.Theta = fieldTemplate(dir, firstNonEmpty(cfg.GetString("Input.Theta"), prof.Theta.Template))
	rc.U = fieldTemplate(dir, firstNonEmpty(cfg.GetString("Input.U"), prof.U.Template))
	rc.V = fieldTemplate(dir, firstNonEmpty(cfg.GetString("Input.V"), prof.V.Template))
	if err := rc.Calendar.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
