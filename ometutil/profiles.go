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
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FieldSource locates one input field of a reanalysis product.
type FieldSource struct {
	// Var is the name of the variable in the input files.
	Var string

	// Template is the input file name, where [DATE] is replaced
	// by the date of the first record in the file.
	Template string
}

// Profile describes how the files of a reanalysis product are laid out.
type Profile struct {
	Name        string `toml:"-"`
	Description string

	// DateFormat is the Go time format of the [DATE] wild card.
	DateFormat string

	// RecordsPerFile is the number of monthly records in each input file.
	RecordsPerFile int

	Theta, U, V FieldSource

	// BandIndices are the level indices separating the heat content
	// layer bands. If empty, the bands are derived from the level depths.
	BandIndices []int

	// Basins gives the name of the mask variable for each sub-basin
	// in the basin mask file.
	Basins map[string]string
}

const builtinProfiles = `
[ORAS4]
Description = "ECMWF Ocean Reanalysis System 4 (ORCA1, 42 levels)"
DateFormat = "2006"
RecordsPerFile = 12
BandIndices = [22, 26, 30]
Basins = { atl = "tmaskatl" }
Theta = { Var = "thetao", Template = "thetao_oras4_1m_[DATE]_grid_T.nc" }
U = { Var = "uo", Template = "uo_oras4_1m_[DATE]_grid_U.nc" }
V = { Var = "vo", Template = "vo_oras4_1m_[DATE]_grid_V.nc" }

[GLORYS2V3]
Description = "Mercator Ocean GLORYS2V3 (ORCA025, 75 levels)"
DateFormat = "200601"
RecordsPerFile = 1
BandIndices = [39, 46, 54]
Basins = { atl = "tmaskatl" }
Theta = { Var = "votemper", Template = "T/GLORYS2V3_ORCA025_[DATE]15_*_gridT.nc" }
U = { Var = "vozocrtx", Template = "UV/GLORYS2V3_ORCA025_[DATE]15_*_gridUV.nc" }
V = { Var = "vomecrty", Template = "UV/GLORYS2V3_ORCA025_[DATE]15_*_gridUV.nc" }

[SODA3]
Description = "Simple Ocean Data Assimilation 3.4.2 monthly means"
DateFormat = "2006"
RecordsPerFile = 12
Basins = { atl = "tmaskatl" }
Theta = { Var = "temp", Template = "soda3.4.2_mn_ocean_reg_[DATE].nc" }
U = { Var = "u", Template = "soda3.4.2_mn_ocean_reg_[DATE].nc" }
V = { Var = "v", Template = "soda3.4.2_mn_ocean_reg_[DATE].nc" }
`

// DecodeProfiles reads dataset profiles from a TOML document where
// each table is a profile named after its key.
func DecodeProfiles(r io.Reader) (map[string]Profile, error) {
	var p map[string]Profile
	if _, err := toml.DecodeReader(r, &p); err != nil {
		return nil, fmt.Errorf("ometutil: decoding dataset profiles: %v", err)
	}
	for name, prof := range p {
		prof.Name = name
		if prof.RecordsPerFile == 0 {
			prof.RecordsPerFile = 1
		}
		p[name] = prof
	}
	return p, nil
}

// Profiles returns the built-in dataset profiles plus any profiles in
// profileFile, which take precedence. profileFile may be empty.
func Profiles(profileFile string) (map[string]Profile, error) {
	p, err := DecodeProfiles(strings.NewReader(builtinProfiles))
	if err != nil {
		return nil, err
	}
	if profileFile == "" {
		return p, nil
	}
	f, err := os.Open(profileFile)
	if err != nil {
		return nil, fmt.Errorf("ometutil: opening profile file: %v", err)
	}
	defer f.Close()
	user, err := DecodeProfiles(f)
	if err != nil {
		return nil, err
	}
	for name, prof := range user {
		p[name] = prof
	}
	return p, nil
}

// GetProfile returns the named profile.
func GetProfile(name, profileFile string) (Profile, error) {
	p, err := Profiles(profileFile)
	if err != nil {
		return Profile{}, err
	}
	prof, ok := p[name]
	if !ok {
		return Profile{}, fmt.Errorf("ometutil: unknown dataset %q; available datasets are %v", name, profileNames(p))
	}
	return prof, nil
}

func profileNames(p map[string]Profile) []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PrintProfiles writes a summary of the given profiles to w.
func PrintProfiles(w io.Writer, p map[string]Profile) {
	for _, name := range profileNames(p) {
		prof := p[name]
		fmt.Fprintf(w, "%s: %s\n", name, prof.Description)
		fmt.Fprintf(w, "  %d record(s) per file, date format %q\n", prof.RecordsPerFile, prof.DateFormat)
		for _, f := range []struct {
			label string
			src   FieldSource
		}{{"theta", prof.Theta}, {"u", prof.U}, {"v", prof.V}} {
			fmt.Fprintf(w, "  %-5s %-10s %s\n", f.label, f.src.Var, f.src.Template)
		}
		if len(prof.BandIndices) > 0 {
			fmt.Fprintf(w, "  layer band indices %v\n", prof.BandIndices)
		}
	}
}
