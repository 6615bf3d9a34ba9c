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
	"reflect"
	"testing"
)

func TestBandsFromDepths(t *testing.T) {
	depths := []float64{5, 100, 450, 700, 1500, 2500, 4000}
	bands, err := BandsFromDepths(depths, DefaultBoundaries)
	if err != nil {
		t.Fatal(err)
	}
	want := []LayerBand{
		{Name: "0_500", Start: 0, End: 3},
		{Name: "500_1000", Start: 3, End: 4},
		{Name: "1000_2000", Start: 4, End: 5},
		{Name: "2000_inf", Start: 5, End: 7},
	}
	if !reflect.DeepEqual(bands, want) {
		t.Errorf("have %v, want %v", bands, want)
	}
}

func TestBandsFromDepths_shallow(t *testing.T) {
	bands, err := BandsFromDepths([]float64{10, 50}, DefaultBoundaries)
	if err != nil {
		t.Fatal(err)
	}
	if len(bands) != 4 {
		t.Fatalf("have %d bands", len(bands))
	}
	if bands[0].End != 2 || bands[3].Start != 2 || bands[3].End != 2 {
		t.Errorf("bands = %v", bands)
	}
}

func TestBandsFromDepths_errors(t *testing.T) {
	if _, err := BandsFromDepths([]float64{10, 5}, DefaultBoundaries); err == nil {
		t.Error("decreasing depths should cause an error")
	}
	if _, err := BandsFromDepths([]float64{10, 50}, []float64{100, 50}); err == nil {
		t.Error("decreasing boundaries should cause an error")
	}
	if _, err := BandsFromDepths(nil, DefaultBoundaries); err == nil {
		t.Error("missing depths should cause an error")
	}
}

func TestBandsFromIndices(t *testing.T) {
	bands, err := BandsFromIndices([]int{22, 26, 30}, 42)
	if err != nil {
		t.Fatal(err)
	}
	want := []LayerBand{
		{Name: "lev0_22", Start: 0, End: 22},
		{Name: "lev22_26", Start: 22, End: 26},
		{Name: "lev26_30", Start: 26, End: 30},
		{Name: "lev30_42", Start: 30, End: 42},
	}
	if !reflect.DeepEqual(bands, want) {
		t.Errorf("have %v, want %v", bands, want)
	}
	if _, err := BandsFromIndices([]int{30, 22}, 42); err == nil {
		t.Error("decreasing indices should cause an error")
	}
	if _, err := BandsFromIndices([]int{50}, 42); err == nil {
		t.Error("indices past the bottom should cause an error")
	}
}

func TestValidateBands(t *testing.T) {
	tests := []struct {
		name  string
		bands []LayerBand
		ok    bool
	}{
		{"ok", []LayerBand{{Start: 0, End: 2}, {Start: 2, End: 4}}, true},
		{"gap", []LayerBand{{Start: 0, End: 1}, {Start: 2, End: 4}}, false},
		{"overlap", []LayerBand{{Start: 0, End: 3}, {Start: 2, End: 4}}, false},
		{"short", []LayerBand{{Start: 0, End: 3}}, false},
		{"none", nil, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateBands(test.bands, 4)
			if (err == nil) != test.ok {
				t.Errorf("err = %v", err)
			}
		})
	}
}
