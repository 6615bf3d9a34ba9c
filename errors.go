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
	"errors"
	"fmt"

	"github.com/ctessum/sparse"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrShapeMismatch          = errors.New("shape mismatch")
	ErrUnhandledFillValue     = errors.New("unhandled fill value")
	ErrInvalidBathymetryIndex = errors.New("invalid bathymetry index")
)

// ShapeMismatchError is returned when grid metrics, masks or fields
// do not share the expected extents.
type ShapeMismatchError struct {
	Name     string // name of the offending array
	Expected []int
	Got      []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("omet: %s: shape mismatch: expected %v but got %v", e.Name, e.Expected, e.Got)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// FillValueError is returned when a wet grid cell holds a value
// that looks like a missing-data sentinel.
type FillValueError struct {
	Index []int   // location of the first offending cell
	Value float64 // the offending value
	Bound float64
}

func (e *FillValueError) Error() string {
	return fmt.Sprintf("omet: unhandled fill value %g at wet cell %v (bound %g); "+
		"fill values must be replaced with zero before integration", e.Value, e.Index, e.Bound)
}

// Is reports whether target is ErrUnhandledFillValue.
func (e *FillValueError) Is(target error) bool { return target == ErrUnhandledFillValue }

// BathymetryIndexError is returned when a bathymetry index is outside
// of [0, number of levels].
type BathymetryIndexError struct {
	J, I   int
	Index  float64
	Levels int
}

func (e *BathymetryIndexError) Error() string {
	return fmt.Sprintf("omet: invalid bathymetry index %g at (j=%d, i=%d); valid range is [0, %d]",
		e.Index, e.J, e.I, e.Levels)
}

// Is reports whether target is ErrInvalidBathymetryIndex.
func (e *BathymetryIndexError) Is(target error) bool { return target == ErrInvalidBathymetryIndex }

// checkShape returns a *ShapeMismatchError if a is nil or its
// shape is not equal to expected.
func checkShape(name string, a *sparse.DenseArray, expected ...int) error {
	if a == nil {
		return &ShapeMismatchError{Name: name + " (missing)", Expected: expected}
	}
	if !sameShape(a.Shape, expected) {
		return &ShapeMismatchError{Name: name, Expected: expected, Got: a.Shape}
	}
	return nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, n := range a {
		if b[i] != n {
			return false
		}
	}
	return true
}
