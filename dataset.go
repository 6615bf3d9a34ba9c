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
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spf13/cast"
)

// Dataset is an open NetCDF file.
type Dataset interface {
	// Variables returns the names of the variables in the file.
	Variables() []string

	// Lengths returns the shape of variable v. For variables with an
	// unlimited dimension, the first length is the number of records.
	Lengths(v string) ([]int, error)

	// Read returns variable v converted to float64. If record is
	// negative, the whole variable is returned. Otherwise only the given
	// index along the first dimension is returned, without that dimension.
	// Packed values are unpacked with the scale_factor and add_offset
	// attributes when present.
	Read(v string, record int) (*sparse.DenseArray, error)

	// FillValues returns the values of the _FillValue and missing_value
	// attributes of variable v.
	FillValues(v string) []float64

	Close() error
}

var (
	cdfMagic1 = []byte("CDF\x01")
	cdfMagic2 = []byte("CDF\x02")
	hdfMagic  = []byte("\x89HDF")
)

// OpenDataset opens the NetCDF file at path. Classic and 64-bit offset
// files are read with the cdf package, and NetCDF-4 (HDF5) files are read
// with the native netcdf package.
func OpenDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("omet: reading %s: %v", path, err)
	}
	switch {
	case bytes.Equal(magic, cdfMagic1), bytes.Equal(magic, cdfMagic2):
		ff, err := cdf.Open(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("omet: opening %s: %v", path, err)
		}
		return &cdfDataset{f: f, ff: ff}, nil
	case bytes.Equal(magic, hdfMagic):
		f.Close()
		g, err := netcdf.Open(path)
		if err != nil {
			return nil, fmt.Errorf("omet: opening %s: %v", path, err)
		}
		return &nativeDataset{g: g}, nil
	}
	f.Close()
	return nil, fmt.Errorf("omet: %s is not a NetCDF file", path)
}

type cdfDataset struct {
	f  *os.File
	ff *cdf.File
}

func (d *cdfDataset) Variables() []string { return d.ff.Header.Variables() }

func (d *cdfDataset) Close() error { return d.f.Close() }

func (d *cdfDataset) Lengths(v string) ([]int, error) {
	l := d.ff.Header.Lengths(v)
	if l == nil {
		return nil, fmt.Errorf("omet: variable %s not in file %s", v, d.f.Name())
	}
	l = append([]int(nil), l...)
	if len(l) > 0 && l[0] == 0 {
		fi, err := d.f.Stat()
		if err != nil {
			return nil, err
		}
		l[0] = int(d.ff.Header.NumRecs(fi.Size()))
	}
	return l, nil
}

func (d *cdfDataset) Read(v string, record int) (*sparse.DenseArray, error) {
	dims, err := d.Lengths(v)
	if err != nil {
		return nil, err
	}
	var start, end []int
	if record >= 0 {
		if len(dims) == 0 || record >= dims[0] {
			return nil, fmt.Errorf("omet: record %d of variable %s not in file %s", record, v, d.f.Name())
		}
		start, end = make([]int, len(dims)), make([]int, len(dims))
		start[0], end[0] = record, record
		for i := 1; i < len(dims); i++ {
			end[i] = dims[i] - 1
		}
		dims = dims[1:]
	}
	data, err := readCDFVar(d.ff, v, start, end, dims...)
	if err != nil {
		return nil, fmt.Errorf("omet: reading %s: %v", d.f.Name(), err)
	}
	unpack(data, d.attribute(v, "scale_factor"), d.attribute(v, "add_offset"), d.FillValues(v))
	return data, nil
}

func (d *cdfDataset) attribute(v, name string) interface{} {
	return d.ff.Header.GetAttribute(v, name)
}

func (d *cdfDataset) FillValues(v string) []float64 {
	return fillValues(d.attribute(v, "_FillValue"), d.attribute(v, "missing_value"))
}

// readCDFVar reads the values of variable v between the inclusive corners
// start and end into an array with the given shape. If shape is empty,
// the shape of v is used and start and end must be nil.
func readCDFVar(f *cdf.File, v string, start, end []int, shape ...int) (*sparse.DenseArray, error) {
	if len(shape) == 0 {
		shape = f.Header.Lengths(v)
		if shape == nil {
			return nil, fmt.Errorf("variable %s not in file", v)
		}
		shape = append([]int(nil), shape...)
	}
	n := 1
	for _, l := range shape {
		n *= l
	}
	r := f.Reader(v, start, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", v, err)
	}
	data := sparse.ZerosDense(shape...)
	if err := copyFloats(data.Elements, buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", v, err)
	}
	return data, nil
}

// copyFloats copies the numeric values in the slice src into dst.
func copyFloats(dst []float64, src interface{}) error {
	switch s := src.(type) {
	case []float64:
		copy(dst, s)
	case []float32:
		for i, val := range s {
			dst[i] = float64(val)
		}
	case []int32:
		for i, val := range s {
			dst[i] = float64(val)
		}
	case []int16:
		for i, val := range s {
			dst[i] = float64(val)
		}
	case []uint8:
		for i, val := range s {
			dst[i] = float64(val)
		}
	default:
		return fmt.Errorf("unsupported data type %T", src)
	}
	return nil
}

type nativeDataset struct {
	g api.Group
}

func (d *nativeDataset) Variables() []string { return d.g.ListVariables() }

func (d *nativeDataset) Close() error {
	d.g.Close()
	return nil
}

func (d *nativeDataset) Lengths(v string) ([]int, error) {
	vg, err := d.g.GetVarGetter(v)
	if err != nil {
		return nil, fmt.Errorf("omet: variable %s: %v", v, err)
	}
	n := vg.Len()
	if n == 0 {
		return []int{0}, nil
	}
	first, err := vg.GetSlice(0, 1)
	if err != nil {
		return nil, fmt.Errorf("omet: variable %s: %v", v, err)
	}
	shape := nestedShape(reflect.ValueOf(first))
	if len(shape) == 0 {
		return shape, nil
	}
	shape[0] = int(n)
	return shape, nil
}

func (d *nativeDataset) Read(v string, record int) (*sparse.DenseArray, error) {
	vg, err := d.g.GetVarGetter(v)
	if err != nil {
		return nil, fmt.Errorf("omet: variable %s: %v", v, err)
	}
	var vals interface{}
	if record < 0 {
		vals, err = vg.Values()
	} else {
		if int64(record) >= vg.Len() {
			return nil, fmt.Errorf("omet: record %d of variable %s not in file", record, v)
		}
		vals, err = vg.GetSlice(int64(record), int64(record)+1)
	}
	if err != nil {
		return nil, fmt.Errorf("omet: variable %s: %v", v, err)
	}
	rv := reflect.ValueOf(vals)
	shape := nestedShape(rv)
	if record >= 0 {
		shape = shape[1:]
	}
	data := sparse.ZerosDense(shape...)
	if _, err := flatten(rv, data.Elements); err != nil {
		return nil, fmt.Errorf("omet: variable %s: %v", v, err)
	}
	attrs := vg.Attributes()
	unpack(data, nativeAttr(attrs, "scale_factor"), nativeAttr(attrs, "add_offset"),
		fillValues(nativeAttr(attrs, "_FillValue"), nativeAttr(attrs, "missing_value")))
	return data, nil
}

func (d *nativeDataset) FillValues(v string) []float64 {
	vg, err := d.g.GetVarGetter(v)
	if err != nil {
		return nil
	}
	attrs := vg.Attributes()
	return fillValues(nativeAttr(attrs, "_FillValue"), nativeAttr(attrs, "missing_value"))
}

func nativeAttr(attrs api.AttributeMap, name string) interface{} {
	if attrs == nil {
		return nil
	}
	val, ok := attrs.Get(name)
	if !ok {
		return nil
	}
	return val
}

// nestedShape returns the shape of a value made up of nested slices.
// Scalars have an empty shape.
func nestedShape(v reflect.Value) []int {
	var shape []int
	for v.Kind() == reflect.Slice {
		shape = append(shape, v.Len())
		if v.Len() == 0 {
			break
		}
		v = v.Index(0)
	}
	return shape
}

// flatten copies the numeric values of v, which may be made up of nested
// slices, into dst in row-major order and returns the number copied.
func flatten(v reflect.Value, dst []float64) (int, error) {
	switch v.Kind() {
	case reflect.Slice:
		var n int
		for i := 0; i < v.Len(); i++ {
			m, err := flatten(v.Index(i), dst[n:])
			if err != nil {
				return n, err
			}
			n += m
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		dst[0] = v.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst[0] = float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst[0] = float64(v.Uint())
	default:
		return 0, fmt.Errorf("unsupported data type %v", v.Type())
	}
	return 1, nil
}

// attrFloat converts a numeric attribute value, which may be a scalar or
// the first element of a slice, to float64.
func attrFloat(a interface{}) (float64, bool) {
	if a == nil {
		return 0, false
	}
	if rv := reflect.ValueOf(a); rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return 0, false
		}
		a = rv.Index(0).Interface()
	}
	if _, ok := a.(string); ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(a)
	if err != nil {
		return 0, false
	}
	return f, true
}

func fillValues(attrs ...interface{}) []float64 {
	var fills []float64
	for _, a := range attrs {
		if f, ok := attrFloat(a); ok {
			fills = append(fills, f)
		}
	}
	return fills
}

// unpack applies the NetCDF packing attributes to data in place.
// Values equal to one of fills are left packed so that they can
// still be recognized as missing.
func unpack(data *sparse.DenseArray, scale, offset interface{}, fills []float64) {
	s, sok := attrFloat(scale)
	o, ook := attrFloat(offset)
	if !sok && !ook {
		return
	}
	if !sok {
		s = 1
	}
values:
	for i, v := range data.Elements {
		for _, f := range fills {
			if v == f {
				continue values
			}
		}
		data.Elements[i] = v*s + o
	}
}
