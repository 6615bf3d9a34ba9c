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
	"io"
	"io/ioutil"
	"sort"
	"sync"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// MonthsPerYear is the number of time steps in each year.
const MonthsPerYear = 12

// NextData is a type of function that returns data for the next time step.
// If there are no more time steps, it should return the io.EOF error.
type NextData func() (*sparse.DenseArray, error)

// Calendar is an inclusive range of years with monthly time steps.
type Calendar struct {
	StartYear, EndYear int
}

// Validate checks that the calendar covers at least one year.
func (c Calendar) Validate() error {
	if c.EndYear < c.StartYear {
		return fmt.Errorf("omet: end year %d is before start year %d", c.EndYear, c.StartYear)
	}
	return nil
}

// Years returns the number of years in c.
func (c Calendar) Years() int { return c.EndYear - c.StartYear + 1 }

// Steps returns the number of monthly time steps in c.
func (c Calendar) Steps() int { return c.Years() * MonthsPerYear }

// Date returns the year and month (1-12) of time step step.
func (c Calendar) Date(step int) (year, month int) {
	return c.StartYear + step/MonthsPerYear, step%MonthsPerYear + 1
}

// StepFunc calculates the diagnostics for time step step from the fields
// read for that step, in the order their sources were given to Run.
// It must not modify anything shared with other time steps.
type StepFunc func(step int, fields []*sparse.DenseArray) (Diagnostics, error)

// Run reads one field from each of the sources for every time step in cal
// and calculates the diagnostics for each step with fn. Fields are read in
// order on the calling goroutine; fn runs on the given number of worker
// goroutines. The results are stacked by time step into variables with
// leading (year, month) dimensions. The first error stops the run.
func Run(cal Calendar, workers int, log logrus.FieldLogger, fn StepFunc, sources ...NextData) (*Output, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("omet: no input fields to process")
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		log = l
	}

	type job struct {
		step   int
		fields []*sparse.DenseArray
	}
	nSteps := cal.Steps()
	results := make([]Diagnostics, nSteps)
	jobs := make(chan job)
	done := make(chan struct{})
	var once sync.Once
	var runErr error
	fail := func(err error) {
		once.Do(func() {
			runErr = err
			close(done)
		})
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-done:
					continue
				default:
				}
				year, month := cal.Date(j.step)
				d, err := fn(j.step, j.fields)
				if err != nil {
					fail(fmt.Errorf("omet: year %d month %d: %w", year, month, err))
					continue
				}
				results[j.step] = d
				log.WithFields(logrus.Fields{"year": year, "month": month}).Info("omet: finished time step")
			}
		}()
	}

read:
	for step := 0; step < nSteps; step++ {
		fields := make([]*sparse.DenseArray, len(sources))
		for i, next := range sources {
			data, err := next()
			if err != nil {
				if err == io.EOF {
					err = fmt.Errorf("omet: input %d ran out of data after %d of %d time steps", i, step, nSteps)
				}
				fail(err)
				break read
			}
			fields[i] = data
		}
		select {
		case jobs <- job{step: step, fields: fields}:
		case <-done:
			break read
		}
	}
	close(jobs)
	wg.Wait()
	if runErr != nil {
		return nil, runErr
	}
	return stackSteps(cal, results)
}

// stackSteps combines the per-step diagnostics into variables with
// leading (year, month) dimensions.
func stackSteps(cal Calendar, results []Diagnostics) (*Output, error) {
	o := new(Output)
	first := results[0]
	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := first[name]
		shape := append([]int{cal.Years(), MonthsPerYear}, v.Data.Shape...)
		data := sparse.ZerosDense(shape...)
		n := len(v.Data.Elements)
		for step, d := range results {
			sv, ok := d[name]
			if !ok {
				return nil, fmt.Errorf("omet: variable %s is missing from time step %d", name, step)
			}
			if !sameShape(sv.Data.Shape, v.Data.Shape) {
				return nil, &ShapeMismatchError{Name: name, Expected: v.Data.Shape, Got: sv.Data.Shape}
			}
			copy(data.Elements[step*n:(step+1)*n], sv.Data.Elements)
		}
		o.AddVariable(name, append([]string{"year", "month"}, v.Dims...), v.Description, v.Units, data)
	}
	return o, nil
}
