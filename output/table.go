/*
Copyright © 2020 the atmos authors.
This file is part of atmos.

atmos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

atmos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with atmos.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package output loads the tabular results written by the PHOTOCHEM and
// CLIMA models, summarizes them and exports them to spreadsheets.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/atmos-tools/atmos/internal/fortran"
	"gonum.org/v1/gonum/mat"
)

// Table holds model output with one row per atmospheric layer.
type Table struct {
	// Columns holds the column names from the header line.
	Columns []string

	// Data holds the values, with one column per name in Columns.
	Data *mat.Dense
}

// Len returns the number of rows in t.
func (t *Table) Len() int {
	r, _ := t.Data.Dims()
	return r
}

// Index returns the position of the named column, or -1 if there is
// no such column.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the values in the named column.
func (t *Table) Column(name string) ([]float64, error) {
	j := t.Index(name)
	if j < 0 {
		return nil, fmt.Errorf("output: no column named %q", name)
	}
	return mat.Col(nil, j, t.Data), nil
}

// Format describes one kind of model output file. The first line of the file
// holds the column names and the remaining lines hold whitespace separated
// numbers.
type Format struct {
	Name string

	// HeaderSep separates column names in the header line.
	HeaderSep *regexp.Regexp
}

var (
	// Photochem is the format of PHOTOCHEM/OUTPUT/profile.pt.
	Photochem = Format{Name: "photochem", HeaderSep: regexp.MustCompile(` {5,}`)}

	// Clima is the format of CLIMA/IO/clima_last.tab.
	Clima = Format{Name: "clima", HeaderSep: regexp.MustCompile(` {4,}`)}
)

// LoadPhotochem loads a PHOTOCHEM profile file.
func LoadPhotochem(path string) (*Table, error) { return Photochem.Load(path) }

// LoadClima loads a CLIMA output table.
func LoadClima(path string) (*Table, error) { return Clima.Load(path) }

// Load reads the file at path.
func (f Format) Load(path string) (*Table, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	defer r.Close()
	t, err := f.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return t, nil
}

// Read reads a table from r. If the data rows hold one more value than the
// header has names, the first value of each row is taken to be an unlabeled
// index and dropped. If the header has one more name than the rows have
// values, the first name is dropped.
func (f Format) Read(r io.Reader) (*Table, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, fmt.Errorf("output: reading %s header: %w", f.Name, err)
		}
		return nil, fmt.Errorf("output: %s file is empty", f.Name)
	}
	var names []string
	for _, n := range f.HeaderSep.Split(s.Text(), -1) {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	var data []float64
	skip := -1
	lineNum := 1
	for s.Scan() {
		lineNum++
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		if skip < 0 {
			switch len(fields) - len(names) {
			case 0:
				skip = 0
			case 1:
				skip = 1
			case -1:
				names = names[1:]
				skip = 0
			default:
				return nil, fmt.Errorf("output: %s line %d: %d values for %d column names",
					f.Name, lineNum, len(fields), len(names))
			}
		}
		if len(fields)-skip != len(names) {
			return nil, fmt.Errorf("output: %s line %d: have %d values, want %d",
				f.Name, lineNum, len(fields)-skip, len(names))
		}
		for _, v := range fields[skip:] {
			x, err := fortran.ParseFloat(v)
			if err != nil {
				return nil, fmt.Errorf("output: %s line %d: %v", f.Name, lineNum, err)
			}
			data = append(data, x)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("output: reading %s: %w", f.Name, err)
	}
	if len(data) == 0 || len(names) == 0 {
		return nil, fmt.Errorf("output: %s file has no data", f.Name)
	}
	return &Table{
		Columns: names,
		Data:    mat.NewDense(len(data)/len(names), len(names), data),
	}, nil
}
