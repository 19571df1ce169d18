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

package output

import (
	"fmt"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Summary holds descriptive statistics for one output column.
type Summary struct {
	Column              string
	Min, Max, Mean, Std float64
}

// Summarize calculates statistics for every column in t. Std is the sample
// standard deviation.
func Summarize(t *Table) []Summary {
	o := make([]Summary, len(t.Columns))
	for j, name := range t.Columns {
		col := mat.Col(nil, j, t.Data)
		o[j] = Summary{
			Column: name,
			Min:    floats.Min(col),
			Max:    floats.Max(col),
			Mean:   stats.StatsMean(col),
			Std:    stats.StatsSampleStandardDeviation(col),
		}
	}
	return o
}

// Sheet is a table to be written to a named worksheet.
type Sheet struct {
	Name  string
	Table *Table
}

// WriteXLSX writes each table to its own worksheet in a new spreadsheet
// at path. The first row of each worksheet holds the column names.
func WriteXLSX(path string, sheets ...Sheet) error {
	f := xlsx.NewFile()
	for _, s := range sheets {
		sh, err := f.AddSheet(s.Name)
		if err != nil {
			return fmt.Errorf("output: adding sheet %s: %v", s.Name, err)
		}
		row := sh.AddRow()
		for _, c := range s.Table.Columns {
			row.AddCell().SetString(c)
		}
		nr, nc := s.Table.Data.Dims()
		for i := 0; i < nr; i++ {
			row := sh.AddRow()
			for j := 0; j < nc; j++ {
				row.AddCell().SetFloat(s.Table.Data.At(i, j))
			}
		}
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("output: saving %s: %v", path, err)
	}
	return nil
}
