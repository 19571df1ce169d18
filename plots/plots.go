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

// Package plots draws vertical profiles of model output.
package plots

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atmos-tools/atmos/output"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Grid is a page of profile plots, one per output column, each drawn
// against altitude.
type Grid struct {
	// Altitude is the name of the column plotted on the Y axis.
	Altitude string

	// Columns are the columns to plot. If empty, the columns of the table
	// other than Altitude are plotted, in order, until the grid is full.
	Columns []string

	Rows, Cols    int
	Width, Height vg.Length
}

var (
	// PhotochemGrid plots PHOTOCHEM profiles.
	PhotochemGrid = Grid{Altitude: "Alt", Rows: 5, Cols: 3, Width: 17 * vg.Inch, Height: 21 * vg.Inch}

	// ClimaGrid plots CLIMA profiles.
	ClimaGrid = Grid{Altitude: "ALT", Rows: 3, Cols: 3, Width: 17 * vg.Inch, Height: 15 * vg.Inch}
)

func (g Grid) columns(t *output.Table) []string {
	if len(g.Columns) > 0 {
		return g.Columns
	}
	var o []string
	for _, c := range t.Columns {
		if c == g.Altitude {
			continue
		}
		if len(o) == g.Rows*g.Cols {
			break
		}
		o = append(o, c)
	}
	return o
}

// Draw plots t and writes the image to path. The image format is chosen by
// the file extension: .png, .jpg, .jpeg, or .tif.
func (g Grid) Draw(t *output.Table, path string) error {
	cols := g.columns(t)
	if len(cols) > g.Rows*g.Cols {
		return fmt.Errorf("plots: %d columns do not fit a %dx%d grid", len(cols), g.Rows, g.Cols)
	}
	enc, err := encoder(path)
	if err != nil {
		return err
	}
	alt, err := t.Column(g.Altitude)
	if err != nil {
		return fmt.Errorf("plots: %v", err)
	}

	img := vgimg.New(g.Width, g.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: g.Rows,
		Cols: g.Cols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	for i, c := range cols {
		p, err := profile(t, c, alt)
		if err != nil {
			return err
		}
		p.Draw(tiles.At(dc, i%g.Cols, i/g.Cols))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plots: %v", err)
	}
	if _, err := enc(img).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("plots: writing %s: %v", path, err)
	}
	return f.Close()
}

func profile(t *output.Table, column string, alt []float64) (*plot.Plot, error) {
	v, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("plots: %v", err)
	}
	xy := make(plotter.XYs, len(v))
	for i := range v {
		xy[i].X = v[i]
		xy[i].Y = alt[i]
	}
	p, err := plot.New()
	if err != nil {
		return nil, fmt.Errorf("plots: %v", err)
	}
	p.X.Label.Text = column
	p.Y.Label.Text = "Altitude"
	l, err := plotter.NewLine(xy)
	if err != nil {
		return nil, fmt.Errorf("plots: %s: %v", column, err)
	}
	l.Color = color.Black
	p.Add(l)
	return p, nil
}

// encoder returns the image encoder for the extension of path.
func encoder(path string) (func(*vgimg.Canvas) io.WriterTo, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return func(c *vgimg.Canvas) io.WriterTo { return vgimg.PngCanvas{Canvas: c} }, nil
	case ".jpg", ".jpeg":
		return func(c *vgimg.Canvas) io.WriterTo { return vgimg.JpegCanvas{Canvas: c} }, nil
	case ".tif", ".tiff":
		return func(c *vgimg.Canvas) io.WriterTo { return vgimg.TiffCanvas{Canvas: c} }, nil
	default:
		return nil, fmt.Errorf("plots: unsupported image format %q", ext)
	}
}
