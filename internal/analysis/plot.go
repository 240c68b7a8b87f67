// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Plot generation related functionality.

package analysis

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	defaultPlotWidth  = vg.Centimeter * 24
	defaultPlotHeight = vg.Centimeter * 7
)

// A custom color palette: color1 as base color and color2 as a darker variant.
var ColorPalette = []color.RGBA{
	// red1
	{R: 230, G: 57, B: 70, A: 255},
	// red2
	{R: 143, G: 35, B: 43, A: 255},
	// green1
	{R: 84, G: 184, B: 50, A: 255},
	// green2
	{R: 50, G: 110, B: 30, A: 255},
	// blue1
	{R: 63, G: 55, B: 201, A: 255},
	// blue2
	{R: 51, G: 45, B: 163, A: 255},
	// purple1
	{R: 86, G: 11, B: 173, A: 255},
	// purple2
	{R: 62, G: 8, B: 125, A: 255},
}

// LumPoint is a luminance measurement of a sampled frame positioned on the
// stream timeline.
type LumPoint struct {
	TimestampSec float64
	Luminance    float64
}

// CreateLuminancePlot creates a luminance-over-time plot with exposure
// threshold lines.
func CreateLuminancePlot(points []LumPoint, under, over float64) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Time (seconds)"
	p.Y.Label.Text = "Mean luminance"
	// Luminance domain is fixed, keep the whole band visible so threshold
	// lines always land inside.
	p.Y.Min = 0
	p.Y.Max = 255

	lumXY := make(plotter.XYs, len(points))
	for i, v := range points {
		lumXY[i].X = v.TimestampSec
		lumXY[i].Y = v.Luminance
	}
	lumLine, err := plotter.NewLine(lumXY)
	if err != nil {
		return p, fmt.Errorf("CreateLuminancePlot() creating new line: %w", err)
	}
	lumLine.Color = ColorPalette[4]

	p.Add(lumLine)
	p.Add(plotter.NewGrid())

	var xMax float64
	if n := len(points); n > 0 {
		xMax = points[n-1].TimestampSec
	}
	underLine, underLabel := horizontalLineWithLabel(under, 0, xMax, fmt.Sprintf("under-exposure (%.0f)", under))
	overLine, overLabel := horizontalLineWithLabel(over, 0, xMax, fmt.Sprintf("over-exposure (%.0f)", over))
	p.Add(underLine, underLabel, overLine, overLabel)

	return p, nil
}

// CreateHistogramPlot creates histogram plot for given luminance values.
func CreateHistogramPlot(values []float64, name string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = name
	p.Y.Label.Text = "N"

	// We are going to mutate values slice, so make a copy to avoid mangling
	// underlying array and creating unexpected sideffect in caller's scope.
	lValues := make([]float64, len(values))
	copy(lValues, values)

	// A number of bins to use for histogram.
	var bins int = 64

	// Make sure values are sorted.
	sort.Float64s(lValues)

	pHist, err := plotter.NewHist(plotter.Values(lValues), bins)
	if err != nil {
		return p, fmt.Errorf("CreateHistogramPlot() creating new histogram: %w", err)
	}
	pHist.Color = color.Transparent
	pHist.FillColor = ColorPalette[7]

	p.Add(pHist)
	p.Add(plotter.NewGrid())

	return p, nil
}

// MultiPlotLuminance will create luminance multi plot and save it to a file.
//
// Resulting plot includes the luminance timeline with threshold lines and a
// luminance histogram in one canvas.
func MultiPlotLuminance(points []LumPoint, title, outFile string, under, over float64) (err error) {
	// Create a 2D slice to hold subplots. This is the sad state of gonum's API
	// at this point unfortunately.
	const rows, cols = 2, 1
	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, cols)
	}

	values := make([]float64, len(points))
	for i, v := range points {
		values[i] = v.Luminance
	}

	plots[0][0], err = CreateLuminancePlot(points, under, over)
	if err != nil {
		return err
	}

	plots[1][0], err = CreateHistogramPlot(values, "Mean luminance")
	if err != nil {
		return err
	}

	// Tweak titles and labels to have better layout and make plots less busy.
	plots[0][0].Title.Text = title + "\n\nSampled frame luminance"
	plots[1][0].Title.Text = "Luminance Histogram"

	img := vgimg.New(defaultPlotWidth, defaultPlotHeight*rows)
	dc := draw.New(img)

	t := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadY: vg.Points(10),
	}

	canvases := plot.Align(plots, t, dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			if plots[j][i] != nil {
				plots[j][i].Draw(canvases[j][i])
			}
		}
	}

	w, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("MultiPlotLuminance() creating png file: %w", err)
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("MultiPlotLuminance() failed writing png file: %w", err)
	}

	return nil
}

// horizontalLine is helper to create a horizontal line.
func horizontalLine(y, xmin, xmax float64) *plotter.Line {
	line, err := plotter.NewLine(plotter.XYs{
		{X: xmin, Y: y},
		{X: xmax, Y: y},
	})
	// Unlikely to have error here - so just panic in that case.
	if err != nil {
		log.Panic(err)
	}
	return line
}

// horizontalLineWithLabel wraps horizontalLine and adds label.
func horizontalLineWithLabel(y, xMin, xMax float64, label string) (*plotter.Line, *plotter.Labels) {
	hLine := horizontalLine(y, xMin, xMax)
	hLine.Color = color.RGBA{R: 156, G: 67, B: 162, A: 255}
	hLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	hLabel, _ := plotter.NewLabels(plotter.XYLabels{
		XYs: plotter.XYs{
			{X: xMin, Y: y},
		},
		Labels: []string{
			label,
		},
	})
	hLabel.Offset.X = 5
	hLabel.Offset.Y = 5

	return hLine, hLabel
}
