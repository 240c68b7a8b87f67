// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Tests for plotting related functionality.

package analysis

import (
	"math"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getLumPoints fixture provides a sine-varying luminance series resembling a
// real scan.
func getLumPoints() []LumPoint {
	points := make([]LumPoint, 0, 100)
	for i := 0; i < 100; i++ {
		points = append(points, LumPoint{
			TimestampSec: float64(i) / 20,
			Luminance:    math.Abs(math.Sin(float64(i)*0.05)) * 255,
		})
	}
	return points
}

func Test_CreateLuminancePlot(t *testing.T) {
	points := getLumPoints()

	got, err := CreateLuminancePlot(points, 80, 180)
	require.NoError(t, err)

	assert.Equal(t, "Time (seconds)", got.X.Label.Text)
	assert.Equal(t, "Mean luminance", got.Y.Label.Text)
	assert.Equal(t, 0.0, got.Y.Min)
	assert.Equal(t, 255.0, got.Y.Max)
}

func Test_CreateLuminancePlot_Empty(t *testing.T) {
	_, err := CreateLuminancePlot(nil, 80, 180)
	assert.NoError(t, err, "Empty series should still produce a valid plot")
}

func Test_CreateHistogramPlot(t *testing.T) {
	points := getLumPoints()
	values := make([]float64, len(points))
	for i, v := range points {
		values[i] = v.Luminance
	}

	got, err := CreateHistogramPlot(values, "Mean luminance")
	require.NoError(t, err)
	assert.Equal(t, "Mean luminance", got.X.Label.Text)
}

func Test_MultiPlotLuminance(t *testing.T) {
	outFile := path.Join(t.TempDir(), "luminance.png")

	err := MultiPlotLuminance(getLumPoints(), "test video", outFile, 80, 180)
	require.NoError(t, err)
	assert.FileExists(t, outFile)
}
