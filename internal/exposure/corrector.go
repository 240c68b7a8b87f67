// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Saturating linear brightness correction.

package exposure

import (
	"math"

	"github.com/evolution-gaming/relight/internal/video"
)

// gainLUT maps each 8-bit channel value to its corrected value for a fixed
// gain. Channel domain is tiny, so a lookup table beats doing float math per
// pixel.
type gainLUT [256]byte

func makeGainLUT(gain float64) *gainLUT {
	var lut gainLUT
	for v := 0; v < len(lut); v++ {
		scaled := math.Round(gain * float64(v))
		switch {
		case scaled < 0:
			lut[v] = 0
		case scaled > 255:
			lut[v] = 255
		default:
			lut[v] = byte(scaled)
		}
	}
	return &lut
}

// apply rewrites pix in place through the lookup table.
func (l *gainLUT) apply(pix []byte) {
	for i, v := range pix {
		pix[i] = l[v]
	}
}

// ApplyGain scales every channel of every pixel by gain in place, with
// results clamped to [0, 255].
func ApplyGain(f *video.Frame, gain float64) {
	makeGainLUT(gain).apply(f.Pix)
}
