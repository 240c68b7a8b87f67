// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Frame luminance measurement.

package exposure

import "github.com/evolution-gaming/relight/internal/video"

// Rec.601 luma weights, same reduction ffmpeg/OpenCV use for BGR to
// grayscale conversion.
const (
	lumaB = 0.114
	lumaG = 0.587
	lumaR = 0.299
)

// MeanLuminance returns mean Rec.601 luminance of the frame in [0, 255].
//
// Plain accumulation loop on purpose: this runs per pixel on the hot path,
// materializing a float slice per frame just to aggregate it would be waste.
func MeanLuminance(f *video.Frame) float64 {
	if f.Pixels() == 0 {
		return 0
	}

	var sum float64
	pix := f.Pix
	for i := 0; i+2 < len(pix); i += 3 {
		sum += lumaB*float64(pix[i]) + lumaG*float64(pix[i+1]) + lumaR*float64(pix[i+2])
	}

	return sum / float64(f.Pixels())
}
