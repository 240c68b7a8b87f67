// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Video metadata related constructs.

package video

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata type contains useful video stream metadata.
type Metadata struct {
	CodecName  string  `json:"codec_name,omitempty"`
	FrameRate  string  `json:"r_frame_rate,omitempty"`
	Duration   float64 `json:"duration,omitempty,string"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	BitRate    int     `json:"bit_rate,omitempty,string"`
	FrameCount int     `json:"nb_read_frames,omitempty,string"`
}

// MetadataExtractor is the interface that wraps ExtractMetadata method.
type MetadataExtractor interface {
	ExtractMetadata(videoFile string) (Metadata, error)
}

// FPS returns frame rate as a float calculated from FrameRate fraction.
//
// ffprobe reports r_frame_rate as a fraction string e.g. "30000/1001", but a
// plain "25" is also accepted.
func (m *Metadata) FPS() (float64, error) {
	s := strings.TrimSpace(m.FrameRate)
	num, den, found := strings.Cut(s, "/")

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing frame rate %q: %w", m.FrameRate, err)
	}
	if !found {
		return n, nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing frame rate %q: %w", m.FrameRate, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("parsing frame rate %q: zero denominator", m.FrameRate)
	}

	return n / d, nil
}
