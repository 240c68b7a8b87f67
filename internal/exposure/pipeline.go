// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Exposure-correcting frame pipeline.
//
// The pipeline is a single sequential pass: read frame, on sampled frames
// judge exposure and maybe rescale intensities, write frame out. Every input
// frame is written exactly once in original order. The pipeline itself does
// no I/O setup and no printing: it runs over FrameSource/FrameSink and
// reports sampled-frame judgments through an Observer callback.

package exposure

import (
	"errors"
	"fmt"
	"io"

	"github.com/evolution-gaming/relight/internal/video"
)

// Options control sampling and correction decisions.
type Options struct {
	// Desired analysis rate in frames per second. Actual sampling interval
	// is derived from native frame rate. Default 1.
	SampleRate float64
	// Mean luminance below which a frame is judged under-exposed.
	UnderExposureThreshold float64
	// Mean luminance above which a frame is judged over-exposed. Should be
	// greater than UnderExposureThreshold; overlapping bands are not
	// validated and simply behave incoherently.
	OverExposureThreshold float64
	// Multiplicative gain for correction. Under-exposed frames are scaled by
	// CorrectionFactor, over-exposed ones by its inverse.
	CorrectionFactor float64
}

// DefaultOptions returns pipeline options with stock thresholds.
func DefaultOptions() Options {
	return Options{
		SampleRate:             1,
		UnderExposureThreshold: 80,
		OverExposureThreshold:  180,
		CorrectionFactor:       1.2,
	}
}

// Judgment is exposure classification of a sampled frame.
type Judgment int

const (
	JudgmentNormal Judgment = iota
	JudgmentUnderExposed
	JudgmentOverExposed
)

func (j Judgment) String() string {
	switch j {
	case JudgmentUnderExposed:
		return "under-exposed"
	case JudgmentOverExposed:
		return "over-exposed"
	default:
		return "normal"
	}
}

// Event describes one sampled frame's exposure judgment. Emitted for every
// sampled frame, corrected or not.
type Event struct {
	FrameNum  int
	Luminance float64
	Judgment  Judgment
	// Gain applied to the frame, 1 when no correction took place.
	Gain float64
}

// Observer receives per-sampled-frame events.
type Observer func(Event)

// FrameSource is sequential frame producer, ReadFrame returns io.EOF on
// stream exhaustion.
type FrameSource interface {
	ReadFrame(*video.Frame) error
	Close() error
}

// FrameSink is sequential frame consumer preserving write order.
type FrameSink interface {
	WriteFrame(*video.Frame) error
	Close() error
}

// Result contains frame pipeline run counters.
type Result struct {
	FramesTotal   int
	FramesSampled int
	Brightened    int
	Darkened      int
}

// SampleInterval derives sampling interval in frames from native frame rate
// and desired analysis rate. Interval is clamped to minimum of 1, so
// analysis rates above the native frame rate degrade to sampling every
// frame.
func SampleInterval(nativeFPS, sampleRate float64) int {
	interval := int(nativeFPS / sampleRate)
	if interval < 1 {
		interval = 1
	}
	return interval
}

// Pipeline judges and corrects frames according to Options.
type Pipeline struct {
	opts     Options
	observer Observer
}

// NewPipeline creates a Pipeline. Observer may be nil in which case judgments
// are not reported.
func NewPipeline(opts Options, observer Observer) *Pipeline {
	return &Pipeline{opts: opts, observer: observer}
}

// judge classifies mean luminance and returns the gain to apply. Gain 1
// means no correction.
func (p *Pipeline) judge(luminance float64) (Judgment, float64) {
	switch {
	case luminance < p.opts.UnderExposureThreshold:
		return JudgmentUnderExposed, p.opts.CorrectionFactor
	case luminance > p.opts.OverExposureThreshold:
		return JudgmentOverExposed, 1 / p.opts.CorrectionFactor
	default:
		return JudgmentNormal, 1
	}
}

// Run executes the pipeline: streams all frames from src to dst, correcting
// sampled frames that fall outside exposure thresholds. Geometry and frame
// rate are taken from meta and are identical on both ends by construction.
//
// Neither src nor dst are closed by Run, caller owns both handles.
func (p *Pipeline) Run(src FrameSource, dst FrameSink, meta video.Metadata) (Result, error) {
	var res Result

	fps, err := meta.FPS()
	if err != nil {
		return res, fmt.Errorf("pipeline run: %w", err)
	}
	interval := SampleInterval(fps, p.opts.SampleRate)

	// Single in-flight frame buffer, overwritten each iteration.
	frame := video.NewFrame(meta.Width, meta.Height)

	for i := 0; ; i++ {
		err := src.ReadFrame(frame)
		if errors.Is(err, io.EOF) {
			// End of stream is not an error.
			break
		}
		if err != nil {
			return res, &StreamFault{FrameNum: i, Err: err}
		}

		if i%interval == 0 {
			res.FramesSampled++
			luminance := MeanLuminance(frame)
			judgment, gain := p.judge(luminance)

			switch judgment {
			case JudgmentUnderExposed:
				ApplyGain(frame, gain)
				res.Brightened++
			case JudgmentOverExposed:
				ApplyGain(frame, gain)
				res.Darkened++
			}

			if p.observer != nil {
				p.observer(Event{
					FrameNum:  i,
					Luminance: luminance,
					Judgment:  judgment,
					Gain:      gain,
				})
			}
		}

		if err := dst.WriteFrame(frame); err != nil {
			// Failure on the very first write means the encoder never got
			// going, most likely unusable destination or codec.
			if i == 0 {
				return res, &OutputOpenError{Err: err}
			}
			return res, &StreamFault{FrameNum: i, Err: err}
		}
		res.FramesTotal++
	}

	return res, nil
}
