// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Pure pipeline tests over in-memory frame source and sink, no external
// media tools involved.

package exposure_test

import (
	"errors"
	"io"
	"testing"

	"github.com/evolution-gaming/relight/internal/exposure"
	"github.com/evolution-gaming/relight/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource is FrameSource backed by a frame slice.
type memSource struct {
	frames []*video.Frame
	next   int
}

func (s *memSource) ReadFrame(f *video.Frame) error {
	if s.next >= len(s.frames) {
		return io.EOF
	}
	copy(f.Pix, s.frames[s.next].Pix)
	s.next++
	return nil
}

func (s *memSource) Close() error { return nil }

// memSink is FrameSink collecting deep copies of written frames. failAt
// triggers a write error at given frame index, -1 disables failure
// injection.
type memSink struct {
	frames []*video.Frame
	failAt int
}

func newMemSink() *memSink {
	return &memSink{failAt: -1}
}

func (s *memSink) WriteFrame(f *video.Frame) error {
	if s.failAt == len(s.frames) {
		return errors.New("injected write failure")
	}
	s.frames = append(s.frames, f.Clone())
	return nil
}

func (s *memSink) Close() error { return nil }

// fixUniformFrames fixture provides n uniform gray frames with given channel
// values.
func fixUniformFrames(n, w, h int, values []byte) []*video.Frame {
	frames := make([]*video.Frame, 0, n)
	for i := 0; i < n; i++ {
		f := video.NewFrame(w, h)
		v := values[i%len(values)]
		f.Fill(v, v, v)
		frames = append(frames, f)
	}
	return frames
}

func fixMeta(w, h int, frameRate string) video.Metadata {
	return video.Metadata{Width: w, Height: h, FrameRate: frameRate}
}

func Test_SampleInterval(t *testing.T) {
	tests := map[string]struct {
		fps  float64
		rate float64
		want int
	}{
		"Once per second at 30fps": {fps: 30, rate: 1, want: 30},
		"Five per second at 20fps": {fps: 20, rate: 5, want: 4},
		"Interval floors":          {fps: 29.97, rate: 1, want: 29},
		"Rate above fps clamps":    {fps: 10, rate: 20, want: 1},
		"Rate equals fps":          {fps: 25, rate: 25, want: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, exposure.SampleInterval(tc.fps, tc.rate))
		})
	}
}

// Every input frame comes out exactly once, in original order.
func Test_Pipeline_OrderAndCountPreserved(t *testing.T) {
	// Distinct well-exposed frames: values stay strictly between default
	// thresholds so no correction fires and frame identity is checkable.
	values := make([]byte, 100)
	for i := range values {
		values[i] = byte(90 + i%80)
	}
	src := &memSource{frames: fixUniformFrames(100, 8, 6, values)}
	sink := newMemSink()

	p := exposure.NewPipeline(exposure.DefaultOptions(), nil)
	res, err := p.Run(src, sink, fixMeta(8, 6, "20/1"))

	require.NoError(t, err)
	assert.Equal(t, 100, res.FramesTotal)
	require.Len(t, sink.frames, 100)
	for i, f := range sink.frames {
		assert.Equal(t, src.frames[i].Pix, f.Pix, "frame %d out of order or modified", i)
	}
	assert.Zero(t, res.Brightened)
	assert.Zero(t, res.Darkened)
}

// 100 frames at 20 fps analysed 5 times per second: interval is 4, frames
// 0, 4, ..., 96 are sampled, all others pass through verbatim.
func Test_Pipeline_SamplingScenario(t *testing.T) {
	const frameCount = 100
	src := &memSource{frames: fixUniformFrames(frameCount, 8, 6, []byte{40})}
	sink := newMemSink()

	var sampled []int
	opts := exposure.DefaultOptions()
	opts.SampleRate = 5
	obs := func(e exposure.Event) {
		sampled = append(sampled, e.FrameNum)
	}

	res, err := exposure.NewPipeline(opts, obs).Run(src, sink, fixMeta(8, 6, "20/1"))
	require.NoError(t, err)

	wantSampled := make([]int, 0, 25)
	for i := 0; i < frameCount; i += 4 {
		wantSampled = append(wantSampled, i)
	}
	assert.Equal(t, wantSampled, sampled)
	assert.Equal(t, 25, res.FramesSampled)
	assert.Equal(t, 25, res.Brightened, "all sampled dark frames should be brightened")

	// Non-sampled frames are byte-identical to input, sampled dark frames
	// got gain 1.2 applied: round(1.2*40) = 48.
	require.Len(t, sink.frames, frameCount)
	for i, f := range sink.frames {
		if i%4 == 0 {
			assert.Equal(t, byte(48), f.Pix[0], "frame %d should be brightened", i)
		} else {
			assert.Equal(t, src.frames[i].Pix, f.Pix, "frame %d should pass through verbatim", i)
		}
	}
}

// A sampled frame with luminance strictly between thresholds is never
// modified.
func Test_Pipeline_WellExposedUntouched(t *testing.T) {
	src := &memSource{frames: fixUniformFrames(5, 4, 4, []byte{81, 100, 128, 150, 179})}
	sink := newMemSink()

	opts := exposure.DefaultOptions()
	// Sample every frame.
	opts.SampleRate = 100

	var events []exposure.Event
	obs := func(e exposure.Event) { events = append(events, e) }

	res, err := exposure.NewPipeline(opts, obs).Run(src, sink, fixMeta(4, 4, "20/1"))
	require.NoError(t, err)

	assert.Equal(t, 5, res.FramesSampled)
	assert.Zero(t, res.Brightened)
	assert.Zero(t, res.Darkened)
	for i, f := range sink.frames {
		assert.Equal(t, src.frames[i].Pix, f.Pix)
	}
	for _, e := range events {
		assert.Equal(t, exposure.JudgmentNormal, e.Judgment)
		assert.Equal(t, 1.0, e.Gain)
	}
}

// Fully black frame is brightened, fully white frame is darkened with the
// inverse gain.
func Test_Pipeline_BlackAndWhiteScenario(t *testing.T) {
	src := &memSource{frames: fixUniformFrames(2, 4, 4, []byte{0, 255})}
	sink := newMemSink()

	opts := exposure.Options{
		SampleRate:             100, // sample every frame
		UnderExposureThreshold: 70,
		OverExposureThreshold:  190,
		CorrectionFactor:       1.3,
	}

	var events []exposure.Event
	obs := func(e exposure.Event) { events = append(events, e) }

	res, err := exposure.NewPipeline(opts, obs).Run(src, sink, fixMeta(4, 4, "20/1"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Brightened)
	assert.Equal(t, 1, res.Darkened)

	require.Len(t, events, 2)
	assert.Equal(t, exposure.JudgmentUnderExposed, events[0].Judgment)
	assert.Equal(t, 1.3, events[0].Gain)
	assert.Equal(t, exposure.JudgmentOverExposed, events[1].Judgment)
	assert.InDelta(t, 1/1.3, events[1].Gain, 1e-9)

	// Black stays black under multiplicative gain, white becomes
	// clamp(round(255/1.3)) = 196 on every channel.
	require.Len(t, sink.frames, 2)
	for _, v := range sink.frames[0].Pix {
		assert.Equal(t, byte(0), v)
	}
	for _, v := range sink.frames[1].Pix {
		assert.Equal(t, byte(196), v)
	}
}

// Corrected bright frame channels clamp to 255, never wrap.
func Test_Pipeline_Saturation(t *testing.T) {
	src := &memSource{frames: fixUniformFrames(1, 4, 4, []byte{200})}
	sink := newMemSink()

	opts := exposure.Options{
		SampleRate: 100,
		// Threshold shifted up so that a bright frame is still judged
		// under-exposed and gets brightened.
		UnderExposureThreshold: 250,
		OverExposureThreshold:  254,
		CorrectionFactor:       2,
	}

	_, err := exposure.NewPipeline(opts, nil).Run(src, sink, fixMeta(4, 4, "20/1"))
	require.NoError(t, err)

	require.Len(t, sink.frames, 1)
	for _, v := range sink.frames[0].Pix {
		assert.Equal(t, byte(255), v)
	}
}

func Test_Pipeline_EmptyStream(t *testing.T) {
	src := &memSource{}
	sink := newMemSink()

	res, err := exposure.NewPipeline(exposure.DefaultOptions(), nil).Run(src, sink, fixMeta(4, 4, "20/1"))
	require.NoError(t, err)
	assert.Zero(t, res.FramesTotal)
	assert.Zero(t, res.FramesSampled)
	assert.Empty(t, sink.frames)
}

func Test_Pipeline_WriteFaults(t *testing.T) {
	t.Run("Failure on first write is output open error", func(t *testing.T) {
		src := &memSource{frames: fixUniformFrames(3, 4, 4, []byte{128})}
		sink := newMemSink()
		sink.failAt = 0

		_, err := exposure.NewPipeline(exposure.DefaultOptions(), nil).Run(src, sink, fixMeta(4, 4, "20/1"))

		var ooe *exposure.OutputOpenError
		assert.ErrorAs(t, err, &ooe)
	})

	t.Run("Mid-stream failure is stream fault", func(t *testing.T) {
		src := &memSource{frames: fixUniformFrames(3, 4, 4, []byte{128})}
		sink := newMemSink()
		sink.failAt = 2

		res, err := exposure.NewPipeline(exposure.DefaultOptions(), nil).Run(src, sink, fixMeta(4, 4, "20/1"))

		var fault *exposure.StreamFault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, 2, fault.FrameNum)
		assert.Equal(t, 2, res.FramesTotal)
	})
}

func Test_Judgment_String(t *testing.T) {
	assert.Equal(t, "normal", exposure.JudgmentNormal.String())
	assert.Equal(t, "under-exposed", exposure.JudgmentUnderExposed.String())
	assert.Equal(t, "over-exposed", exposure.JudgmentOverExposed.String())
}
