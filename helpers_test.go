// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Reusable helpers and fixtures for tests.
package main

import (
	"math"
	"os"
	"path"
	"testing"

	"github.com/evolution-gaming/relight/internal/tools"
	"github.com/evolution-gaming/relight/internal/video"
)

// fixRequireMediaTools fixture skips test in environment without ffmpeg and
// ffprobe installed.
func fixRequireMediaTools(t *testing.T) {
	t.Helper()
	if _, err := tools.FfmpegPath(); err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}
	if _, err := tools.FfprobePath(); err != nil {
		t.Skipf("ffprobe not available: %v", err)
	}
}

// fixEncodeVideo fixture encodes frameCount gray frames produced by level
// function and returns resulting video file path.
func fixEncodeVideo(t *testing.T, frameCount int, level func(i int) byte) string {
	t.Helper()

	ffmpegPath, err := tools.FfmpegPath()
	if err != nil {
		t.Fatalf("ffmpeg not found: %v", err)
	}

	outFile := path.Join(t.TempDir(), "fixture.mp4")
	meta := video.Metadata{Width: 64, Height: 48, FrameRate: "20/1"}
	cfg := video.WriterConfig{FfmpegPath: ffmpegPath, Codec: "mpeg4"}

	w, err := video.NewWriter(&cfg, outFile, meta)
	if err != nil {
		t.Fatalf("Unexpected error creating writer: %v", err)
	}

	frame := video.NewFrame(meta.Width, meta.Height)
	for i := 0; i < frameCount; i++ {
		v := level(i)
		frame.Fill(v, v, v)
		if err := w.WriteFrame(frame); err != nil {
			t.Fatalf("Unexpected error writing frame: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Unexpected error closing writer: %v", err)
	}

	return outFile
}

// fixVideoFile fixture provides a clip with sine-varying gray level covering
// dark, normal and bright frames.
func fixVideoFile(t *testing.T) string {
	t.Helper()
	return fixEncodeVideo(t, 100, func(i int) byte {
		return byte(127.5 + 127.5*math.Sin(float64(i)*0.2))
	})
}

// fixDarkVideoFile fixture provides a uniformly under-exposed clip.
func fixDarkVideoFile(t *testing.T) string {
	t.Helper()
	return fixEncodeVideo(t, 30, func(int) byte { return 40 })
}

// fixAnyFile fixture provides some existing non-media file.
func fixAnyFile(t *testing.T) string {
	t.Helper()
	fPath := path.Join(t.TempDir(), "some.file")
	if err := os.WriteFile(fPath, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return fPath
}
