// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Pipeline front door wiring ffmpeg-backed source and sink.

package exposure

import (
	"errors"

	"github.com/evolution-gaming/relight/internal/logging"
	"github.com/evolution-gaming/relight/internal/tools"
	"github.com/evolution-gaming/relight/internal/video"
)

// MediaConfig carries external media tool configuration for Process.
type MediaConfig struct {
	FfmpegPath          string
	Codec               string
	EncoderArgsTemplate string
}

// Process runs the exposure-correcting pipeline from inputPath to
// outputPath.
//
// Input is validated before any output is created: a missing or undecodable
// source yields InputOpenError and leaves no file behind. An unusable
// destination yields OutputOpenError with input handle released. Both stream
// handles are released on every exit path.
func Process(inputPath, outputPath string, opts Options, observer Observer, media MediaConfig) (Result, error) {
	var res Result

	// Probing input doubles as the open check, and it happens strictly
	// before the output sink exists.
	meta, err := tools.FfprobeExtractMetadata(inputPath)
	if err != nil {
		return res, &InputOpenError{Path: inputPath, Err: err}
	}

	src, err := video.NewReader(media.FfmpegPath, inputPath, meta)
	if err != nil {
		return res, &InputOpenError{Path: inputPath, Err: err}
	}
	defer src.Close()

	wcfg := video.WriterConfig{
		FfmpegPath:          media.FfmpegPath,
		Codec:               media.Codec,
		EncoderArgsTemplate: media.EncoderArgsTemplate,
	}
	dst, err := video.NewWriter(&wcfg, outputPath, meta)
	if err != nil {
		return res, &OutputOpenError{Path: outputPath, Err: err}
	}

	res, runErr := NewPipeline(opts, observer).Run(src, dst, meta)

	// Closing the sink finalizes the container, an error here is still a
	// stream fault as far as the caller is concerned.
	if err := dst.Close(); err != nil && runErr == nil {
		runErr = &StreamFault{FrameNum: res.FramesTotal, Err: err}
	}

	var ooe *OutputOpenError
	if errors.As(runErr, &ooe) && ooe.Path == "" {
		ooe.Path = outputPath
	}

	if runErr == nil {
		logging.Debugf("Processed %d frames (%d sampled) from %s", res.FramesTotal, res.FramesSampled, inputPath)
	}
	return res, runErr
}
