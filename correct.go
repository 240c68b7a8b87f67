// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// relight tool's correct subcommand implementation.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/evolution-gaming/relight/internal/exposure"
	"github.com/evolution-gaming/relight/internal/logging"
)

// CreateCorrectCommand will create instance of CorrectApp.
func CreateCorrectCommand() *CorrectApp {
	longHelp := `Subcommand "correct" will stream video from input to output, measuring mean
luminance of sampled frames and applying linear brightness correction to
frames judged under- or over-exposed. Non-sampled frames pass through
unmodified. Flags -i and -o are mandatory.

Examples:

  relight correct -i dark_clip.mp4 -o fixed_clip.mp4
  relight correct -i clip.mp4 -o fixed.mp4 -sample-rate 5 -under 70 -over 190 -factor 1.3`

	defaults := exposure.DefaultOptions()

	app := &CorrectApp{
		fs: flag.NewFlagSet("correct", flag.ContinueOnError),
		gf: globalFlags{},
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInput, "i", "", "Input video file (mandatory)")
	app.fs.StringVar(&app.flOutput, "o", "", "Output video file (mandatory)")
	app.fs.Float64Var(&app.flSampleRate, "sample-rate", defaults.SampleRate, "Analysis rate in frames per second")
	app.fs.Float64Var(&app.flUnder, "under", defaults.UnderExposureThreshold, "Under-exposure luminance threshold [0-255]")
	app.fs.Float64Var(&app.flOver, "over", defaults.OverExposureThreshold, "Over-exposure luminance threshold [0-255]")
	app.fs.Float64Var(&app.flFactor, "factor", defaults.CorrectionFactor, "Brightness correction factor (>1 brightens under-exposed frames)")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// Make sure CorrectApp implements Commander interface.
var _ Commander = (*CorrectApp)(nil)

// CorrectApp is subcommand application context that implements Commander interface.
type CorrectApp struct {
	// Configuration object
	cfg *Config
	// FlagSet instance
	fs *flag.FlagSet
	// Input video file path
	flInput string
	// Output video file path
	flOutput string
	// Analysis sampling rate (frames per second)
	flSampleRate float64
	// Exposure thresholds
	flUnder float64
	flOver  float64
	// Correction gain factor
	flFactor float64
	// Global flags
	gf globalFlags
}

func (a *CorrectApp) Name() string {
	return a.fs.Name()
}

func (a *CorrectApp) Help() {
	a.fs.Usage()
}

// init will do CorrectApp state initialization.
func (a *CorrectApp) init(args []string) error {
	if err := a.fs.Parse(args); err != nil {
		return &AppError{
			exitCode: 2,
			msg:      fmt.Sprintf("%s usage error", a.Name()),
		}
	}

	if a.gf.Debug {
		logging.EnableDebugLogger()
	}

	// Input video file is mandatory.
	if a.flInput == "" {
		a.Help()
		return &AppError{
			exitCode: 2,
			msg:      "mandatory option -i is missing",
		}
	}

	// Output video file is mandatory.
	if a.flOutput == "" {
		a.Help()
		return &AppError{
			exitCode: 2,
			msg:      "mandatory option -o is missing",
		}
	}

	// Input video file should exist.
	if _, err := os.Stat(a.flInput); err != nil {
		a.Help()
		return &AppError{
			exitCode: 2,
			msg:      fmt.Sprintf("input video file does not exist? %s", err),
		}
	}

	if a.flSampleRate <= 0 {
		return &AppError{
			exitCode: 2,
			msg:      fmt.Sprintf("sample rate must be positive, got %v", a.flSampleRate),
		}
	}

	if a.flFactor <= 0 {
		return &AppError{
			exitCode: 2,
			msg:      fmt.Sprintf("correction factor must be positive, got %v", a.flFactor),
		}
	}

	// Load application configuration.
	c, err := LoadConfig(a.gf.ConfFile)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	a.cfg = &c

	return nil
}

// logJudgment routes pipeline events to log, one progress line per corrected
// sampled frame.
func logJudgment(e exposure.Event) {
	switch e.Judgment {
	case exposure.JudgmentUnderExposed:
		logging.Infof("Frame %d: under-exposed (mean luminance: %.2f), increasing brightness", e.FrameNum, e.Luminance)
	case exposure.JudgmentOverExposed:
		logging.Infof("Frame %d: over-exposed (mean luminance: %.2f), decreasing brightness", e.FrameNum, e.Luminance)
	default:
		logging.Debugf("Frame %d: well exposed (mean luminance: %.2f)", e.FrameNum, e.Luminance)
	}
}

// Run is main entry point into CorrectApp execution.
func (a *CorrectApp) Run(args []string) error {
	if err := a.init(args); err != nil {
		return err
	}

	logging.Debugf("Application configuration: %#v", a.cfg)
	// Check if configuration is valid.
	if err := a.cfg.Verify(); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("configuration validation: %s", err)}
	}

	opts := exposure.Options{
		SampleRate:             a.flSampleRate,
		UnderExposureThreshold: a.flUnder,
		OverExposureThreshold:  a.flOver,
		CorrectionFactor:       a.flFactor,
	}
	media := exposure.MediaConfig{
		FfmpegPath:          a.cfg.FfmpegPath.Value(),
		Codec:               a.cfg.OutputCodec.Value(),
		EncoderArgsTemplate: a.cfg.EncoderArgsTemplate.Value(),
	}

	logging.Infof("Start exposure correction: %s", a.flInput)
	res, err := exposure.Process(a.flInput, a.flOutput, opts, logJudgment, media)
	if err != nil {
		var inErr *exposure.InputOpenError
		var outErr *exposure.OutputOpenError
		switch {
		case errors.As(err, &inErr), errors.As(err, &outErr):
			return &AppError{exitCode: 1, msg: err.Error()}
		default:
			return &AppError{exitCode: 1, msg: fmt.Sprintf("exposure correction: %s", err)}
		}
	}

	logging.Infof("Processed %d frames: %d sampled, %d brightened, %d darkened",
		res.FramesTotal, res.FramesSampled, res.Brightened, res.Darkened)
	logging.Infof("Corrected video saved to: %s", a.flOutput)

	return nil
}
