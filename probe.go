// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// relight tool's probe subcommand implementation.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/evolution-gaming/relight/internal/logging"
	"github.com/evolution-gaming/relight/internal/tools"
)

// CreateProbeCommand will create instance of ProbeApp.
func CreateProbeCommand() *ProbeApp {
	longHelp := `Subcommand "probe" will print video stream metadata for given video file as
JSON.

Examples:

  relight probe -i clip.mp4`

	app := &ProbeApp{
		fs:  flag.NewFlagSet("probe", flag.ContinueOnError),
		gf:  globalFlags{},
		out: os.Stdout,
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInput, "i", "", "Input video file (mandatory)")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// Make sure ProbeApp implements Commander interface.
var _ Commander = (*ProbeApp)(nil)

// ProbeApp is probe subcommand context that implements Commander interface.
type ProbeApp struct {
	out io.Writer
	// FlagSet instance
	fs *flag.FlagSet
	// Input video file path
	flInput string
	// Global flags
	gf globalFlags
}

func (a *ProbeApp) Name() string {
	return a.fs.Name()
}

func (a *ProbeApp) Help() {
	a.fs.Usage()
}

// Run is main entry point into ProbeApp execution.
func (a *ProbeApp) Run(args []string) error {
	if err := a.fs.Parse(args); err != nil {
		return &AppError{
			exitCode: 2,
			msg:      "usage error",
		}
	}

	if a.gf.Debug {
		logging.EnableDebugLogger()
	}

	if a.flInput == "" {
		a.Help()
		return &AppError{
			exitCode: 2,
			msg:      "mandatory option -i is missing",
		}
	}

	// probe only depends on ffprobe being around.
	if _, err := tools.FfprobePath(); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("dependency ffprobe: %s", err)}
	}

	meta, err := tools.FfprobeExtractMetadata(a.flInput)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	return nil
}
