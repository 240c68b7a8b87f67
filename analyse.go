// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// relight tool's analyse subcommand implementation.

package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/evolution-gaming/relight/internal/analysis"
	"github.com/evolution-gaming/relight/internal/exposure"
	"github.com/evolution-gaming/relight/internal/logging"
	"github.com/evolution-gaming/relight/internal/metric"
	"github.com/evolution-gaming/relight/internal/tools"
	"github.com/evolution-gaming/relight/internal/video"
	"github.com/jszwec/csvutil"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// JSON flavour of analysis report lives next to the CSV one.
const jsonReportFile = "report.json"

// CreateAnalyseCommand will create instance of AnalyseApp.
func CreateAnalyseCommand() *AnalyseApp {
	longHelp := `Subcommand "analyse" will scan video measuring mean luminance of sampled
frames without producing a corrected video. Results are written to output
directory as JSON report, CSV report and luminance plot. Flags -i and
-out-dir are mandatory.

Examples:

  relight analyse -i clip.mp4 -out-dir results
  relight analyse -i clip.mp4 -out-dir results -sample-rate 5`

	defaults := exposure.DefaultOptions()

	app := &AnalyseApp{
		fs:     flag.NewFlagSet("analyse", flag.ContinueOnError),
		gf:     globalFlags{},
		mStore: metric.NewStore(),
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInput, "i", "", "Input video file (mandatory)")
	app.fs.StringVar(&app.flOutDir, "out-dir", "", "Output directory to store results")
	app.fs.Float64Var(&app.flSampleRate, "sample-rate", defaults.SampleRate, "Analysis rate in frames per second")
	app.fs.Float64Var(&app.flUnder, "under", defaults.UnderExposureThreshold, "Under-exposure luminance threshold [0-255]")
	app.fs.Float64Var(&app.flOver, "over", defaults.OverExposureThreshold, "Over-exposure luminance threshold [0-255]")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// Make sure AnalyseApp implements Commander interface.
var _ Commander = (*AnalyseApp)(nil)

// AnalyseApp is subcommand application context that implements Commander interface.
type AnalyseApp struct {
	// Configuration object
	cfg *Config
	// FlagSet instance
	fs *flag.FlagSet
	// Input video file path
	flInput string
	// Output directory for analysis results
	flOutDir string
	// Analysis sampling rate (frames per second)
	flSampleRate float64
	// Exposure thresholds
	flUnder float64
	flOver  float64
	// Global flags
	gf globalFlags
	// Luminance measurement store
	mStore *metric.Store
}

func (a *AnalyseApp) Name() string {
	return a.fs.Name()
}

func (a *AnalyseApp) Help() {
	a.fs.Usage()
}

// lumSummary is aggregate of sampled frame luminance measurements.
type lumSummary struct {
	Mean         float64
	HarmonicMean float64
	Min          float64
	Max          float64
	StDev        float64
	Variance     float64
}

// analysisReport contains analyse subcommand execution result.
type analysisReport struct {
	Input          string
	Metadata       video.Metadata
	SampleInterval int
	Summary        lumSummary
	Records        []metric.Record
}

// WriteJSON writes analysis report as JSON.
func (r *analysisReport) WriteJSON(w *os.File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("marshaling analysis report: %w", err)
	}
	return nil
}

// init will do AnalyseApp state initialization.
func (a *AnalyseApp) init(args []string) error {
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

	// Output dir is mandatory.
	if a.flOutDir == "" {
		a.Help()
		return &AppError{
			exitCode: 2,
			msg:      "mandatory option -out-dir is missing",
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

	// Do not write over existing output directory.
	if isNonEmptyDir(a.flOutDir) {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("non-empty out dir: %s", a.flOutDir)}
	}

	if a.flSampleRate <= 0 {
		return &AppError{
			exitCode: 2,
			msg:      fmt.Sprintf("sample rate must be positive, got %v", a.flSampleRate),
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

// discardSink drops frames, analyse stage only measures and never encodes.
type discardSink struct{}

func (discardSink) WriteFrame(*video.Frame) error { return nil }

func (discardSink) Close() error { return nil }

// scan will run measurement stage: stream all frames through the pipeline
// with a discarding sink, recording sampled frame judgments into mStore.
func (a *AnalyseApp) scan() (video.Metadata, exposure.Result, error) {
	var res exposure.Result

	meta, err := tools.FfprobeExtractMetadata(a.flInput)
	if err != nil {
		return meta, res, fmt.Errorf("extracting metadata: %w", err)
	}
	fps, err := meta.FPS()
	if err != nil {
		return meta, res, fmt.Errorf("parsing frame rate: %w", err)
	}

	src, err := video.NewReader(a.cfg.FfmpegPath.Value(), a.flInput, meta)
	if err != nil {
		return meta, res, fmt.Errorf("opening decoder: %w", err)
	}
	defer src.Close()

	opts := exposure.DefaultOptions()
	opts.SampleRate = a.flSampleRate
	opts.UnderExposureThreshold = a.flUnder
	opts.OverExposureThreshold = a.flOver

	record := func(e exposure.Event) {
		id := a.mStore.Insert(metric.Record{
			FrameNum:     e.FrameNum,
			TimestampSec: float64(e.FrameNum) / fps,
			Luminance:    e.Luminance,
			Judgment:     e.Judgment.String(),
			Gain:         e.Gain,
		})
		logging.Debugf("Storing record (id=%v) with luminance measurement", id)
	}

	res, err = exposure.NewPipeline(opts, record).Run(src, discardSink{}, meta)
	if err != nil {
		return meta, res, fmt.Errorf("scanning %s: %w", a.flInput, err)
	}

	return meta, res, nil
}

// records returns stored measurements in frame order.
func (a *AnalyseApp) records() ([]metric.Record, error) {
	ids := a.mStore.GetIDs()
	records := make([]metric.Record, 0, len(ids))
	for _, id := range ids {
		r, err := a.mStore.Get(id)
		if err != nil {
			return nil, fmt.Errorf("getting record (id=%v) from metric store: %w", id, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// summarize aggregates luminance values over all sampled frames.
func summarize(records []metric.Record) lumSummary {
	var s lumSummary
	if len(records) == 0 {
		return s
	}

	values := make([]float64, 0, len(records))
	for _, r := range records {
		values = append(values, r.Luminance)
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.HarmonicMean = stat.HarmonicMean(values, nil)
	s.Variance = stat.Variance(values, nil)
	s.Mean, s.StDev = stat.MeanStdDev(values, nil)

	return s
}

// saveReports writes recorded measurements as JSON and CSV report files.
func (a *AnalyseApp) saveReports(rep *analysisReport) error {
	jsonPath := path.Join(a.flOutDir, jsonReportFile)
	jsonOut, err := os.Create(jsonPath)
	if err != nil {
		return fmt.Errorf("creating JSON report file: %w", err)
	}
	defer jsonOut.Close()
	if err := rep.WriteJSON(jsonOut); err != nil {
		return err
	}
	logging.Infof("JSON report done: %s", jsonPath)

	csvPath := path.Join(a.flOutDir, a.cfg.ReportFileName.Value())
	csvOut, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating CSV report file: %w", err)
	}
	defer csvOut.Close()

	w := csv.NewWriter(csvOut)
	if err := csvutil.NewEncoder(w).Encode(rep.Records); err != nil {
		return fmt.Errorf("writing CSV report: %w", err)
	}
	w.Flush()
	logging.Infof("CSV report done: %s", csvPath)

	return nil
}

// plot creates luminance plot for recorded measurements.
func (a *AnalyseApp) plot(records []metric.Record) error {
	base := path.Base(a.flInput)
	base = strings.TrimSuffix(base, path.Ext(base))
	plotFile := path.Join(a.flOutDir, base+"_luminance.png")

	points := make([]analysis.LumPoint, 0, len(records))
	for _, r := range records {
		points = append(points, analysis.LumPoint{
			TimestampSec: r.TimestampSec,
			Luminance:    r.Luminance,
		})
	}

	if err := analysis.MultiPlotLuminance(points, base, plotFile, a.flUnder, a.flOver); err != nil {
		return fmt.Errorf("creating luminance plot: %w", err)
	}
	logging.Infof("Luminance plot done: %s", plotFile)

	return nil
}

// Run is main entry point into AnalyseApp execution.
func (a *AnalyseApp) Run(args []string) error {
	if err := a.init(args); err != nil {
		return err
	}

	logging.Debugf("Application configuration: %#v", a.cfg)
	// Check if configuration is valid.
	if err := a.cfg.Verify(); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("configuration validation: %s", err)}
	}

	if err := os.MkdirAll(a.flOutDir, os.FileMode(0o755)); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("creating directory: %s", err)}
	}

	logging.Infof("Analysing %s", a.flInput)
	meta, res, err := a.scan()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	logging.Infof("Scanned %d frames, %d sampled", res.FramesTotal, res.FramesSampled)

	records, err := a.records()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	fps, err := meta.FPS()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	rep := &analysisReport{
		Input:          a.flInput,
		Metadata:       meta,
		SampleInterval: exposure.SampleInterval(fps, a.flSampleRate),
		Summary:        summarize(records),
		Records:        records,
	}

	if err := a.saveReports(rep); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	if err := a.plot(records); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	logging.Info("Done")
	return nil
}
