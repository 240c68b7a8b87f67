// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Sequential frame encoding via ffmpeg subprocess.

package video

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/evolution-gaming/relight/internal/logging"
	"github.com/evolution-gaming/relight/internal/lw"
	"github.com/google/shlex"
)

// DefaultEncoderArgsTemplate is encoder part of ffmpeg command line. Which
// codec to use is application configuration, not something to hard-code.
const DefaultEncoderArgsTemplate = "-c:v {{.Codec}} -pix_fmt yuv420p"

// WriterConfig exposes parameters for Writer creation.
type WriterConfig struct {
	FfmpegPath          string
	Codec               string
	EncoderArgsTemplate string
}

// Writer encodes raw frames sequentially into a video file.
//
// Output stream always uses the same geometry and frame rate as given input
// Metadata.
type Writer struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderrBuf bytes.Buffer
	frameSize int
	outFile   string
	closed    bool
}

// NewWriter starts ffmpeg encoding subprocess writing to outFile.
//
// Frame rate, width and height are taken from meta so that output geometry
// always matches the source. Encoder arguments are rendered from the
// configured template.
func NewWriter(cfg *WriterConfig, outFile string, meta Metadata) (*Writer, error) {
	// Fail fast on unusable destination, ffmpeg reports this late and less
	// clearly.
	if dir := filepath.Dir(outFile); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("NewWriter() output directory: %w", err)
		}
	}

	encoderArgs, err := renderEncoderArgs(cfg)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner",
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		// Frame rate is passed through as exact fraction from ffprobe.
		"-framerate", meta.FrameRate,
		"-i", "pipe:0",
	}
	args = append(args, encoderArgs...)
	args = append(args, outFile)

	w := &Writer{
		frameSize: meta.Width * meta.Height * pixelSize,
		outFile:   outFile,
	}

	w.cmd = exec.Command(cfg.FfmpegPath, args...) //#nosec G204
	w.cmd.Stderr = lw.LimitWriter(&w.stderrBuf, stderrBufferSize)

	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("NewWriter() stdin pipe: %w", err)
	}
	w.stdin = stdin

	logging.Debugf("Running encoder: %s", w.cmd)
	if err := w.cmd.Start(); err != nil {
		return nil, fmt.Errorf("NewWriter() starting ffmpeg: %w", err)
	}

	return w, nil
}

// WriteFrame sends one raw frame to the encoder.
func (w *Writer) WriteFrame(f *Frame) error {
	if f.Size() != w.frameSize {
		return fmt.Errorf("WriteFrame() frame geometry %dx%d does not match output stream",
			f.Width, f.Height)
	}

	if _, err := w.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("WriteFrame() writing to encoder: %w: %s", err, w.stderrTail())
	}
	return nil
}

// Close flushes and finalizes the encoded video.
//
// Must be called on every exit path, including aborts, otherwise the encoder
// subprocess is leaked. Safe to call multiple times.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_ = w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("Close() encoder for %s: %w: %s", w.outFile, err, w.stderrTail())
	}
	return nil
}

// stderrTail returns captured encoder diagnostics for error reporting.
func (w *Writer) stderrTail() string {
	s := strings.TrimSpace(w.stderrBuf.String())
	if s == "" {
		return "(no encoder output)"
	}
	return s
}

// renderEncoderArgs renders encoder args template and splits result into
// exec-ready arguments.
func renderEncoderArgs(cfg *WriterConfig) ([]string, error) {
	tplText := cfg.EncoderArgsTemplate
	if tplText == "" {
		tplText = DefaultEncoderArgsTemplate
	}

	// Template requires a struct with exported fields.
	tplContext := struct {
		Codec string
	}{
		Codec: cfg.Codec,
	}

	tpl, err := template.New("encoder").Parse(tplText)
	if err != nil {
		return nil, fmt.Errorf("renderEncoderArgs() parse template: %w", err)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, tplContext); err != nil {
		return nil, fmt.Errorf("renderEncoderArgs() execute template: %w", err)
	}

	args, err := shlex.Split(sb.String())
	if err != nil {
		return nil, fmt.Errorf("renderEncoderArgs() split arguments: %w", err)
	}
	return args, nil
}
