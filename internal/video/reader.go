// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Sequential frame decoding via ffmpeg subprocess.
//
// Container parsing and colorspace conversion are delegated to ffmpeg: frames
// are streamed out of a child process as raw BGR24 over a pipe. This is the
// usual way to do frame-level video I/O in Go without dragging in cgo codec
// bindings.

package video

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"

	"github.com/evolution-gaming/relight/internal/logging"
	"github.com/evolution-gaming/relight/internal/lw"
)

// Cap on captured ffmpeg stderr, protects from a runaway process flooding
// output.
const stderrBufferSize = 512 * 1024

// Reader decodes frames sequentially from a video file.
type Reader struct {
	meta      Metadata
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderrBuf bytes.Buffer
	frameSize int
	closed    bool
}

// NewReader starts ffmpeg decoding subprocess for given input file.
//
// Frame geometry is fixed by meta, caller is expected to have extracted
// metadata from the same file beforehand.
func NewReader(ffmpegPath, inputFile string, meta Metadata) (*Reader, error) {
	args := []string{
		"-hide_banner",
		"-v", "error",
		"-i", inputFile,
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	}

	r := &Reader{
		meta:      meta,
		frameSize: meta.Width * meta.Height * pixelSize,
	}

	r.cmd = exec.Command(ffmpegPath, args...) //#nosec G204
	r.cmd.Stderr = lw.LimitWriter(&r.stderrBuf, stderrBufferSize)

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("NewReader() stdout pipe: %w", err)
	}
	r.stdout = stdout

	logging.Debugf("Running decoder: %s", r.cmd)
	if err := r.cmd.Start(); err != nil {
		return nil, fmt.Errorf("NewReader() starting ffmpeg: %w", err)
	}

	return r, nil
}

// Meta returns metadata of the stream being decoded.
func (r *Reader) Meta() Metadata {
	return r.meta
}

// ReadFrame fills f.Pix with the next decoded frame.
//
// Returns io.EOF when the stream is exhausted. A trailing short read is
// treated as end of stream, decode faults are not distinguished from normal
// exhaustion on the read side.
func (r *Reader) ReadFrame(f *Frame) error {
	if f.Size() != r.frameSize {
		return fmt.Errorf("ReadFrame() frame geometry %dx%d does not match stream %dx%d",
			f.Width, f.Height, r.meta.Width, r.meta.Height)
	}

	_, err := io.ReadFull(r.stdout, f.Pix)
	switch {
	case err == nil:
		return nil
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return io.EOF
	default:
		return fmt.Errorf("ReadFrame() reading from decoder: %w", err)
	}
}

// Close terminates the decoding subprocess and releases the pipe.
//
// Safe to call multiple times, only the first call does the work.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	// Closing stdout unblocks (and eventually kills via EPIPE) ffmpeg in case
	// stream was not fully drained.
	_ = r.stdout.Close()
	if err := r.cmd.Wait(); err != nil {
		// An early consumer exit is not an error condition for the reader,
		// just log what the decoder had to say.
		logging.Debugf("decoder exited: %s, stderr: %s", err, r.stderrBuf.String())
	}

	return nil
}
