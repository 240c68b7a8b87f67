// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Typed errors for pipeline boundary conditions.
//
// Callers are expected to branch on these with errors.As instead of matching
// printed messages.

package exposure

import "fmt"

// InputOpenError reports source video that could not be opened or decoded.
type InputOpenError struct {
	Path string
	Err  error
}

func (e *InputOpenError) Error() string {
	return fmt.Sprintf("unable to open input video %s: %v", e.Path, e.Err)
}

func (e *InputOpenError) Unwrap() error {
	return e.Err
}

// OutputOpenError reports destination that could not be created, either due
// to unusable path or encoder/codec rejected by the media tool.
type OutputOpenError struct {
	Path string
	Err  error
}

func (e *OutputOpenError) Error() string {
	return fmt.Sprintf("unable to create output video %s: %v", e.Path, e.Err)
}

func (e *OutputOpenError) Unwrap() error {
	return e.Err
}

// StreamFault reports a mid-stream read or write failure once streaming has
// started. FrameNum is the index of the frame being processed when the fault
// surfaced.
type StreamFault struct {
	FrameNum int
	Err      error
}

func (e *StreamFault) Error() string {
	return fmt.Sprintf("stream fault at frame %d: %v", e.FrameNum, e.Err)
}

func (e *StreamFault) Unwrap() error {
	return e.Err
}
