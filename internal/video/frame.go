// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Raw video frame representation.

package video

// Channels per pixel for BGR24 pixel format.
const pixelSize = 3

// Frame is a single raw video frame in BGR24 pixel format.
//
// Pix holds interleaved 8-bit B, G, R channel values row by row, so its
// length is always Width*Height*3. Frame buffers are reused across pipeline
// iterations, ownership of Pix contents is only valid until the next read
// into the same Frame.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// NewFrame allocates a Frame for given geometry.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Pix:    make([]byte, width*height*pixelSize),
		Width:  width,
		Height: height,
	}
}

// Size returns Pix length in bytes for frame's geometry.
func (f *Frame) Size() int {
	return f.Width * f.Height * pixelSize
}

// Pixels returns the number of pixels in the frame.
func (f *Frame) Pixels() int {
	return f.Width * f.Height
}

// At returns B, G, R channel values of pixel at (x, y).
func (f *Frame) At(x, y int) (b, g, r byte) {
	i := (y*f.Width + x) * pixelSize
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Fill sets every pixel of the frame to given B, G, R value.
func (f *Frame) Fill(b, g, r byte) {
	for i := 0; i < len(f.Pix); i += pixelSize {
		f.Pix[i] = b
		f.Pix[i+1] = g
		f.Pix[i+2] = r
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Pix:    make([]byte, len(f.Pix)),
		Width:  f.Width,
		Height: f.Height,
	}
	copy(c.Pix, f.Pix)
	return c
}
