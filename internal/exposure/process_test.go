// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package exposure_test

import (
	"path"
	"testing"

	"github.com/evolution-gaming/relight/internal/exposure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Process_MissingInput(t *testing.T) {
	tempDir := t.TempDir()
	inPath := path.Join(tempDir, "no-such-video.mp4")
	outPath := path.Join(tempDir, "out.mp4")

	_, err := exposure.Process(inPath, outPath, exposure.DefaultOptions(), nil, exposure.MediaConfig{})

	var inErr *exposure.InputOpenError
	require.ErrorAs(t, err, &inErr)
	assert.Equal(t, inPath, inErr.Path)
	// Failed input open must not leave an output file behind.
	assert.NoFileExists(t, outPath)
}

func Test_TypedErrors_Unwrap(t *testing.T) {
	cause := assert.AnError

	tests := map[string]error{
		"InputOpenError":  &exposure.InputOpenError{Path: "in.mp4", Err: cause},
		"OutputOpenError": &exposure.OutputOpenError{Path: "out.mp4", Err: cause},
		"StreamFault":     &exposure.StreamFault{FrameNum: 7, Err: cause},
	}

	for name, err := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, err, cause)
			assert.NotEmpty(t, err.Error())
		})
	}
}
