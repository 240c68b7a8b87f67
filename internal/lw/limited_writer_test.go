// Copyright ©2023 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lw_test

import (
	"strings"
	"testing"

	"github.com/evolution-gaming/relight/internal/lw"
	"github.com/stretchr/testify/assert"
)

func TestLimitedWriter(t *testing.T) {
	t.Run("Write within limit succeeds", func(t *testing.T) {
		var sb strings.Builder
		w := lw.LimitWriter(&sb, 10)

		n, err := w.Write([]byte("12345"))
		assert.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "12345", sb.String())
	})

	t.Run("Write over limit overflows", func(t *testing.T) {
		var sb strings.Builder
		w := lw.LimitWriter(&sb, 4)

		n, err := w.Write([]byte("12345"))
		assert.ErrorIs(t, err, lw.ErrLimitedWriterOverflow)
		assert.Equal(t, 0, n)
		assert.Equal(t, "", sb.String())
	})

	t.Run("Limit is consumed by writes", func(t *testing.T) {
		var sb strings.Builder
		w := lw.LimitWriter(&sb, 6)

		_, err := w.Write([]byte("1234"))
		assert.NoError(t, err)
		// Only 2 bytes of limit left at this point.
		_, err = w.Write([]byte("567"))
		assert.ErrorIs(t, err, lw.ErrLimitedWriterOverflow)
		assert.Equal(t, "1234", sb.String())
	})
}
