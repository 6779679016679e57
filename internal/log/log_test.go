// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, name, level.String())
	}
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, LevelDebug, level)

	_, err = ParseLevel("LOUD")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestLevelNames(t *testing.T) {
	var buf bytes.Buffer
	l := NewText(&buf, LevelTrace)
	Trace(l, "pinned", "cpu", 3)
	require.Contains(t, buf.String(), "level=TRACE")
	require.Contains(t, buf.String(), "cpu=3")

	buf.Reset()
	l = NewJson(&buf, LevelWarn)
	l.Info("dropped")
	require.Empty(t, buf.String())
	l.Warn("kept")
	require.Contains(t, buf.String(), `"level":"WARN"`)
}
