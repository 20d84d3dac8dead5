package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_JSONOutput(t *testing.T) {
	require := require.New(t)
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	require.Zero(buf.Len())

	l.With("channel", "ch-1").Info("connected", "host", "127.0.0.1")

	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("connected", rec["msg"])
	require.Equal("ch-1", rec["channel"])
	require.Equal("127.0.0.1", rec["host"])
	require.Contains(rec, "ts")
}

func TestSlogLogger_SetLevel(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, ErrorLevel, false)
	require.Equal(ErrorLevel, l.Level())

	l.SetLevel(DebugLevel)
	require.Equal(DebugLevel, l.Level())

	// child loggers share the level
	child := l.With("k", "v")
	require.Equal(DebugLevel, child.Level())
	child.Debug("visible")
	require.NotZero(buf.Len())
}

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	require.Equal(DebugLevel, ParseLevel("debug"))
	require.Equal(InfoLevel, ParseLevel("info"))
	require.Equal(WarnLevel, ParseLevel("warn"))
	require.Equal(ErrorLevel, ParseLevel("error"))
	require.Equal(FatalLevel, ParseLevel("fatal"))
	require.Equal(InfoLevel, ParseLevel("verbose"))
}
