package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		level string
		debug bool
		want  zapcore.Level
	}{
		{level: "info", want: zap.InfoLevel},
		{level: " WARN ", want: zap.WarnLevel},
		{level: "error", want: zap.ErrorLevel},
		{level: "", want: zap.InfoLevel},
		{level: "verbose", want: zap.InfoLevel},
		{level: "error", debug: true, want: zap.DebugLevel},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseLevel(tc.level, tc.debug), "level=%q debug=%v", tc.level, tc.debug)
	}
}

func TestNewCore_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := zap.New(newCore("info", false, zapcore.AddSync(&buf)))

	log.Debug("hidden")
	log.Info("request handled", zap.Int("status", 200))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "INFO", entry["level"])
	require.Equal(t, "request handled", entry["msg"])
	require.EqualValues(t, 200, entry["status"])
	require.Contains(t, entry, "ts")
}

func TestNew(t *testing.T) {
	log := New("debug", false)
	require.NotNil(t, log)
	require.True(t, log.Core().Enabled(zap.DebugLevel))
}
