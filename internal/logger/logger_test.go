package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestComponentLoggerFollowsInitialize(t *testing.T) {
	// created before Initialize, as package-level component loggers are
	componentLog := GetForComponent("early")

	var buf bytes.Buffer
	Initialize(Options{Level: "debug", Format: "json", File: &buf})
	t.Cleanup(func() {
		sink.set(os.Stdout)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	componentLog.Info().Str("k", "v").Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "early", entry["component"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, "hello", entry["message"])
}
