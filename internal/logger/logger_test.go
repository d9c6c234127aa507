package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestComponentLoggerTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug")

	logger.Component("sensor").Info().Str("host", "http://10.0.0.2").Msg("hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "sensor", line["component"])
	assert.Equal(t, "http://10.0.0.2", line["host"])
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info")

	err := errors.New().New(errors.ErrInvalidPort)
	logger.ErrorWithCode(err).Msg("bad port")

	line := decodeLine(t, &buf)
	assert.Equal(t, "invalid_port", line["error_code"])
	assert.Equal(t, "Invalid port value", line["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warn")

	logger.Debug().Msg("hidden")
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	logger.SetLogLevel("info")
}
