package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONRedactsTokens(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "debug", Format: "json", Output: &buf}))
	t.Cleanup(func() {
		_ = Configure(Options{Level: "info", Format: "text", Output: &bytes.Buffer{}})
	})

	LogInfoWithFields("apiclient", "Stored credentials", map[string]any{
		"access_token": "tok1",
		"path":         "/users",
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***", entry["access_token"])
	assert.Equal(t, "/users", entry["path"])
	assert.Equal(t, "apiclient", entry["component"])
	assert.Contains(t, entry, "timestamp")
}

func TestConfigure_InvalidLevel(t *testing.T) {
	err := Configure(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestTraceLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "debug", Format: "text", Output: &buf}))
	t.Cleanup(func() {
		_ = Configure(Options{Level: "info", Format: "text", Output: &bytes.Buffer{}})
	})

	LogTraceWithFields("apiclient", "hidden", nil)
	assert.Empty(t, buf.String())

	require.NoError(t, SetLogLevel("trace"))
	assert.Equal(t, "trace", GetLogLevel())
	LogTraceWithFields("apiclient", "visible", nil)
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "visible")
}
