// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nullbytefox/posterhound/internal/config"
)

// testWriter adapts a bytes.Buffer to zapcore.WriteSyncer.
func testWriter() (*bytes.Buffer, zapcore.WriteSyncer) {
	var buf bytes.Buffer
	return &buf, zapcore.AddSync(&buf)
}

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes the level", func(t *testing.T) {
		ResetForTest()
		buf, ws := testWriter()

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "hound-test",
			Colors:      config.ColorConfig{Info: "green"},
		}, ws)

		GetLogger().Info("console message")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "console message")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
		assert.Contains(t, output, "hound-test.")
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		ResetForTest()
		buf, ws := testWriter()

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "json-test",
		}, ws)

		GetLogger().Warn("structured message", zap.String("key", "value"))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "json-test", entry["logger"])
		assert.Equal(t, "structured message", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("writes to a log file if configured", func(t *testing.T) {
		ResetForTest()
		_, ws := testWriter()

		logPath := filepath.Join(t.TempDir(), "hound.log")
		Initialize(config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logPath,
			MaxSize: 1,
		}, ws)

		GetLogger().Error("file message")
		Sync()

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "file message")
	})

	t.Run("only the first initialization takes effect", func(t *testing.T) {
		ResetForTest()
		buf, ws := testWriter()

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "first"}, ws)
		first := GetLogger()

		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "second"}, ws)
		second := GetLogger()

		assert.Equal(t, first, second)
		second.Info("probe")
		assert.True(t, strings.Contains(buf.String(), "first"))
		assert.False(t, strings.Contains(buf.String(), "second"))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		buf, ws := testWriter()

		Initialize(config.LoggerConfig{Level: "shouting", Format: "json"}, ws)
		GetLogger().Debug("hidden")
		GetLogger().Info("visible")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("returns a fallback logger before initialization", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("returns the stored global logger after initialization", func(t *testing.T) {
		ResetForTest()
		_, ws := testWriter()
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "global"}, ws)
		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}

func TestInitialized(t *testing.T) {
	ResetForTest()
	assert.False(t, Initialized())

	_, ws := testWriter()
	Initialize(config.LoggerConfig{Level: "info", ServiceName: "init-check"}, ws)
	assert.True(t, Initialized())
}
