package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_json(t *testing.T) {
	defer LoggerLevel.SetLevel(zapcore.InfoLevel)
	path := filepath.Join(t.TempDir(), "kiosk.log")

	logger, err := NewLogger(LoggerOptions{Encoding: JsonEncoding, OutputPath: path})
	require.NoError(t, err)

	NewLoggerFactory(logger).Create("CheckIn").Sugar().Infof("issued ticket slip[%v]", "A001")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "CheckIn", entry["name"])
	assert.Equal(t, "issued ticket slip[A001]", entry["message"])
}

func TestNewLogger_debug(t *testing.T) {
	defer LoggerLevel.SetLevel(zapcore.InfoLevel)
	path := filepath.Join(t.TempDir(), "kiosk.log")

	logger, err := NewLogger(LoggerOptions{Encoding: ConsoleEncoding, OutputPath: path, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, LoggerLevel.Level())

	logger.Debug("state[IDLE] -> [SUBMITTING]")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "state[IDLE] -> [SUBMITTING]")
}

func TestNewLogger_unknown_encoding(t *testing.T) {
	_, err := NewLogger(LoggerOptions{Encoding: "xml", OutputPath: "stdout"})
	assert.Error(t, err)
}
