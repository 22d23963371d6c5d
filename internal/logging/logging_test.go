package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLevel(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug"}))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(Config{Level: "info"}))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestInitFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(Config{Level: "not-a-level", Format: "json"}))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestNewRESTLogger(t *testing.T) {
	t.Run("empty path is a no-op", func(t *testing.T) {
		logger, closeFn, err := NewRESTLogger("")
		require.NoError(t, err)
		logger.Info("ignored")
		assert.NoError(t, closeFn())
	})

	t.Run("appends json lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rest.log")

		for i := 0; i < 2; i++ {
			logger, closeFn, err := NewRESTLogger(path)
			require.NoError(t, err)
			logger.Info("http", zap.String("method", "POST"), zap.Int("status", 201))
			require.NoError(t, closeFn())
		}

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "POST", entry["method"])
		assert.Equal(t, float64(201), entry["status"])
		assert.Contains(t, entry, "time")
	})

	t.Run("missing directory fails", func(t *testing.T) {
		_, _, err := NewRESTLogger(filepath.Join(t.TempDir(), "missing", "rest.log"))
		assert.Error(t, err)
	})
}
