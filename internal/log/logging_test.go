package log_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaypad/replaypad/internal/log"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelTrace, log.ParseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, log.ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, log.ParseLevel(""))
	assert.Equal(t, slog.LevelError, log.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, log.ParseLevel("bogus"))
}

func TestSetupLoggerConsole(t *testing.T) {
	logger, closers, err := log.SetupLogger("info", "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Empty(t, closers)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestSetupLoggerFileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replaypad.log")
	logger, closers, err := log.SetupLogger("debug", path)
	require.NoError(t, err)

	logger.Debug("sequence loaded", "steps", 4)
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "sequence loaded")
	assert.Contains(t, string(b), "steps=4")
}
