package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{3, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "user", LevelName(0))
	assert.Equal(t, "info", LevelName(1))
	assert.Equal(t, "debug", LevelName(2))
	assert.Equal(t, "trace", LevelName(3))
	assert.Equal(t, "trace", LevelName(9))
}

func TestInitializeReplacesNopLogger(t *testing.T) {
	require.NotNil(t, Logger, "package init should install a nop logger")

	err := Initialize(true, VerbosityInfo)
	require.NoError(t, err)
	require.NotNil(t, Logger)
	assert.True(t, JSONOutput)

	// Logging through the package helpers must not panic.
	Infow("initialized", "test", true)
	Cleanup()
}
