package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	logger, closer := New("debug", "")
	defer closer.Close()
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger, _ = New("invalid", "")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger, _ = New("", "")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	logger, closer := New("info", path)

	logger.Info().Str("instrument", "btcusdt").Msg("grid setup")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"grid setup"`)
	assert.Contains(t, string(data), `"instrument":"btcusdt"`)
}
