package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsentry/chatsentry/internal/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	log, err := New(config.LogConfig{
		Level:     "debug",
		File:      path,
		MaxSizeMB: 1,
	})
	require.NoError(t, err)

	log.Info().Str("window", "chat").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"window":"chat"`)
}

func TestNewRequiresOutput(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info"})
	assert.Error(t, err)
}

func TestNewFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LogConfig{Level: "chatty", File: path})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := Component(base, "monitor")
	l.Info().Msg("tick")

	assert.Contains(t, buf.String(), `"component":"monitor"`)
}
